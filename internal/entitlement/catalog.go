// Package entitlement provides tier-based feature gating and resource limit
// enforcement for organizations.
package entitlement

import (
	"errors"
	"fmt"
	"os"

	"github.com/gymkeep/gymkeep/internal/models"
	"gopkg.in/yaml.v3"
)

// FeatureKey identifies a gated capability.
type FeatureKey string

const (
	// FeatureAttendanceKiosk enables kiosk check-in devices (all tiers).
	FeatureAttendanceKiosk FeatureKey = "attendance_kiosk"
	// FeaturePaymentTracking enables payment recording (all tiers).
	FeaturePaymentTracking FeatureKey = "payment_tracking"
	// FeatureOnlineBooking enables student self-service booking (Professional+).
	FeatureOnlineBooking FeatureKey = "online_booking"
	// FeatureAdvancedReports enables revenue and retention reports (Professional+).
	FeatureAdvancedReports FeatureKey = "advanced_reports"
	// FeatureSMSNotifications enables SMS reminders (Professional+).
	FeatureSMSNotifications FeatureKey = "sms_notifications"
	// FeatureAPIAccess enables programmatic API access (Professional+).
	FeatureAPIAccess FeatureKey = "api_access"
	// FeatureMultiLocation enables multiple studio locations (Enterprise).
	FeatureMultiLocation FeatureKey = "multi_location"
	// FeatureWhiteLabel enables white-label branding (Enterprise).
	FeatureWhiteLabel FeatureKey = "white_label"
)

// LimitKey identifies a capped, countable resource.
type LimitKey string

const (
	// LimitMaxStudents caps non-archived students.
	LimitMaxStudents LimitKey = "max_students"
	// LimitMaxTrainers caps users with trainer-class roles.
	LimitMaxTrainers LimitKey = "max_trainers"
	// LimitMaxSessionsMonth caps class sessions in the current billing month.
	LimitMaxSessionsMonth LimitKey = "max_sessions_month"
)

// Unlimited is a sentinel value indicating no limit on a resource.
const Unlimited = -1

// IsUnlimited returns true if the given limit value represents unlimited.
func IsUnlimited(limit int) bool {
	return limit == Unlimited
}

// ErrUnknownTier is returned when a tier name has no catalog entry.
var ErrUnknownTier = errors.New("unknown license tier")

// TierDefinition describes what a tier unlocks: its feature set and the limit
// for each capped resource. A missing limit key means zero (fail closed).
type TierDefinition struct {
	Features []FeatureKey     `yaml:"features"`
	Limits   map[LimitKey]int `yaml:"limits"`
}

// HasFeature reports whether the definition includes the given feature.
func (d TierDefinition) HasFeature(feature FeatureKey) bool {
	for _, f := range d.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// LimitFor returns the configured limit for key, or 0 if the key is absent.
func (d TierDefinition) LimitFor(key LimitKey) int {
	limit, ok := d.Limits[key]
	if !ok {
		return 0
	}
	return limit
}

// tierOrdering lists tiers from lowest to highest.
var tierOrdering = []models.LicenseTier{
	models.TierStarter,
	models.TierProfessional,
	models.TierEnterprise,
}

// TierOrder returns the position of a tier in the upgrade ladder.
// Higher values mean more access; -1 means unrecognized.
func TierOrder(tier models.LicenseTier) int {
	for i, t := range tierOrdering {
		if t == tier {
			return i
		}
	}
	return -1
}

// TiersAbove returns the tiers strictly above the given tier, lowest first.
func TiersAbove(tier models.LicenseTier) []models.LicenseTier {
	order := TierOrder(tier)
	if order < 0 || order >= len(tierOrdering)-1 {
		return nil
	}
	result := make([]models.LicenseTier, len(tierOrdering)-order-1)
	copy(result, tierOrdering[order+1:])
	return result
}

// Catalog is the immutable tier table. It is built once at startup and passed
// by injection; nothing mutates it afterwards.
type Catalog struct {
	tiers map[models.LicenseTier]TierDefinition
}

// DefaultCatalog returns the built-in tier table.
func DefaultCatalog() *Catalog {
	return &Catalog{
		tiers: map[models.LicenseTier]TierDefinition{
			models.TierStarter: {
				Features: []FeatureKey{
					FeatureAttendanceKiosk,
					FeaturePaymentTracking,
				},
				Limits: map[LimitKey]int{
					LimitMaxStudents:      25,
					LimitMaxTrainers:      3,
					LimitMaxSessionsMonth: 60,
				},
			},
			models.TierProfessional: {
				Features: []FeatureKey{
					FeatureAttendanceKiosk,
					FeaturePaymentTracking,
					FeatureOnlineBooking,
					FeatureAdvancedReports,
					FeatureSMSNotifications,
					FeatureAPIAccess,
				},
				Limits: map[LimitKey]int{
					LimitMaxStudents:      200,
					LimitMaxTrainers:      10,
					LimitMaxSessionsMonth: 500,
				},
			},
			models.TierEnterprise: {
				Features: []FeatureKey{
					FeatureAttendanceKiosk,
					FeaturePaymentTracking,
					FeatureOnlineBooking,
					FeatureAdvancedReports,
					FeatureSMSNotifications,
					FeatureAPIAccess,
					FeatureMultiLocation,
					FeatureWhiteLabel,
				},
				Limits: map[LimitKey]int{
					LimitMaxStudents:      Unlimited,
					LimitMaxTrainers:      Unlimited,
					LimitMaxSessionsMonth: Unlimited,
				},
			},
		},
	}
}

// catalogOverrides is the YAML structure for a catalog override file.
type catalogOverrides struct {
	Tiers map[models.LicenseTier]struct {
		Features []FeatureKey     `yaml:"features"`
		Limits   map[LimitKey]int `yaml:"limits"`
	} `yaml:"tiers"`
}

// LoadCatalog builds the tier catalog, applying overrides from the YAML file
// at path if it is non-empty. Overrides only apply to known tiers: limits are
// merged per key, a non-empty feature list replaces the tier's feature set.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog overrides: %w", err)
	}

	var overrides catalogOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse catalog overrides: %w", err)
	}

	for tier, o := range overrides.Tiers {
		def, ok := catalog.tiers[tier]
		if !ok {
			return nil, fmt.Errorf("catalog override for unknown tier %q", tier)
		}
		if len(o.Features) > 0 {
			def.Features = append([]FeatureKey(nil), o.Features...)
		}
		for key, limit := range o.Limits {
			def.Limits[key] = limit
		}
		catalog.tiers[tier] = def
	}

	return catalog, nil
}

// DefinitionFor returns the definition for the given tier, or ErrUnknownTier
// if the tier has no catalog entry. The returned definition is a copy; callers
// cannot mutate the catalog through it.
func (c *Catalog) DefinitionFor(tier models.LicenseTier) (TierDefinition, error) {
	def, ok := c.tiers[tier]
	if !ok {
		return TierDefinition{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}

	features := make([]FeatureKey, len(def.Features))
	copy(features, def.Features)
	limits := make(map[LimitKey]int, len(def.Limits))
	for k, v := range def.Limits {
		limits[k] = v
	}
	return TierDefinition{Features: features, Limits: limits}, nil
}
