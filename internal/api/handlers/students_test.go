package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

type mockStudentStore struct {
	students   map[uuid.UUID]*models.Student
	createErr  error
	archiveErr error
}

func newMockStudentStore() *mockStudentStore {
	return &mockStudentStore{students: make(map[uuid.UUID]*models.Student)}
}

func (m *mockStudentStore) CreateStudentGuarded(_ context.Context, student *models.Student, _ int) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentStore) GetStudentByID(_ context.Context, orgID, id uuid.UUID) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok || student.OrgID != orgID {
		return nil, db.ErrNotFound
	}
	return student, nil
}

func (m *mockStudentStore) GetStudentsByOrgID(_ context.Context, orgID uuid.UUID) ([]*models.Student, error) {
	var result []*models.Student
	for _, s := range m.students {
		if s.OrgID == orgID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockStudentStore) ArchiveStudent(_ context.Context, orgID, id uuid.UUID) error {
	if m.archiveErr != nil {
		return m.archiveErr
	}
	student, ok := m.students[id]
	if !ok || student.OrgID != orgID {
		return db.ErrNotFound
	}
	student.Status = models.StudentArchived
	return nil
}

func setupStudentsTestRouter(store StudentStore, tier models.LicenseTier, counter *mockCounter, user *auth.SessionUser) *gin.Engine {
	resolver, guard, _, orgID := newEntitlementStack(tier, counter)
	if user != nil {
		user.OrgID = orgID
	}
	r, api := newTestRouter(user)
	NewStudentsHandler(store, resolver, guard, zerolog.Nop()).RegisterRoutes(api)
	return r
}

func TestCreateStudent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := newMockStudentStore()
		user := testUser(uuid.Nil, models.RoleFrontDesk)
		r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{students: 5}, user)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students",
			strings.NewReader(`{"name": "Ada Lovelace", "email": "ada@test.com"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var student models.Student
		if err := json.Unmarshal(w.Body.Bytes(), &student); err != nil {
			t.Fatal(err)
		}
		if student.Name != "Ada Lovelace" {
			t.Errorf("name = %q", student.Name)
		}
		if student.OrgID != user.OrgID {
			t.Error("student should belong to the caller's organization")
		}
		if len(store.students) != 1 {
			t.Errorf("stored students = %d", len(store.students))
		}
	})

	t.Run("missing name", func(t *testing.T) {
		store := newMockStudentStore()
		user := testUser(uuid.Nil, models.RoleFrontDesk)
		r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{}, user)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"email": "no-name@test.com"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("limit reached returns upsell payload", func(t *testing.T) {
		store := newMockStudentStore()
		store.createErr = db.ErrLimitReached
		user := testUser(uuid.Nil, models.RoleFrontDesk)
		r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{students: 25}, user)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"name": "One Too Many"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want 402, body = %s", w.Code, w.Body.String())
		}

		var resp struct {
			Error         string `json:"error"`
			LimitKey      string `json:"limit_key"`
			Current       int    `json:"current"`
			Limit         int    `json:"limit"`
			SuggestedTier string `json:"suggested_tier"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Error != "limit_exceeded" {
			t.Errorf("error = %q", resp.Error)
		}
		if resp.LimitKey != "max_students" {
			t.Errorf("limit_key = %q", resp.LimitKey)
		}
		if resp.Current != 25 || resp.Limit != 25 {
			t.Errorf("current/limit = %d/%d", resp.Current, resp.Limit)
		}
		if resp.SuggestedTier != "professional" {
			t.Errorf("suggested_tier = %q", resp.SuggestedTier)
		}
	})
}

func TestGetStudent(t *testing.T) {
	store := newMockStudentStore()
	user := testUser(uuid.Nil, models.RoleTrainer)

	r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{}, user)
	student := models.NewStudent(user.OrgID, "Grace", "grace@test.com", "")
	store.students[student.ID] = student

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students/"+student.ID.String(), nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("other org student reads as not found", func(t *testing.T) {
		foreign := models.NewStudent(uuid.New(), "Foreign", "f@test.com", "")
		store.students[foreign.ID] = foreign

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students/"+foreign.ID.String(), nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/students/not-a-uuid", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestArchiveStudent(t *testing.T) {
	store := newMockStudentStore()
	user := testUser(uuid.Nil, models.RoleAdmin)
	r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{}, user)

	student := models.NewStudent(user.OrgID, "Archivee", "arch@test.com", "")
	store.students[student.ID] = student

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students/"+student.ID.String()+"/archive", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if student.Status != models.StudentArchived {
			t.Errorf("status = %s, want archived", student.Status)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students/"+uuid.New().String()+"/archive", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestListStudents(t *testing.T) {
	store := newMockStudentStore()
	user := testUser(uuid.Nil, models.RoleTrainer)
	r := setupStudentsTestRouter(store, models.TierStarter, &mockCounter{}, user)

	store.students[uuid.New()] = models.NewStudent(user.OrgID, "Mine", "mine@test.com", "")
	foreign := models.NewStudent(uuid.New(), "Theirs", "theirs@test.com", "")
	store.students[foreign.ID] = foreign

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Students []*models.Student `json:"students"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Students) != 1 {
		t.Errorf("students = %d, want only the caller's org", len(resp.Students))
	}
}
