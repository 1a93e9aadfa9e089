package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/models"
	gymsync "github.com/gymkeep/gymkeep/internal/sync"
	"github.com/rs/zerolog"
)

// mockSyncGatewayStore backs a real sync gateway with in-memory state.
type mockSyncGatewayStore struct {
	sessions   map[uuid.UUID]*models.ClassSession
	students   map[uuid.UUID]*models.Student
	attendance map[[2]uuid.UUID]*models.AttendanceRecord
	payments   map[uuid.UUID]*models.PaymentRecord
}

func (m *mockSyncGatewayStore) GetClassSessionByID(_ context.Context, id uuid.UUID) (*models.ClassSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockSyncGatewayStore) GetStudentByID(_ context.Context, orgID, id uuid.UUID) (*models.Student, error) {
	if s, ok := m.students[id]; ok && s.OrgID == orgID {
		return s, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockSyncGatewayStore) UpsertAttendance(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	key := [2]uuid.UUID{record.SessionID, record.StudentID}
	if stored, ok := m.attendance[key]; ok && stored.EventTime.After(record.EventTime) {
		return stored, false, nil
	}
	m.attendance[key] = record
	return record, true, nil
}

func (m *mockSyncGatewayStore) InsertPayment(_ context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, bool, error) {
	if payment.ClientEventID != nil {
		if existing, ok := m.payments[*payment.ClientEventID]; ok {
			return existing, false, nil
		}
		m.payments[*payment.ClientEventID] = payment
	}
	return payment, true, nil
}

type syncTestEnv struct {
	router    *gin.Engine
	store     *mockSyncGatewayStore
	user      *auth.SessionUser
	sessionID uuid.UUID
	studentID uuid.UUID
}

func setupSyncTestEnv(t *testing.T) *syncTestEnv {
	t.Helper()
	orgID := uuid.New()
	sessionID := uuid.New()
	studentID := uuid.New()
	store := &mockSyncGatewayStore{
		sessions:   map[uuid.UUID]*models.ClassSession{sessionID: {ID: sessionID, OrgID: orgID}},
		students:   map[uuid.UUID]*models.Student{studentID: {ID: studentID, OrgID: orgID}},
		attendance: make(map[[2]uuid.UUID]*models.AttendanceRecord),
		payments:   make(map[uuid.UUID]*models.PaymentRecord),
	}

	user := testUser(orgID, models.RoleFrontDesk)
	r, api := newTestRouter(user)
	gateway := gymsync.NewGateway(store, nil, zerolog.Nop())
	NewSyncHandler(gateway, zerolog.Nop()).RegisterRoutes(api)

	return &syncTestEnv{router: r, store: store, user: user, sessionID: sessionID, studentID: studentID}
}

func (e *syncTestEnv) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func TestSyncAttendanceEndpoint(t *testing.T) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	t.Run("applied", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"session_id": %q, "student_id": %q, "status": "present", "timestamp": %q}`,
			env.sessionID, env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/attendance", body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var result gymsync.AttendanceResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if !result.Applied {
			t.Error("event should be applied")
		}
	})

	t.Run("validation failure is 400", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"session_id": %q, "student_id": %q, "status": "vanished", "timestamp": %q}`,
			env.sessionID, env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/attendance", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("other tenant session is 404", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		foreignSession := uuid.New()
		env.store.sessions[foreignSession] = &models.ClassSession{ID: foreignSession, OrgID: uuid.New()}

		body := fmt.Sprintf(`{"session_id": %q, "student_id": %q, "status": "present", "timestamp": %q}`,
			foreignSession, env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/attendance", body)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		// Must be indistinguishable from a session that does not exist.
		if resp["error"] != "not found" {
			t.Errorf("error = %q, want %q", resp["error"], "not found")
		}
	})

	t.Run("missing session is 404", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"session_id": %q, "student_id": %q, "status": "present", "timestamp": %q}`,
			uuid.New(), env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/attendance", body)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestSyncPaymentEndpoint(t *testing.T) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	t.Run("created then replayed", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		eventID := uuid.New()
		body := fmt.Sprintf(`{"student_id": %q, "amount_cents": 5000, "payment_type": "membership", "payment_method": "cash", "timestamp": %q, "event_id": %q}`,
			env.studentID, timestamp, eventID)

		w := env.post(t, "/api/v1/sync/payments", body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var first gymsync.PaymentResult
		if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
			t.Fatal(err)
		}
		if !first.Created {
			t.Error("first submission should create")
		}

		w = env.post(t, "/api/v1/sync/payments", body)
		if w.Code != http.StatusOK {
			t.Fatalf("replay status = %d, body = %s", w.Code, w.Body.String())
		}
		var second gymsync.PaymentResult
		if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
			t.Fatal(err)
		}
		if second.Created {
			t.Error("replay should not create")
		}
		if first.Record.ID != second.Record.ID {
			t.Error("replay should return the original record")
		}
	})

	t.Run("non-positive amount is 400", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"student_id": %q, "amount_cents": 0, "payment_type": "membership", "payment_method": "cash", "timestamp": %q}`,
			env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/payments", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown student is 404", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"student_id": %q, "amount_cents": 5000, "payment_type": "membership", "payment_method": "cash", "timestamp": %q}`,
			uuid.New(), timestamp)

		w := env.post(t, "/api/v1/sync/payments", body)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestSyncBatchEndpoint(t *testing.T) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	t.Run("mixed batch is always 200", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		body := fmt.Sprintf(`{"events": [
			{"kind": "attendance", "attendance": {"session_id": %q, "student_id": %q, "status": "present", "timestamp": %q}},
			{"kind": "attendance", "attendance": {"session_id": %q, "student_id": %q, "status": "present", "timestamp": %q}},
			{"kind": "unknown"}
		]}`, env.sessionID, env.studentID, timestamp, uuid.New(), env.studentID, timestamp)

		w := env.post(t, "/api/v1/sync/batch", body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var resp struct {
			Results []gymsync.BatchOutcome `json:"results"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Results) != 3 {
			t.Fatalf("results = %d, want 3", len(resp.Results))
		}
		if resp.Results[0].Status != gymsync.OutcomeApplied {
			t.Errorf("results[0] = %s", resp.Results[0].Status)
		}
		if resp.Results[1].Status != gymsync.OutcomeRejected || resp.Results[1].Error != "not found" {
			t.Errorf("results[1] = %s/%q", resp.Results[1].Status, resp.Results[1].Error)
		}
		if resp.Results[2].Status != gymsync.OutcomeRejected {
			t.Errorf("results[2] = %s", resp.Results[2].Status)
		}
	})

	t.Run("missing events field is 400", func(t *testing.T) {
		env := setupSyncTestEnv(t)
		w := env.post(t, "/api/v1/sync/batch", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
