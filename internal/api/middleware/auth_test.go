package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gymkeep/gymkeep/internal/auth"
	"github.com/gymkeep/gymkeep/internal/db"
	"github.com/gymkeep/gymkeep/internal/models"
	"github.com/rs/zerolog"
)

type mockUserStore struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, db.ErrNotFound
}

func newTestSessionStore(t *testing.T) *auth.SessionStore {
	t.Helper()
	cfg := auth.DefaultSessionConfig([]byte("0123456789abcdef0123456789abcdef"), false, 3600)
	store, err := auth.NewSessionStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// loginRequest returns a request carrying a valid session cookie for the user.
func loginRequest(t *testing.T, sessions *auth.SessionStore, user *auth.SessionUser) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := sessions.SetUser(seed, w, user); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, cookie := range w.Result().Cookies() {
		req.AddCookie(cookie)
	}
	return req
}

func TestAuthMiddleware_ValidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessionStore(t)
	sessionUser := &auth.SessionUser{
		ID:    uuid.New(),
		OrgID: uuid.New(),
		Role:  models.RoleTrainer,
		Email: "trainer@test.com",
	}

	r := gin.New()
	r.Use(AuthMiddleware(sessions, zerolog.Nop()))
	r.GET("/protected", func(c *gin.Context) {
		got := GetUser(c)
		if got == nil || got.ID != sessionUser.ID {
			t.Error("user not propagated to handler context")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginRequest(t, sessions, sessionUser))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_NoSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessionStore(t)

	r := gin.New()
	r.Use(AuthMiddleware(sessions, zerolog.Nop()))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUserVerifyMiddleware_StaleSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessionStore(t)
	sessionUser := &auth.SessionUser{ID: uuid.New(), OrgID: uuid.New(), Role: models.RoleOwner}

	// The user is in the session but not in the database.
	store := &mockUserStore{users: map[uuid.UUID]*models.User{}}

	r := gin.New()
	r.Use(AuthMiddleware(sessions, zerolog.Nop()))
	r.Use(UserVerifyMiddleware(store, sessions, zerolog.Nop()))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginRequest(t, sessions, sessionUser))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for stale session", w.Code)
	}
}

func TestUserVerifyMiddleware_KnownUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newTestSessionStore(t)
	userID := uuid.New()
	sessionUser := &auth.SessionUser{ID: userID, OrgID: uuid.New(), Role: models.RoleOwner}
	store := &mockUserStore{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Role: models.RoleOwner},
	}}

	r := gin.New()
	r.Use(AuthMiddleware(sessions, zerolog.Nop()))
	r.Use(UserVerifyMiddleware(store, sessions, zerolog.Nop()))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginRequest(t, sessions, sessionUser))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(role models.UserRole) int {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(string(UserContextKey), &auth.SessionUser{ID: uuid.New(), Role: role})
			c.Next()
		})
		r.Use(RequireRole(models.RoleOwner, models.RoleAdmin))
		r.GET("/admin", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return w.Code
	}

	if code := serve(models.RoleOwner); code != http.StatusOK {
		t.Errorf("owner status = %d, want 200", code)
	}
	if code := serve(models.RoleAdmin); code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", code)
	}
	if code := serve(models.RoleTrainer); code != http.StatusForbidden {
		t.Errorf("trainer status = %d, want 403", code)
	}
	if code := serve(models.RoleFrontDesk); code != http.StatusForbidden {
		t.Errorf("frontdesk status = %d, want 403", code)
	}
}

func TestGetUser_NoUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUser(c) != nil {
		t.Error("expected nil for missing user")
	}
}

func TestGetUser_WrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(string(UserContextKey), "not a user")

	if GetUser(c) != nil {
		t.Error("expected nil for wrong type")
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("aborts with 401 when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		if RequireUser(c) != nil {
			t.Error("expected nil")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("returns the user when present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := &auth.SessionUser{ID: uuid.New()}
		c.Set(string(UserContextKey), want)

		if got := RequireUser(c); got != want {
			t.Error("expected the stored user")
		}
	})
}
