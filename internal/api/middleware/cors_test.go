package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gymkeep/gymkeep/internal/config"
	"github.com/rs/zerolog"
)

func setupCORSRouter(origins []string, env config.Environment) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins, env, zerolog.Nop()))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestCORS_AllowlistedOrigin(t *testing.T) {
	r := setupCORSRouter([]string{"https://app.gymkeep.io"}, config.EnvProduction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://app.gymkeep.io")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.gymkeep.io" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	r := setupCORSRouter([]string{"https://app.gymkeep.io"}, config.EnvProduction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset for unlisted origin", got)
	}
	// Request still served; the browser enforces the missing header.
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := setupCORSRouter([]string{"https://kiosk.gymkeep.io"}, config.EnvProduction)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://kiosk.gymkeep.io")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight response missing Allow-Methods")
	}
}

func TestCORS_EmptyOriginsInProductionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty origins in production")
		}
	}()
	CORS(nil, config.EnvProduction, zerolog.Nop())
}

func TestCORS_EmptyOriginsInDevelopmentAllowsAll(t *testing.T) {
	r := setupCORSRouter(nil, config.EnvDevelopment)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q, want echoed origin in dev", got)
	}
}
