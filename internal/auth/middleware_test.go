package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-quest/internal/config"

	"github.com/gin-gonic/gin"
)

func setupTestToken(secret, service, role string, exp time.Duration) string {
	token, _ := GenerateServiceToken(secret, service, role, exp)
	return token
}

func setupTestRouter(cfg *config.Config, requireAdmin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(cfg, requireAdmin))
	r.GET("/test", func(c *gin.Context) {
		c.String(200, c.GetString("service"))
	})
	return r
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, false)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, false)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer not.a.valid.jwt")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid JWT, got %d", w.Code)
	}
}

func TestAuthMiddleware_WorldAllowed(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, false)
	token := setupTestToken(cfg.Server.JWTSecret, "world-sim", RoleWorld, time.Minute)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "world-sim" {
		t.Errorf("service not attached to context, got %q", w.Body.String())
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, false)
	token := setupTestToken(cfg.Server.JWTSecret, "dashboard", RoleWorld, time.Minute)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test?token="+token, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for query token, got %d", w.Code)
	}
}

func TestAuthMiddleware_NonAdminForbidden(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, true) // requireAdmin = true
	token := setupTestToken(cfg.Server.JWTSecret, "world-sim", RoleWorld, time.Minute)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}
}

func TestAuthMiddleware_AdminAllowed(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "secret"
	r := setupTestRouter(cfg, true) // requireAdmin = true
	token := setupTestToken(cfg.Server.JWTSecret, "ops", RoleAdmin, time.Minute)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
}
