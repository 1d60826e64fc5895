package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-quest/internal/config"
	"go-quest/internal/llm"

	"github.com/gin-gonic/gin"
)

func TestHealthHandler_ReturnsOk(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", healthHandler(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("expected response to contain 'ok', got: %s", w.Body.String())
	}
}

func TestHealthHandler_ReportsEvaluator(t *testing.T) {
	manager := llm.NewManager(llm.DefaultConfig(), llm.NewCircuitBreaker(3, time.Minute))
	defer manager.Stop()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", healthHandler(manager))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	body := w.Body.String()
	if !strings.Contains(body, `"state":"closed"`) {
		t.Errorf("expected breaker state in health, got: %s", body)
	}
	if !strings.Contains(body, "interactive_enqueued") {
		t.Errorf("expected queue metrics in health, got: %s", body)
	}
}

func TestConfigHandler_HidesSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.JWTSecret = "very-secret"
	cfg.Evaluator.Model = "llama"

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/config", configHandler(cfg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"llama"`) {
		t.Errorf("expected evaluator model in config, got: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "very-secret") {
		t.Errorf("config endpoint leaked the jwt secret")
	}
}
