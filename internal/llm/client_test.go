package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload["model"] != "test-model" {
			t.Errorf("unexpected model %v", payload["model"])
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	m := NewManager(DefaultConfig(), nil)
	defer m.Stop()
	c := NewClient(m, PriorityInteractive, time.Second)

	body, err := c.Call(context.Background(), srv.URL, map[string]interface{}{"model": "test-model"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if string(body) != `{"choices":[{"message":{"content":"ok"}}]}` {
		t.Errorf("unexpected body %s", body)
	}
	if got := m.GetMetrics().InteractiveProcessed; got != 1 {
		t.Errorf("expected 1 processed request, got %d", got)
	}
}

func TestClient_ServerErrorTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := NewCircuitBreaker(1, time.Minute)
	m := NewManager(DefaultConfig(), cb)
	defer m.Stop()
	c := NewClient(m, PriorityBackground, time.Second)

	if _, err := c.Call(context.Background(), srv.URL, map[string]interface{}{}); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if _, err := c.Call(context.Background(), srv.URL, map[string]interface{}{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen on second call, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := NewManager(DefaultConfig(), nil)
	defer m.Stop()
	c := NewClient(m, PriorityBackground, 50*time.Millisecond)

	start := time.Now()
	if _, err := c.Call(context.Background(), srv.URL, map[string]interface{}{}); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("request was not bounded by its timeout")
	}
}
