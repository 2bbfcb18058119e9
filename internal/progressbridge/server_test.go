package progressbridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/orchestrator"
)

type stubTriggerer struct {
	called bool
}

func (s *stubTriggerer) Trigger(ctx context.Context) (orchestrator.Summary, error) {
	s.called = true
	return orchestrator.Summary{}, nil
}

func TestBearerToken(t *testing.T) {
	if got := bearerToken("Bearer abc123"); got != "abc123" {
		t.Errorf("bearerToken() = %q, want %q", got, "abc123")
	}
	if got := bearerToken("abc123"); got != "" {
		t.Errorf("bearerToken() = %q, want empty for missing prefix", got)
	}
	if got := bearerToken(""); got != "" {
		t.Errorf("bearerToken() = %q, want empty for empty header", got)
	}
}

func TestBridge_NoAuthAllowsRequest(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	bridge, err := New(config.ProgressServerConfig{ListenAddr: ":0"}, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	bridge.withAuth(bridge.handleStatus)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without auth configured", rec.Code)
	}
}

func TestBridge_RejectsMissingToken(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	bridge, err := New(config.ProgressServerConfig{ListenAddr: ":0", AuthToken: "secret"}, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	bridge.withAuth(bridge.handleStatus)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for missing token", rec.Code)
	}
}

func TestBridge_TriggerWithoutTriggererReportsNotActive(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	bridge, err := New(config.ProgressServerConfig{ListenAddr: ":0"}, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	bridge.withAuth(bridge.handleTrigger)(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 with no triggerer configured", rec.Code)
	}
}

func TestBridge_TriggerWithTriggererAccepts(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	bridge, err := New(config.ProgressServerConfig{ListenAddr: ":0"}, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stub := &stubTriggerer{}
	bridge.SetTriggerer(stub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trigger", nil)
	bridge.withAuth(bridge.handleTrigger)(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 once a triggerer is configured", rec.Code)
	}
}

func TestBridge_AcceptsValidToken(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	bridge, err := New(config.ProgressServerConfig{ListenAddr: ":0", AuthToken: "secret"}, engine, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	bridge.withAuth(bridge.handleStatus)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for valid token", rec.Code)
	}
}
