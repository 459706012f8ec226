package control

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sdibella/btc15m/internal/eventbus"
)

type fakeEngine struct {
	paused bool
	dryRun bool
}

func (f *fakeEngine) StartTrading()       { f.paused = false }
func (f *fakeEngine) StopTrading()        { f.paused = true }
func (f *fakeEngine) IsPaused() bool      { return f.paused }
func (f *fakeEngine) SetDryRun(v bool)    { f.dryRun = v }
func (f *fakeEngine) DryRun() bool        { return f.dryRun }

func newTestServer() (*Server, *fakeEngine) {
	eng := &fakeEngine{dryRun: true}
	srv := New(eng, eventbus.New(), "",
		func() any { return map[string]any{"balance": 1000.0} },
		func() any { return []any{} },
		func() any { return map[string]any{"halted": false} },
	)
	return srv, eng
}

func TestHandleStatusReportsEngineState(t *testing.T) {
	srv, eng := newTestServer()
	eng.paused = true

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"paused":true`) {
		t.Fatalf("expected status body to report paused=true, got %s", w.Body.String())
	}
}

func TestHandleStartAndStopTogglePause(t *testing.T) {
	srv, eng := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/bot/stop", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if !eng.paused {
		t.Fatalf("expected POST /api/bot/stop to pause the engine")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/bot/start", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if eng.paused {
		t.Fatalf("expected POST /api/bot/start to unpause the engine")
	}
}

func TestHandleStartRejectsNonPost(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/bot/start", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /api/bot/start, got %d", w.Code)
	}
}

func TestHandleToggleDryRunFlipsMode(t *testing.T) {
	srv, eng := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/bot/toggle-dry-run", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if eng.dryRun {
		t.Fatalf("expected toggling dry-run from true to flip to false")
	}
	if !strings.Contains(w.Body.String(), `"dry_run":false`) {
		t.Fatalf("expected response body to reflect the new mode, got %s", w.Body.String())
	}
}
