// Package control serves the bot's live control surface: a small REST API
// for status/markets/trades and start/stop/toggle-dry-run actions, plus a
// WebSocket endpoint that streams a full snapshot followed by the engine's
// live event-bus traffic — the same full-snapshot-then-incremental shape a
// Python dashboard's /ws endpoint uses, built here on gorilla/websocket
// instead of a bundled ASGI server.
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sdibella/btc15m/internal/dashboard"
	"github.com/sdibella/btc15m/internal/eventbus"
)

// botEngine is the dependency shape Server needs from internal/engine.Engine,
// kept as a small local interface so this package doesn't import
// internal/engine directly.
type botEngine interface {
	StartTrading()
	StopTrading()
	IsPaused() bool
	SetDryRun(bool)
	DryRun() bool
}

// Server serves the HTTP control surface.
type Server struct {
	engine       botEngine
	bus          *eventbus.Bus
	journalPath  string
	upgrader     websocket.Upgrader
	statusFn     func() any
	marketsFn    func() any
	riskFn       func() any
}

// New builds a Server. portfolioFn, marketsFn, and riskFn are supplied by
// the caller (cmd/bot) since their return types live in internal/strategy
// and internal/risk, which this package avoids importing directly to keep
// the dependency graph shallow.
func New(eng botEngine, bus *eventbus.Bus, journalPath string, portfolioFn, marketsFn, riskFn func() any) *Server {
	return &Server{
		engine:      eng,
		bus:         bus,
		journalPath: journalPath,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		statusFn:    portfolioFn,
		marketsFn:   marketsFn,
		riskFn:      riskFn,
	}
}

// Handler returns the configured mux, for the caller to wrap in an
// http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/markets", s.handleMarkets)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/bot/start", s.handleStart)
	mux.HandleFunc("/api/bot/stop", s.handleStop)
	mux.HandleFunc("/api/bot/toggle-dry-run", s.handleToggleDryRun)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"portfolio": s.statusFn(),
		"risk":      s.riskFn(),
		"paused":    s.engine.IsPaused(),
		"dry_run":   s.engine.DryRun(),
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.marketsFn())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	reader := dashboard.NewReader(dashboard.Config{JournalFile: s.journalPath})
	events, err := reader.ParseJournal(s.journalPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	interfaceEvents := make([]interface{}, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case "session_start":
			interfaceEvents = append(interfaceEvents, *e.SessionStart)
		case "trade":
			interfaceEvents = append(interfaceEvents, *e.Trade)
		case "settlement":
			interfaceEvents = append(interfaceEvents, *e.Settlement)
		}
	}

	analyzer := dashboard.NewAnalyzer()
	analyzer.ProcessEvents(interfaceEvents)
	writeJSON(w, analyzer.GetTrades())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.StartTrading()
	writeJSON(w, map[string]any{"paused": false})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.StopTrading()
	writeJSON(w, map[string]any{"paused": true})
}

func (s *Server) handleToggleDryRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next := !s.engine.DryRun()
	s.engine.SetDryRun(next)
	writeJSON(w, map[string]any{"dry_run": next})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("control: ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	snapshot := eventbus.Message{
		Kind: eventbus.KindPortfolio,
		At:   time.Now().UTC().Format(time.RFC3339Nano),
		Data: map[string]any{"portfolio": s.statusFn(), "markets": s.marketsFn(), "risk": s.riskFn()},
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}

	ch, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	for msg := range ch {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
