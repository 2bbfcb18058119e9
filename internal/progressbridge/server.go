// Package progressbridge exposes a sync run's progress and log stream
// over HTTP: a plain JSON snapshot endpoint and a WebSocket feed that
// pushes updates as they happen, for a browser-based or remote dashboard
// that cannot attach to the process's own terminal.
package progressbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/orchestrator"
)

const (
	shutdownTimeout = 5 * time.Second
	wsWriteTimeout  = 5 * time.Second
)

// Triggerer starts an out-of-band sync pass. A *scheduler.Scheduler
// satisfies this; the /trigger endpoint uses it to implement trigger-now
// without the bridge importing the scheduler package directly.
type Triggerer interface {
	Trigger(ctx context.Context) (orchestrator.Summary, error)
}

// Bridge serves an engine's progress over HTTP and WebSocket, optionally
// behind a bearer-token check.
type Bridge struct {
	engine    *orchestrator.Engine
	triggerer Triggerer
	hub       *hub
	logger    zerolog.Logger
	server    *http.Server

	authHash []byte // nil when the bridge has no auth token configured
}

// New builds a Bridge from cfg. When cfg.AuthToken is non-empty, every
// request must present it as "Authorization: Bearer <token>"; the token
// is hashed once here and compared with bcrypt on each request rather
// than kept and compared in plaintext.
func New(cfg config.ProgressServerConfig, engine *orchestrator.Engine, logger zerolog.Logger) (*Bridge, error) {
	b := &Bridge{
		engine: engine,
		hub:    newHub(engine, logger),
		logger: logger.With().Str("component", "progress-bridge").Logger(),
	}

	if cfg.AuthToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AuthToken), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("hash progress bridge auth token: " + err.Error())
		}
		b.authHash = hash
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", b.withAuth(b.handleStatus))
	mux.HandleFunc("/ws", b.withAuth(b.handleWS))
	mux.HandleFunc("/trigger", b.withAuth(b.handleTrigger))

	b.server = &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	return b, nil
}

// SetTriggerer wires t as the target of the /trigger endpoint. Called after
// New when the caller also owns a scheduler; left nil for a one-shot run,
// where /trigger always reports not active.
func (b *Bridge) SetTriggerer(t Triggerer) {
	b.triggerer = t
}

// Serve runs the HTTP server and the broadcast hub until ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context) error {
	go b.hub.run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- b.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return b.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (b *Bridge) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.authHash == nil {
			next(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" || bcrypt.CompareHashAndPassword(b.authHash, []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}

func (b *Bridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b.engine.Progress())
}

func (b *Bridge) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if b.triggerer == nil {
		http.Error(w, "not active", http.StatusConflict)
		return
	}

	go func() {
		if _, err := b.triggerer.Trigger(context.Background()); err != nil {
			b.logger.Err(err).Msg("triggered sync run failed")
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("sync triggered\n"))
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		b.logger.Err(err).Msg("progress bridge ws accept")
		return
	}

	client := &wsClient{conn: conn}
	b.hub.add(client)

	snap := b.engine.Progress()
	if data, err := json.Marshal(wireMessage{Type: "progress", Progress: &snap}); err == nil {
		writeCtx, cancel := context.WithTimeout(r.Context(), wsWriteTimeout)
		_ = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
	}

	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			b.hub.remove(client)
			return
		}
	}
}
