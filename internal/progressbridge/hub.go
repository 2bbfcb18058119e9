package progressbridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/jfoltran/dbsync/internal/orchestrator"
)

// pollInterval is how often the hub re-reads the engine's progress
// snapshot and pushes it to every connected client, changed or not.
const pollInterval = 500 * time.Millisecond

// wireMessage is the JSON envelope sent to every connected client: either
// a progress snapshot or a single log line, never both.
type wireMessage struct {
	Type     string                     `json:"type"`
	Progress *orchestrator.ProgressInfo `json:"progress,omitempty"`
	Log      string                     `json:"log,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
}

// hub tracks connected WebSocket clients and broadcasts progress snapshots
// and log lines pulled from an orchestrator.Engine.
type hub struct {
	engine *orchestrator.Engine
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub(engine *orchestrator.Engine, logger zerolog.Logger) *hub {
	h := &hub{
		engine:  engine,
		logger:  logger.With().Str("component", "progress-hub").Logger(),
		clients: make(map[*wsClient]struct{}),
	}
	engine.AddObserver(func(msg string) { h.broadcastLog(msg) })
	return h
}

// run polls the engine's progress at pollInterval and broadcasts the
// snapshot to every connected client until ctx is cancelled.
func (h *hub) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcastProgress(h.engine.Progress())
		}
	}
}

func (h *hub) broadcastProgress(snap orchestrator.ProgressInfo) {
	h.broadcast(wireMessage{Type: "progress", Progress: &snap})
}

func (h *hub) broadcastLog(msg string) {
	h.broadcast(wireMessage{Type: "log", Log: msg})
}

func (h *hub) broadcast(msg wireMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Err(err).Msg("marshal progress bridge message")
		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.remove(c)
		}
	}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", n).Msg("progress bridge client connected")
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
	h.mu.Unlock()
}
