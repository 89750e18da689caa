package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/stepwise/internal/api"
	"github.com/ashureev/stepwise/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout   = 10 * time.Second
	readLimitBytes = 64 << 10
)

// Message types sent to the client.
const (
	TypeResult = "result"
	TypeError  = "error"
)

// Reply is a single server message. Result replies embed the same envelope
// POST /api/solve returns.
type Reply struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	*api.SolveResponse
}

// SessionObserver is notified as console sessions open and close.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// Limiter decides whether a client may submit another question.
type Limiter interface {
	Allow(key string) bool
}

// Handler upgrades /ws/solve requests and answers one question per message.
type Handler struct {
	solver        api.Solver
	limiter       Limiter
	sm            *SessionManager
	observer      SessionObserver
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// Config configures a Handler. Limiter and Observer are optional.
type Config struct {
	Limiter       Limiter
	Observer      SessionObserver
	AllowedOrigin string
	IsDev         bool
	Logger        *slog.Logger
}

// NewHandler creates a console handler.
func NewHandler(solver api.Solver, sm *SessionManager, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		solver:        solver,
		limiter:       cfg.Limiter,
		sm:            sm,
		observer:      cfg.Observer,
		allowedOrigin: cfg.AllowedOrigin,
		isDev:         cfg.IsDev,
		logger:        cfg.Logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientKey(r)
	sessionID := identity.SessionIDFromContext(r.Context())
	logger := h.logger.With("client_id", clientID, "session_id", sessionID)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(readLimitBytes)

	h.sm.Register(clientID, sessionID, ws)
	defer h.sm.Unregister(clientID, sessionID, ws)
	if h.observer != nil {
		h.observer.SessionOpened()
		defer h.observer.SessionClosed()
	}

	h.readLoop(r.Context(), ws, clientID, logger)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, clientID string, logger *slog.Logger) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				logger.Debug("WebSocket closed", "error", err)
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		reply := h.handleMessage(ctx, data, clientID)
		if err := h.write(ctx, ws, reply); err != nil {
			logger.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, data []byte, clientID string) Reply {
	var req api.SolveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return Reply{Type: TypeError, Error: "invalid message"}
	}
	if h.limiter != nil && !h.limiter.Allow(clientID) {
		return Reply{Type: TypeError, Error: "rate limit exceeded"}
	}

	resp, err := api.RunSolve(ctx, h.solver, req)
	if err != nil {
		return Reply{Type: TypeError, Error: err.Error()}
	}
	h.logger.Info("Console solve completed",
		"id", resp.ID,
		"client_id", clientID,
		"status", resp.Summary.Status,
		"retries", resp.Summary.Retries,
	)
	return Reply{Type: TypeResult, SolveResponse: &resp}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, v Reply) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
