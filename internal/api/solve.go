package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultMaxRequestBodySize = 64 << 10

// Solver answers questions. *agent.Loop satisfies it.
type Solver interface {
	Solve(ctx context.Context, question string) *domain.AgentResult
	MaxRetries() int
}

// RejectObserver is notified when the rate limiter rejects a request.
type RejectObserver interface {
	IncRateLimited()
}

// SolveRequest is the body of POST /api/solve and of each console message.
type SolveRequest struct {
	Question string `json:"question"`
}

// Summary condenses a result for display.
type Summary struct {
	Status       domain.Status `json:"status"`
	Retries      int           `json:"retries"`
	ChecksPassed int           `json:"checks_passed"`
	ChecksTotal  int           `json:"checks_total"`
	ElapsedMS    int64         `json:"elapsed_ms"`
}

// SolveResponse wraps an AgentResult with an ID and a display summary.
type SolveResponse struct {
	ID      string              `json:"id"`
	Result  *domain.AgentResult `json:"result"`
	Summary Summary             `json:"summary"`
}

// NewSolveResponse builds the response envelope for result.
func NewSolveResponse(result *domain.AgentResult, elapsed time.Duration) SolveResponse {
	return SolveResponse{
		ID:     uuid.NewString(),
		Result: result,
		Summary: Summary{
			Status:       result.Status,
			Retries:      result.Metadata.Retries,
			ChecksPassed: result.PassedChecks(),
			ChecksTotal:  len(result.Metadata.Checks),
			ElapsedMS:    elapsed.Milliseconds(),
		},
	}
}

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is required")

// RunSolve validates req and runs solver, timing the call.
func RunSolve(ctx context.Context, solver Solver, req SolveRequest) (SolveResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return SolveResponse{}, ErrEmptyQuestion
	}
	start := time.Now()
	result := solver.Solve(ctx, question)
	return NewSolveResponse(result, time.Since(start)), nil
}

// ServiceInfo is reported by GET /api/config.
type ServiceInfo struct {
	Generator    string `json:"generator"`
	ExecutorMode string `json:"executor_mode"`
	MaxRetries   int    `json:"max_retries"`
}

// SolveHandler serves the solve and config endpoints.
type SolveHandler struct {
	solver      Solver
	limiter     *RateLimiter
	rejects     RejectObserver
	info        ServiceInfo
	maxBodySize int64
	logger      *slog.Logger
}

// SolveHandlerConfig configures a SolveHandler.
type SolveHandlerConfig struct {
	Info        ServiceInfo
	Limiter     *RateLimiter
	Rejects     RejectObserver
	MaxBodySize int64
	Logger      *slog.Logger
}

// NewSolveHandler creates a handler backed by solver.
func NewSolveHandler(solver Solver, cfg SolveHandlerConfig) *SolveHandler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxRequestBodySize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Info.MaxRetries = solver.MaxRetries()
	return &SolveHandler{
		solver:      solver,
		limiter:     cfg.Limiter,
		rejects:     cfg.Rejects,
		info:        cfg.Info,
		maxBodySize: cfg.MaxBodySize,
		logger:      cfg.Logger,
	}
}

// RegisterRoutes registers the solve routes.
func (h *SolveHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Post("/solve", h.HandleSolve)
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *SolveHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.info)
}

// Allow applies the rate limiter to key and records rejections.
func (h *SolveHandler) Allow(key string) bool {
	if h.limiter == nil || h.limiter.Allow(key) {
		return true
	}
	if h.rejects != nil {
		h.rejects.IncRateLimited()
	}
	return false
}

// HandleSolve handles POST /api/solve requests.
func (h *SolveHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientKey(r)
	if !h.Allow(clientID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := RunSolve(r.Context(), h.solver, req)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Solve request completed",
		"id", resp.ID,
		"client_id", clientID,
		"session_id", identity.SessionIDFromContext(r.Context()),
		"status", resp.Summary.Status,
		"retries", resp.Summary.Retries,
		"elapsed_ms", resp.Summary.ElapsedMS,
	)
	JSON(w, http.StatusOK, resp)
}
