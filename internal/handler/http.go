package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/queue"
	"github.com/trivia-arena/internal/reward"
	"github.com/trivia-arena/internal/store"
)

// Handler provides HTTP handlers for the trivia arena API
type Handler struct {
	queue    *queue.Service
	matches  *match.Service
	rewards  *reward.Service
	profiles *profile.Store
	boards   store.Boards
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	q *queue.Service,
	matches *match.Service,
	rewards *reward.Service,
	profiles *profile.Store,
	boards store.Boards,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		queue:    q,
		matches:  matches,
		rewards:  rewards,
		profiles: profiles,
		boards:   boards,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Profiles
		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", h.CreateProfile)
			r.Get("/{userID}", h.GetProfile)
		})

		// Matchmaking queues, one per category
		r.Route("/queue/{categoryID}", func(r chi.Router) {
			r.Post("/join", h.JoinQueue)
			r.Post("/leave", h.LeaveQueue)
			r.Get("/assignment/{userID}", h.GetAssignment)
		})

		// Match lifecycle
		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.StartMatch)

			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.GetMatch)
				r.Post("/join", h.JoinMatch)
				r.Post("/answers", h.SubmitAnswer)
				r.Post("/emotes", h.SubmitEmote)
				r.Get("/result", h.GetResult)
				r.Post("/claim", h.ClaimRewards)
			})
		})

		// Score boards (read model)
		r.Get("/boards/{board}/top", h.GetBoardTop)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps a domain error onto an HTTP status
func (h *Handler) writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrAlreadyAnswered) || errors.Is(err, domain.ErrAlreadySettled):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsUserError(err):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrQueueContention):
		// The bounded retry loop gave up; the client should re-poll
		h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("failed to "+action, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// CreateProfile registers a new player profile
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if p.ID == "" || p.Name == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Level == 0 {
		p.Level = 1
	}

	if err := h.profiles.Create(r.Context(), &p); err != nil {
		if errors.Is(err, store.ErrKeyExists) {
			h.writeError(w, http.StatusConflict, err)
			return
		}
		h.logger.Error("failed to create profile", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    p,
	})
}

// GetProfile returns a player profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "get profile", err)
		return
	}

	h.writeSuccess(w, p)
}

// queueRequest identifies the caller for queue operations
type queueRequest struct {
	UserID string `json:"user_id"`
}

// JoinQueue enqueues a player or pairs them into a match
func (h *Handler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.UserID == "" || categoryID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	matchID, err := h.queue.Join(r.Context(), req.UserID, categoryID)
	if err != nil {
		h.writeServiceError(w, "join queue", err)
		return
	}

	h.writeSuccess(w, map[string]string{
		"match_id": matchID,
		"status":   queueStatus(matchID),
	})
}

// LeaveQueue removes a player from a category's waiting list
func (h *Handler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.UserID == "" || categoryID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.queue.Leave(r.Context(), req.UserID, categoryID); err != nil {
		h.writeServiceError(w, "leave queue", err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "left"})
}

// GetAssignment polls for the caller's assigned match
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")
	userID := chi.URLParam(r, "userID")
	if categoryID == "" || userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	matchID, err := h.queue.Assignment(r.Context(), userID, categoryID)
	if err != nil {
		h.writeServiceError(w, "get assignment", err)
		return
	}

	h.writeSuccess(w, map[string]string{
		"match_id": matchID,
		"status":   queueStatus(matchID),
	})
}

func queueStatus(matchID string) string {
	if matchID == "" {
		return "waiting"
	}
	return "assigned"
}

// startMatchRequest starts a daily run or a private lobby
type startMatchRequest struct {
	UserIDs    []string `json:"user_ids"`
	CategoryID string   `json:"category_id"`
	Mode       string   `json:"mode"`
	Private    bool     `json:"private"`
}

// StartMatch creates a daily pseudo-match or a private lobby. Ranked
// matches are created through the matchmaking queue, not here.
func (h *Handler) StartMatch(w http.ResponseWriter, r *http.Request) {
	var req startMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if len(req.UserIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	mode := domain.Mode(req.Mode)
	if mode != domain.ModeRanked && mode != domain.ModeDaily {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	m, err := h.matches.Start(r.Context(), req.UserIDs, req.CategoryID, mode, req.Private)
	if err != nil {
		h.writeServiceError(w, "start match", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    m,
	})
}

// JoinMatch adds a second player to a waiting private lobby
func (h *Handler) JoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if matchID == "" || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	m, err := h.matches.Join(r.Context(), matchID, req.UserID)
	if err != nil {
		h.writeServiceError(w, "join match", err)
		return
	}

	h.writeSuccess(w, m)
}

// GetMatch returns live match state. Reading is what enforces round
// timeouts, so this runs the lazy sweep before responding.
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	m, err := h.matches.Get(r.Context(), matchID)
	if err != nil {
		h.writeServiceError(w, "get match", err)
		return
	}

	h.writeSuccess(w, m)
}

// answerRequest is one answer submission for the active round
type answerRequest struct {
	UserID          string `json:"user_id"`
	QuestionIndex   int    `json:"question_index"`
	AnswerIndex     int    `json:"answer_index"`
	TimeRemainingMs int64  `json:"time_remaining_ms"`
}

// SubmitAnswer validates and scores one answer
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if matchID == "" || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.matches.SubmitAnswer(r.Context(), matchID, req.UserID, req.QuestionIndex, req.AnswerIndex, req.TimeRemainingMs)
	if err != nil {
		h.writeServiceError(w, "submit answer", err)
		return
	}

	h.writeSuccess(w, result)
}

// emoteRequest is one cosmetic in-match reaction
type emoteRequest struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// SubmitEmote records an in-match emote
func (h *Handler) SubmitEmote(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req emoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if matchID == "" || req.UserID == "" || req.Emoji == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.matches.SubmitEmote(r.Context(), matchID, req.UserID, req.Emoji); err != nil {
		h.writeServiceError(w, "submit emote", err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "accepted"})
}

// GetResult returns final match state without running the sweep
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	m, err := h.matches.Result(r.Context(), matchID)
	if err != nil {
		h.writeServiceError(w, "get result", err)
		return
	}

	h.writeSuccess(w, m)
}

// ClaimRewards settles a finished match for the calling player
func (h *Handler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if matchID == "" || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	settlement, err := h.rewards.Settle(r.Context(), matchID, req.UserID)
	if err != nil {
		h.writeServiceError(w, "claim rewards", err)
		return
	}

	h.writeSuccess(w, settlement)
}

// GetBoardTop returns the top N members of a score board
func (h *Handler) GetBoardTop(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")
	if board == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.boards.TopN(r.Context(), board, limit)
	if err != nil {
		h.logger.Error("failed to get board top", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}
