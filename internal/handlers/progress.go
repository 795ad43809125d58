package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

// ProgressHandler provides HTTP handlers for trainee progress.
type ProgressHandler struct {
	tracker *services.ProgressTracker
	logger  *slog.Logger
}

func NewProgressHandler(tracker *services.ProgressTracker, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{tracker: tracker, logger: logger}
}

// ProgressRouter registers progress routes on the given router. Every route
// requires authentication.
func ProgressRouter(
	r chi.Router,
	tracker *services.ProgressTracker,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProgressHandler(tracker, logger)

	r.Use(authMiddleware)
	r.Get("/me", handler.MyProgress)
	r.Post("/me/days/{day}/tasks", handler.RecordTask)
	r.Post("/me/days/{day}/quizzes", handler.RecordQuiz)
	r.Post("/me/advance", handler.AdvanceDay)
	r.Get("/{traineeID}", handler.TraineeProgress)
}

// MentorRouter registers supervision routes on the given router.
func MentorRouter(
	r chi.Router,
	tracker *services.ProgressTracker,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProgressHandler(tracker, logger)

	r.With(authMiddleware).Get("/trainees", handler.ListTrainees)
}

func (h *ProgressHandler) MyProgress(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := h.tracker.GetProgress(r.Context(), identity, identity.UserID)
	if err != nil {
		writeServiceError(h.logger, w, r, "get progress", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ProgressHandler) TraineeProgress(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	traineeID, err := parseIDParam(r, "traineeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trainee id")
		return
	}

	report, err := h.tracker.GetProgress(r.Context(), identity, traineeID)
	if err != nil {
		writeServiceError(h.logger, w, r, "get progress", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ProgressHandler) RecordTask(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	day, err := parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RecordTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.tracker.RecordTask(r.Context(), identity, identity.UserID, day, req.TaskID)
	if err != nil {
		writeServiceError(h.logger, w, r, "record task", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) RecordQuiz(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	day, err := parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RecordQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}
	p, err := h.tracker.RecordQuiz(r.Context(), identity, identity.UserID, day, types.QuizSlot(req.Slot), *req.Score)
	if err != nil {
		writeServiceError(h.logger, w, r, "record quiz", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProgressHandler) AdvanceDay(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.tracker.AdvanceDay(r.Context(), identity, identity.UserID)
	if err != nil {
		writeServiceError(h.logger, w, r, "advance day", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *ProgressHandler) ListTrainees(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var mentorID *int
	if raw := strings.TrimSpace(r.URL.Query().Get("mentorId")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "invalid mentor id")
			return
		}
		mentorID = &id
	}

	summaries, err := h.tracker.ListTrainees(r.Context(), identity, mentorID)
	if err != nil {
		writeServiceError(h.logger, w, r, "list trainees", err)
		return
	}

	writeJSON(w, http.StatusOK, TraineeListResponse{Items: summaries})
}

type RecordTaskRequest struct {
	TaskID string `json:"taskId"`
}

type RecordQuizRequest struct {
	Slot  string `json:"slot"`
	Score *int   `json:"score"`
}

type TraineeListResponse struct {
	Items []types.TraineeSummary `json:"items"`
}

// parseDay accepts any integer; range checks belong to the services.
func parseDay(r *http.Request) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "day")))
	if err != nil {
		return 0, errors.New("invalid day")
	}
	return day, nil
}
