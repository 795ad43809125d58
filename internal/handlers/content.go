package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
)

// ContentHandler serves per-day curriculum content.
type ContentHandler struct {
	content *services.ContentService
	logger  *slog.Logger
}

func NewContentHandler(content *services.ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{content: content, logger: logger}
}

// ContentRouter registers content routes on the given router.
func ContentRouter(
	r chi.Router,
	content *services.ContentService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewContentHandler(content, logger)

	r.With(authMiddleware).Get("/day/{day}", handler.GetDay)
	r.With(authMiddleware).Put("/day/{day}", handler.PutDay)
	r.With(authMiddleware).Delete("/day/{day}", handler.DeleteDay)
}

func (h *ContentHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.content.DayContent(r.Context(), day)
	if err != nil {
		writeServiceError(h.logger, w, r, "get content", err)
		return
	}

	writeJSON(w, http.StatusOK, ContentResponse{Day: day, Content: doc})
}

func (h *ContentHandler) PutDay(w http.ResponseWriter, r *http.Request) {
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

	// One extra byte lets the service reject oversized documents.
	data, err := io.ReadAll(io.LimitReader(r.Body, services.MaxDayContentBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.content.PutDayContent(r.Context(), identity, day, data); err != nil {
		writeServiceError(h.logger, w, r, "put content", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
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

	if err := h.content.DeleteDayContent(r.Context(), identity, day); err != nil {
		writeServiceError(h.logger, w, r, "delete content", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ContentResponse struct {
	Day     int             `json:"day"`
	Content json.RawMessage `json:"content"`
}
