package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
)

// UserHandler provides account endpoints.
type UserHandler struct {
	userService *services.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService *services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// AdminRouter registers account administration routes on the given router.
func AdminRouter(
	r chi.Router,
	userService *services.UserService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, logger)

	r.Use(authMiddleware)
	r.Post("/users", handler.CreateUser)
	r.Put("/users/{userID}/mentor", handler.AssignMentor)
}

// UserRouter registers profile routes on the given router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, logger)

	r.With(authMiddleware).Get("/{userID}", handler.GetUser)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Create(r.Context(), identity, services.NewUser{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		Roles:        req.Roles,
		MentorID:     req.MentorID,
		ProgramStart: req.ProgramStart,
	})
	if err != nil {
		writeServiceError(h.logger, w, r, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) AssignMentor(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	traineeID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req AssignMentorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MentorID < 1 {
		writeError(w, http.StatusBadRequest, "mentorId is required")
		return
	}

	user, err := h.userService.AssignMentor(r.Context(), identity, traineeID, req.MentorID)
	if err != nil {
		writeServiceError(h.logger, w, r, "assign mentor", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.Profile(r.Context(), identity, userID)
	if err != nil {
		writeServiceError(h.logger, w, r, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type CreateUserRequest struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Password     string     `json:"password"`
	Roles        []string   `json:"roles"`
	MentorID     *int       `json:"mentorId"`
	ProgramStart *time.Time `json:"programStart"`
}

type AssignMentorRequest struct {
	MentorID int `json:"mentorId"`
}
