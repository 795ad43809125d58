package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

// AuthHandler provides session endpoints.
type AuthHandler struct {
	issuer      *services.SessionIssuer
	userService *services.UserService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(issuer *services.SessionIssuer, userService *services.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		issuer:      issuer,
		userService: userService,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, issuer *services.SessionIssuer, userService *services.UserService, logger *slog.Logger) {
	handler := NewAuthHandler(issuer, userService, logger)
	authMiddleware := RequireAuth(issuer, logger)

	r.Post("/login", handler.Login)
	r.With(authMiddleware).Post("/logout", handler.Logout)
	r.With(authMiddleware).Get("/me", handler.Me)
	r.With(authMiddleware).Post("/password", handler.ChangePassword)
}

// RequireAuth verifies the bearer token and injects the caller's identity
// into the request context.
func RequireAuth(issuer *services.SessionIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeServiceError(logger, w, r, "verify session", fmt.Errorf("%w: %v", services.ErrUnauthenticated, err))
				return
			}

			// Verify errors never carry the token itself.
			identity, err := issuer.Verify(r.Context(), tokenString)
			if err != nil {
				writeServiceError(logger, w, r, "verify session", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	session, user, err := h.issuer.Issue(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(h.logger, w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.issuer.Revoke(r.Context(), tokenString); err != nil {
		writeServiceError(h.logger, w, r, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeServiceError(h.logger, w, r, "load profile", err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

// ChangePassword replaces the caller's password and ends every session.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.issuer.ChangePassword(r.Context(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(h.logger, w, r, "change password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type MeResponse struct {
	User types.User `json:"user"`
}

type AuthResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      types.User `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
