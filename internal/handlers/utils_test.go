package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sarf14/onboarding-tool-sub001/internal/services"
	"github.com/sarf14/onboarding-tool-sub001/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrInvalidScore, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrSequenceViolation, http.StatusConflict},
		{services.ErrConflict, http.StatusConflict},
		{services.ErrTraineeNotReady, http.StatusConflict},
		{services.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("%w: detail", tt.err)
		status, message := statusFor(wrapped)
		assert.Equal(t, tt.status, status, "error %v", tt.err)
		assert.NotEmpty(t, message)
	}
}

func TestStatusForHidesInternalDetail(t *testing.T) {
	_, message := statusFor(fmt.Errorf("%w: dial tcp 10.0.0.5:5432", services.ErrStorageUnavailable))
	assert.NotContains(t, message, "10.0.0.5")

	_, message = statusFor(fmt.Errorf("%w: progress/7", services.ErrForbidden))
	assert.Equal(t, "forbidden", message)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc ", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, err := bearerToken(r)
		if !tt.ok {
			assert.Error(t, err, "header %q", tt.header)
			continue
		}
		require.NoError(t, err, "header %q", tt.header)
		assert.Equal(t, tt.token, token)
	}
}

func TestIdentityFromContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := identityFromContext(r.Context())
	assert.Error(t, err)

	want := types.Identity{UserID: 3, Roles: types.NewRoleSet(types.RoleMentor)}
	got, err := identityFromContext(withIdentity(r.Context(), want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
