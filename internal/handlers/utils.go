package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tailored-api/apiserver/internal/services"
	"github.com/tailored-api/apiserver/internal/store"
	"github.com/tailored-api/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// userFromContext returns the user stored by RequireSession.
func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok && user.ID != ""
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "could not validate credentials")
}

// writeServiceError maps domain errors to HTTP responses. Unrecognised
// errors become a 500 with fallback as the message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "email already registered")
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, types.ErrInvalidTier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		writeUnauthorized(w)
	case errors.Is(err, services.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrFeatureUnavailable):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// errorIsClient reports whether err maps to a 4xx response.
func errorIsClient(err error) bool {
	for _, target := range []error{
		store.ErrDuplicateEmail,
		store.ErrInvalidCredentials,
		services.ErrInvalidInput,
		services.ErrUnauthorized,
		services.ErrUnknownUser,
		services.ErrFeatureUnavailable,
		types.ErrInvalidTier,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
