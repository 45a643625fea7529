package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-api/apiserver/internal/services"
	"github.com/tailored-api/apiserver/types"
)

const tokenTypeBearer = "bearer"

// AccountEvents receives account lifecycle notifications.
type AccountEvents interface {
	SignedUp(ctx context.Context, user types.User) error
	PlanChanged(ctx context.Context, user types.User) error
}

// AuthHandler provides signup and login endpoints.
type AuthHandler struct {
	userService *services.UserService
	events      AccountEvents
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, events AccountEvents, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userService: userService,
		events:      events,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, events AccountEvents, logger *slog.Logger) {
	handler := NewAuthHandler(userService, events, logger)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
}

// Signup creates an account and returns a bearer token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.userService.Signup(r.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Tier:     req.Tier,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create user")
		return
	}

	if h.events != nil {
		if err := h.events.SignedUp(r.Context(), result.User); err != nil {
			h.logger.WarnContext(r.Context(), "publish account event failed",
				slog.String("user_id", result.User.ID),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: result.Token, TokenType: tokenTypeBearer})
}

// Login accepts JSON or form credentials and returns a bearer token. Form
// posts may name the email field "username".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := parseLoginRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: result.Token, TokenType: tokenTypeBearer})
}

func parseLoginRequest(r *http.Request) (LoginRequest, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(MaxRequestBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return LoginRequest{}, false
		}
		email := r.PostFormValue("email")
		if strings.TrimSpace(email) == "" {
			email = r.PostFormValue("username")
		}
		return LoginRequest{Email: email, Password: r.PostFormValue("password")}, true
	default:
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			return LoginRequest{}, false
		}
		return req, true
	}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Tier     string `json:"package_tier"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
