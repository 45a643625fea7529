package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/tailored-api/apiserver/internal/store"
	"github.com/tailored-api/apiserver/types"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// UserRepository defines the credential store operations used by services.
type UserRepository interface {
	Create(ctx context.Context, email, password string, tier types.Tier) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (types.User, error)
	SetTier(ctx context.Context, id string, tier types.Tier) (types.User, error)
}

// TokenIssuer signs bearer tokens for users.
type TokenIssuer interface {
	Issue(user types.User) (string, error)
}

// SignupInput is the raw signup request. An empty Tier means free.
type SignupInput struct {
	Email    string
	Password string
	Tier     string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string
	User  types.User
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo   UserRepository
	tokens TokenIssuer
}

func NewUserService(repo UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// Signup validates input, creates the user and issues a token.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if len(in.Password) < MinPasswordLength {
		return AuthResult{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	tier := types.TierFree
	if strings.TrimSpace(in.Tier) != "" {
		tier, err = types.ParseTier(in.Tier)
		if err != nil {
			return AuthResult{}, err
		}
	}

	user, err := s.repo.Create(ctx, email, in.Password, tier)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(user)
}

// Login verifies credentials and issues a token. Unknown emails, blank
// fields and wrong passwords all go through the store's hash comparison and
// yield store.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.repo.VerifyCredentials(ctx, email, password)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(user)
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateTier parses rawTier and moves the user onto it.
func (s *UserService) UpdateTier(ctx context.Context, userID, rawTier string) (types.User, error) {
	tier, err := types.ParseTier(rawTier)
	if err != nil {
		return types.User{}, err
	}
	user, err := s.repo.SetTier(ctx, userID, tier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnknownUser
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) issue(user types.User) (AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := store.NormalizeEmail(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return email, nil
}
