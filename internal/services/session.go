package services

import (
	"context"
	"strings"

	"github.com/tailored-api/apiserver/internal/auth"
	"github.com/tailored-api/apiserver/types"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserReader loads users by id.
type UserReader interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// SessionResolver turns a bearer token into the current user record.
//
// The returned user is always read from the store, so tier changes made
// after the token was issued are visible immediately. The token's tier
// claim is never used for entitlement.
type SessionResolver struct {
	tokens TokenValidator
	users  UserReader
}

func NewSessionResolver(tokens TokenValidator, users UserReader) *SessionResolver {
	return &SessionResolver{tokens: tokens, users: users}
}

// Resolve returns ErrUnauthorized when the token is invalid, carries no
// subject, or names a user that does not exist.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (types.User, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return types.User{}, ErrUnauthorized
	}
	user, err := r.users.GetByID(ctx, subject)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	return user, nil
}
