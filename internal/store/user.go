package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-api/apiserver/types"
)

// Hasher derives and checks credential hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// UserRepository is the process-wide in-memory user table. It owns password
// hashing so plaintext passwords never leave Create and VerifyCredentials.
type UserRepository struct {
	hasher Hasher
	now    func() time.Time
	newID  func() string

	mu      sync.RWMutex
	byID    map[string]*types.User
	byEmail map[string]string

	decoyOnce sync.Once
	decoy     string
}

// Option configures a UserRepository.
type Option func(*UserRepository)

// WithClock overrides the time source used for audit timestamps.
func WithClock(fn func() time.Time) Option {
	return func(r *UserRepository) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithIDGenerator overrides how user ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(r *UserRepository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func NewUserRepository(hasher Hasher, opts ...Option) *UserRepository {
	r := &UserRepository{
		hasher:  hasher,
		now:     time.Now,
		newID:   uuid.NewString,
		byID:    make(map[string]*types.User),
		byEmail: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user. An empty tier defaults to free. Two concurrent
// calls for the same normalized email never both succeed.
func (r *UserRepository) Create(ctx context.Context, email, password string, tier types.Tier) (types.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return types.User{}, errors.New("email is required")
	}
	if tier == "" {
		tier = types.TierFree
	}
	if !tier.Valid() {
		return types.User{}, types.ErrInvalidTier
	}

	// Skip the slow hash for an obvious conflict. The check is repeated under
	// the write lock below.
	r.mu.RLock()
	_, taken := r.byEmail[email]
	r.mu.RUnlock()
	if taken {
		return types.User{}, ErrDuplicateEmail
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return types.User{}, err
	}

	now := r.now().UTC()
	user := &types.User{
		ID:             r.newID(),
		Email:          email,
		Tier:           tier,
		CredentialHash: hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return types.User{}, ErrDuplicateEmail
	}
	if _, exists := r.byID[user.ID]; exists {
		return types.User{}, errors.New("generated user id collides with an existing user")
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return *user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return *user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	email = NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return *r.byID[id], nil
}

// VerifyCredentials returns the user when password matches. An unknown email
// still pays for a hash comparison and yields the same ErrInvalidCredentials
// as a wrong password.
func (r *UserRepository) VerifyCredentials(ctx context.Context, email, password string) (types.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		r.hasher.Verify(password, r.decoyHash())
		return types.User{}, ErrInvalidCredentials
	}
	if !r.hasher.Verify(password, user.CredentialHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// SetTier changes the tier of an existing user in place.
func (r *UserRepository) SetTier(ctx context.Context, id string, tier types.Tier) (types.User, error) {
	if !tier.Valid() {
		return types.User{}, types.ErrInvalidTier
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	user.Tier = tier
	user.UpdatedAt = r.now().UTC()
	return *user, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) decoyHash() string {
	r.decoyOnce.Do(func() {
		r.decoy, _ = r.hasher.Hash(uuid.NewString())
	})
	return r.decoy
}
