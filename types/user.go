package types

import "time"

// User represents an account in the system.
// It contains identity, subscription tier, and audit metadata.
type User struct {
	// ID is the unique identifier of the user. It never changes.
	ID string `json:"id"`

	// Email is the normalized (trimmed, lower-cased) login address.
	Email string `json:"email"`

	// Tier is the subscription package the user is currently on.
	Tier Tier `json:"package_tier"`

	// CredentialHash stores the salted, iterated hash of the user's password.
	// This field is never exposed in API responses.
	CredentialHash string `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the profile shape returned by the API.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Tier  Tier   `json:"package_tier"`
}

// Public strips credential and audit fields from the user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Tier: u.Tier}
}
