package auth

import "errors"

var (
	// ErrInvalidToken is the only failure Validate reports. Expired, tampered
	// and malformed tokens are deliberately indistinguishable.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfiguration indicates the token service cannot operate, e.g. the
	// signing secret is missing.
	ErrConfiguration = errors.New("auth: configuration error")
)
