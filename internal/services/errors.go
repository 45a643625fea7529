package services

import "errors"

var (
	// ErrUnauthorized is the single outcome for every bearer-token problem:
	// invalid or expired token, missing subject, or unknown user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownUser is returned when a user id no longer resolves.
	ErrUnknownUser = errors.New("user not found")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFeatureUnavailable is returned when the user's tier does not
	// include the requested feature.
	ErrFeatureUnavailable = errors.New("feature not available for tier")
)
