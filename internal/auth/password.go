package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultHashIterations is also the floor: weaker settings are raised to it.
	DefaultHashIterations = 100_000

	hashScheme = "pbkdf2-sha256"
	saltLength = 16
	keyLength  = 32
)

// PasswordHasher derives salted PBKDF2-HMAC-SHA256 credential hashes.
//
// Encoded hashes look like:
//
//	pbkdf2-sha256$100000$<base64 salt>$<base64 key>
//
// The iteration count travels with the hash so verification keeps working
// if the configured count is raised later.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher using the given iteration count.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations < DefaultHashIterations {
		iterations = DefaultHashIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Iterations returns the effective iteration count for new hashes.
func (h *PasswordHasher) Iterations() int {
	return h.iterations
}

// Hash derives an encoded credential hash from password and a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, keyLength, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		h.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of password with the stored salt and compares
// it in constant time. Malformed encodings never verify.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	iterations, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(expected, computed) == 1
}

func decodeHash(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return 0, nil, nil, errors.New("invalid hash format")
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return 0, nil, nil, errors.New("invalid hash iterations")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("decode hash: %w", err)
	}
	if len(salt) == 0 || len(key) == 0 {
		return 0, nil, nil, errors.New("invalid hash format")
	}
	return iterations, salt, key, nil
}
