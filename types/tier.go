package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTier is returned when a tier string is not one of the known packages.
var ErrInvalidTier = errors.New("invalid tier")

// Tier is a subscription package controlling feature and content entitlement.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tiers lists every known tier from lowest to highest.
var Tiers = []Tier{TierFree, TierPro, TierEnterprise}

// ParseTier normalizes raw and returns the matching tier.
func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFree:
		return TierFree, nil
	case TierPro:
		return TierPro, nil
	case TierEnterprise:
		return TierEnterprise, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, raw)
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// OrFree returns t, or TierFree when t is unset or unknown.
func (t Tier) OrFree() Tier {
	if t.Valid() {
		return t
	}
	return TierFree
}

func (t Tier) String() string {
	return string(t)
}
