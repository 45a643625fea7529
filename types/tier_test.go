package types

import (
	"errors"
	"testing"
)

func TestParseTier(t *testing.T) {
	t.Parallel()

	cases := map[string]Tier{
		"free":           TierFree,
		"PRO":            TierPro,
		"  Enterprise ": TierEnterprise,
	}
	for raw, want := range cases {
		got, err := ParseTier(raw)
		if err != nil {
			t.Fatalf("ParseTier(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseTier(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"", "gold", "pro plus"} {
		if _, err := ParseTier(raw); !errors.Is(err, ErrInvalidTier) {
			t.Fatalf("ParseTier(%q): expected ErrInvalidTier, got %v", raw, err)
		}
	}
}

func TestTierOrFree(t *testing.T) {
	t.Parallel()

	if got := Tier("").OrFree(); got != TierFree {
		t.Fatalf("empty tier: got %q", got)
	}
	if got := Tier("platinum").OrFree(); got != TierFree {
		t.Fatalf("unknown tier: got %q", got)
	}
	if got := TierPro.OrFree(); got != TierPro {
		t.Fatalf("pro tier: got %q", got)
	}
}
