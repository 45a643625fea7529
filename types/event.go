package types

import "time"

// AccountEventType identifies what happened to an account.
type AccountEventType string

const (
	AccountSignedUp    AccountEventType = "account.signed_up"
	AccountPlanChanged AccountEventType = "account.plan_changed"
)

// AccountEvent is published after account lifecycle changes.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     string           `json:"user_id"`
	Tier       Tier             `json:"package_tier"`
	OccurredAt time.Time        `json:"occurred_at"`
}
