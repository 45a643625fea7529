package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tailored-api/apiserver/internal/mq"
	"github.com/tailored-api/apiserver/types"
)

// Attribute keys set on every published account event.
const (
	AttrEventType = "event_type"
	AttrUserID    = "user_id"
)

// Broker is the subset of mq.MQ used for publishing.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Publisher emits account events as JSON on a single channel. A Publisher
// without a broker drops every event.
type Publisher struct {
	broker  Broker
	channel string
	now     func() time.Time
}

func NewPublisher(broker Broker, channel string) *Publisher {
	return &Publisher{broker: broker, channel: channel, now: time.Now}
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.broker != nil
}

// SignedUp publishes an account.signed_up event for user.
func (p *Publisher) SignedUp(ctx context.Context, user types.User) error {
	return p.Publish(ctx, p.event(types.AccountSignedUp, user))
}

// PlanChanged publishes an account.plan_changed event for user.
func (p *Publisher) PlanChanged(ctx context.Context, user types.User) error {
	return p.Publish(ctx, p.event(types.AccountPlanChanged, user))
}

// Publish encodes event and sends it to the configured channel.
func (p *Publisher) Publish(ctx context.Context, event types.AccountEvent) error {
	if !p.Enabled() {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		AttrEventType:      string(event.Type),
		AttrUserID:         event.UserID,
		mq.AttrContentType: "application/json",
	}
	if _, err := p.broker.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) event(kind types.AccountEventType, user types.User) types.AccountEvent {
	now := time.Now
	if p != nil && p.now != nil {
		now = p.now
	}
	return types.AccountEvent{
		Type:       kind,
		UserID:     user.ID,
		Tier:       user.Tier,
		OccurredAt: now().UTC(),
	}
}
