package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by the memory backend after Close.
	ErrClosed = errors.New("mq: backend closed")

	// ErrSubscriberFull is reported when a message is dropped because a
	// subscriber's buffer is full.
	ErrSubscriberFull = errors.New("mq: subscriber buffer full")
)

const memoryBuffer = 64

// ErrorHandler receives messages the memory backend could not deliver:
// drops for a full subscriber buffer and handler failures after redelivery.
type ErrorHandler func(channel string, msg Message, err error)

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithErrorHandler sets the callback for undeliverable messages.
func WithErrorHandler(fn ErrorHandler) MemoryOption {
	return func(m *Memory) {
		if fn != nil {
			m.onError = fn
		}
	}
}

// Memory fans each published message out to every live subscriber of the
// channel. Publish never blocks: a subscriber whose buffer is full misses
// the message. Nothing is retained for subscribers that attach later.
type Memory struct {
	onError ErrorHandler

	mu     sync.Mutex
	subs   map[string][]*memorySub
	closed bool
	done   chan struct{}
}

type memorySub struct {
	ch chan Message
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		onError: func(string, Message, error) {},
		subs:    make(map[string][]*memorySub),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	subs := append([]*memorySub(nil), m.subs[channel]...)
	m.mu.Unlock()

	msg := Message{
		ID:         uuid.NewString(),
		Data:       append([]byte(nil), data...),
		Attributes: copyAttributes(attrs),
	}
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			m.onError(channel, msg, ErrSubscriberFull)
		}
	}
	return msg.ID, nil
}

// Subscribe blocks until ctx is done or the backend is closed. A handler
// error redelivers the message once; a second failure goes to the error
// handler and the message is dropped.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	sub := &memorySub{ch: make(chan Message, memoryBuffer)}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()
	defer m.unsubscribe(channel, sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		case msg := <-sub.ch:
			if err := handler(ctx, msg); err != nil {
				if err := handler(ctx, msg); err != nil {
					m.onError(channel, msg, err)
				}
			}
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.subs = make(map[string][]*memorySub)
	return nil
}

func (m *Memory) unsubscribe(channel string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[channel]
	for i, s := range subs {
		if s == sub {
			m.subs[channel] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[channel]) == 0 {
		delete(m.subs, channel)
	}
}

func copyAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
