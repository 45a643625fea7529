package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-api/apiserver/config"
)

// subscribe starts a subscriber and waits until it is registered.
func subscribe(t *testing.T, m *Memory, channel string, handler Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Subscribe(ctx, channel, handler) }()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.subs[channel]) > 0
	}, time.Second, 5*time.Millisecond)
	return cancel, done
}

func TestMemoryFanOut(t *testing.T) {
	m := New(NewMemory())
	backend := m.backend.(*Memory)

	var mu sync.Mutex
	var got []Message
	cancel, done := subscribe(t, backend, "account-events", func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		return nil
	})

	id, err := m.Publish(context.Background(), "account-events", []byte(`{"a":1}`), map[string]string{"type": "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = m.Publish(context.Background(), "other", []byte("ignored"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, `{"a":1}`, string(got[0].Data))
	assert.Equal(t, "x", got[0].Attributes["type"])
	mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type failure struct {
	channel string
	msg     Message
	err     error
}

func TestMemoryRetriesOnceThenReports(t *testing.T) {
	failures := make(chan failure, 4)
	m := NewMemory(WithErrorHandler(func(channel string, msg Message, err error) {
		failures <- failure{channel: channel, msg: msg, err: err}
	}))
	boom := errors.New("boom")
	calls := make(chan struct{}, 4)
	cancel, _ := subscribe(t, m, "c", func(ctx context.Context, msg Message) error {
		calls <- struct{}{}
		return boom
	})
	defer cancel()

	id, err := m.Publish(context.Background(), "c", []byte("x"), nil)
	require.NoError(t, err)

	var got failure
	select {
	case got = <-failures:
	case <-time.After(time.Second):
		t.Fatalf("handler failure was not reported")
	}
	assert.Equal(t, "c", got.channel)
	assert.Equal(t, id, got.msg.ID)
	assert.ErrorIs(t, got.err, boom)
	assert.Len(t, calls, 2)
}

func TestMemorySlowSubscriberDoesNotBlockPublishers(t *testing.T) {
	var mu sync.Mutex
	dropped := 0
	m := NewMemory(WithErrorHandler(func(channel string, msg Message, err error) {
		if errors.Is(err, ErrSubscriberFull) {
			mu.Lock()
			dropped++
			mu.Unlock()
		}
	}))
	defer m.Close()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	cancel, done := subscribe(t, m, "a", func(ctx context.Context, msg Message) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < memoryBuffer+10; i++ {
			_, _ = m.Publish(context.Background(), "a", []byte("x"), nil)
		}
		_, _ = m.Publish(context.Background(), "b", []byte("y"), nil)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked behind a stalled subscriber")
	}
	<-entered

	mu.Lock()
	assert.Positive(t, dropped)
	mu.Unlock()

	cancel()
	close(release)
	assert.ErrorIs(t, <-done, context.Canceled)
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.subs["a"]) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryHandlerMayPublish(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	echoed := make(chan Message, 1)
	cancelEcho, _ := subscribe(t, m, "echo", func(ctx context.Context, msg Message) error {
		echoed <- msg
		return nil
	})
	defer cancelEcho()
	cancelIn, _ := subscribe(t, m, "in", func(ctx context.Context, msg Message) error {
		_, err := m.Publish(ctx, "echo", msg.Data, nil)
		return err
	})
	defer cancelIn()

	_, err := m.Publish(context.Background(), "in", []byte("ping"), nil)
	require.NoError(t, err)

	select {
	case msg := <-echoed:
		assert.Equal(t, "ping", string(msg.Data))
	case <-time.After(time.Second):
		t.Fatalf("message published from a handler was not delivered")
	}
}

func TestMemoryClose(t *testing.T) {
	m := NewMemory()
	_, done := subscribe(t, m, "c", func(ctx context.Context, msg Message) error { return nil })

	require.NoError(t, m.Close())
	assert.ErrorIs(t, <-done, ErrClosed)
	require.NoError(t, m.Close())

	_, err := m.Publish(context.Background(), "c", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryRequiresChannel(t *testing.T) {
	m := NewMemory()
	_, err := m.Publish(context.Background(), " ", nil, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	q, err := Open(ctx, config.MQConfig{Backend: config.MQBackendNone})
	require.NoError(t, err)
	assert.Nil(t, q)

	q, err = Open(ctx, config.MQConfig{Backend: "MEMORY"})
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NoError(t, q.Close())

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(ctx, config.MQConfig{Backend: config.MQBackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil, ""))

	attrs := headersToAttributes(amqp.Table{
		"type":  "account.signed_up",
		"raw":   []byte("bytes"),
		"count": int32(3),
	}, "application/json")
	assert.Equal(t, map[string]string{
		AttrContentType: "application/json",
		"type":          "account.signed_up",
		"raw":           "bytes",
		"count":         "3",
	}, attrs)
}
