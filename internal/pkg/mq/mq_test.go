package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/config"
)

func TestNew(t *testing.T) {
	b, err := New(context.Background(), &config.QueueConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = New(context.Background(), &config.QueueConfig{Enabled: true, Backend: "kafka"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.QueueConfig{Enabled: true, Backend: BackendRabbitMQ})
	assert.EqualError(t, err, "rabbitmq url is required")

	_, err = New(context.Background(), &config.QueueConfig{Enabled: true, Backend: BackendPubSub})
	assert.EqualError(t, err, "pubsub project id is required")

	b, err = New(context.Background(), &config.QueueConfig{Enabled: true, Backend: BackendMemory})
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewMemoryBroker(8)
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := broker.Publish(ctx, "parse", []byte(`{"a":1}`), map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got := make(chan Message, 1)
	go func() {
		_ = broker.Subscribe(ctx, "parse", func(ctx context.Context, msg Message) error {
			got <- msg
			return nil
		})
	}()

	select {
	case msg := <-got:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, `{"a":1}`, string(msg.Data))
		assert.Equal(t, "v", msg.Attributes["k"])
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestMemoryBroker_Redelivery(t *testing.T) {
	broker := NewMemoryBroker(8)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	go func() {
		_ = broker.Subscribe(ctx, "parse", func(ctx context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == maxMemoryAttempts {
				close(done)
			}
			return errors.New("boom")
		})
	}()

	_, err := broker.Publish(ctx, "parse", []byte("x"), nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message not redelivered")
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, maxMemoryAttempts, attempts)
	mu.Unlock()
}

func TestMemoryBroker_Closed(t *testing.T) {
	broker := NewMemoryBroker(1)
	require.NoError(t, broker.Close())
	require.NoError(t, broker.Close())

	_, err := broker.Publish(context.Background(), "parse", nil, nil)
	assert.ErrorIs(t, err, ErrBrokerClosed)
	err = broker.Subscribe(context.Background(), "parse", func(context.Context, Message) error { return nil })
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
