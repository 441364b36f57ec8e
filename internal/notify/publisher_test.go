package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type mockWriter struct {
	m        sync.Mutex
	messages []kafkaGo.Message
	calls    int
	err      error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error { return nil }

func TestProductChanged_WritesEvent(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w, zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	require.NoError(t, p.ProductChanged(context.Background(), "polo-shirt", "review"))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "polo-shirt", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventProductChanged, string(msg.Headers[0].Value))

	var event ProductInvalidation
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, ProductInvalidation{
		EventType:  EventProductChanged,
		Slug:       "polo-shirt",
		Path:       "/product/polo-shirt",
		Reason:     "review",
		OccurredAt: fixed,
	}, event)
}

func TestProductChanged_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	p := newPublisher(w, zerolog.Nop())

	err := p.ProductChanged(context.Background(), "polo-shirt", "cart")
	require.ErrorContains(t, err, "broker down")
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestProductChanged_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	p := newPublisher(w, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < breakerFailures; i++ {
		require.Error(t, p.ProductChanged(ctx, "polo-shirt", "cart"))
	}

	err := p.ProductChanged(ctx, "polo-shirt", "cart")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, breakerFailures, w.calls, "open breaker must not reach the writer")
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPublisher_PublishesToKafka(t *testing.T) {
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	const topic = "storefront.product-invalidations"
	createTopic(t, brokerAddr, topic)

	// Give Kafka time to fully initialize the topic
	time.Sleep(5 * time.Second)

	p := NewPublisher(topic, zerolog.Nop(), brokerAddr)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, p.ProductChanged(ctx, "polo-shirt", "review"))

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "polo-shirt", string(msg.Key))

	var event ProductInvalidation
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "/product/polo-shirt", event.Path)
	assert.Equal(t, "review", event.Reason)
}
