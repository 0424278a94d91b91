package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestHeaders(t *testing.T) {
	r := &Record{Headers: []kgo.RecordHeader{
		{Key: "event_type", Value: []byte("queue.joined")},
		{Key: "traceparent", Value: []byte("00-abc-def-01")},
	}}

	assert.Equal(t, "queue.joined", HeaderValue(r, "event_type"))
	assert.Equal(t, "", HeaderValue(r, "missing"))
	assert.Equal(t, map[string]string{
		"event_type":  "queue.joined",
		"traceparent": "00-abc-def-01",
	}, Headers(r))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{})
	assert.Error(t, err)

	_, err = NewProducer(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewConsumer_RequiresGroupAndTopics(t *testing.T) {
	_, err := NewConsumer(context.Background(), &ConsumerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
