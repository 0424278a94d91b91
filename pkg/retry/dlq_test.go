package retry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedWrite struct {
	destination string
	key         string
	body        []byte
	headers     map[string]string
}

type captureWriter struct {
	writes []capturedWrite
	err    error
}

func (w *captureWriter) WriteMessage(ctx context.Context, destination, key string, body []byte, headers map[string]string) error {
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, capturedWrite{destination, key, body, headers})
	return nil
}

func TestBrokerDLQPublisher_PublishToDLQ(t *testing.T) {
	w := &captureWriter{}
	p := NewBrokerDLQPublisher(w, &DLQConfig{Source: "notification-worker"})

	err := p.PublishToDLQ(context.Background(), &DLQMessage{
		ID:            "n-1",
		OriginalTopic: "queue-notifications",
		OriginalKey:   "0811111111",
		Payload:       json.RawMessage(`{"id":"n-1"}`),
		Headers:       map[string]string{"notification_kind": "joined", "error": "spoofed"},
		Error:         "provider rejected",
		ErrorCode:     "DELIVERY_FAILED",
	})
	require.NoError(t, err)
	require.Len(t, w.writes, 1)

	got := w.writes[0]
	assert.Equal(t, "queue-notifications.dlq", got.destination)
	assert.Equal(t, "0811111111", got.key)
	assert.Equal(t, "provider rejected", got.headers["error"])
	assert.Equal(t, "DELIVERY_FAILED", got.headers["error_code"])
	assert.Equal(t, "joined", got.headers["original_notification_kind"])
	assert.Equal(t, "notification-worker", got.headers["source"])

	var decoded DLQMessage
	require.NoError(t, json.Unmarshal(got.body, &decoded))
	assert.Equal(t, "n-1", decoded.ID)
	assert.JSONEq(t, `{"id":"n-1"}`, string(decoded.Payload))
	assert.False(t, decoded.MovedToDLQAt.IsZero())
}

func TestBrokerDLQPublisher_Errors(t *testing.T) {
	boom := errors.New("broker down")
	p := NewBrokerDLQPublisher(&captureWriter{err: boom}, nil)

	assert.Error(t, p.PublishToDLQ(context.Background(), nil))
	assert.ErrorIs(t, p.PublishToDLQ(context.Background(), &DLQMessage{OriginalTopic: "q"}), boom)
	assert.Equal(t, "q.dlq", p.GetDLQTopic("q"))
}

func TestRawPayload(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(RawPayload([]byte(`{"a":1}`))))
	assert.Equal(t, `"not json"`, string(RawPayload([]byte("not json"))))
}
