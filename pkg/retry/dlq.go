package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DLQMessage is a message parked after it could not be processed
type DLQMessage struct {
	ID string `json:"id"`
	// OriginalTopic is the topic or queue the message was consumed from
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key,omitempty"`
	// Payload is the original body. Bodies that are not JSON are kept as a JSON string.
	Payload      json.RawMessage   `json:"payload"`
	Headers      map[string]string `json:"headers,omitempty"`
	Error        string            `json:"error"`
	ErrorCode    string            `json:"error_code,omitempty"`
	MovedToDLQAt time.Time         `json:"moved_to_dlq_at"`
	Source       string            `json:"source"`
}

// DLQPublisher publishes failed messages to a dead letter queue
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
	// GetDLQTopic returns the dead letter destination for originalTopic
	GetDLQTopic(originalTopic string) string
}

// DLQConfig contains configuration for DLQ publishing
type DLQConfig struct {
	// TopicSuffix is appended to the original topic (default: ".dlq")
	TopicSuffix string
	// Source names the service that parked the message
	Source string
}

// DefaultDLQConfig returns default DLQ configuration
func DefaultDLQConfig() *DLQConfig {
	return &DLQConfig{
		TopicSuffix: ".dlq",
		Source:      "unknown",
	}
}

// MessageWriter writes an encoded message to a named topic or queue
type MessageWriter interface {
	WriteMessage(ctx context.Context, destination, key string, body []byte, headers map[string]string) error
}

// BrokerDLQPublisher publishes dead letters through a broker writer
type BrokerDLQPublisher struct {
	writer MessageWriter
	config *DLQConfig
}

// NewBrokerDLQPublisher creates a DLQ publisher writing through writer
func NewBrokerDLQPublisher(writer MessageWriter, config *DLQConfig) *BrokerDLQPublisher {
	def := DefaultDLQConfig()
	if config == nil {
		config = def
	}
	c := *config
	if c.TopicSuffix == "" {
		c.TopicSuffix = def.TopicSuffix
	}
	if c.Source == "" {
		c.Source = def.Source
	}
	return &BrokerDLQPublisher{writer: writer, config: &c}
}

// PublishToDLQ publishes a message to the dead letter queue
func (p *BrokerDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return errors.New("DLQ message cannot be nil")
	}

	msg.MovedToDLQAt = time.Now().UTC()
	msg.Source = p.config.Source

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	headers := map[string]string{
		"content_type":    "application/json",
		"original_topic":  msg.OriginalTopic,
		"error":           msg.Error,
		"moved_to_dlq_at": msg.MovedToDLQAt.Format(time.RFC3339),
		"source":          msg.Source,
	}
	if msg.ErrorCode != "" {
		headers["error_code"] = msg.ErrorCode
	}
	for k, v := range msg.Headers {
		if _, exists := headers[k]; !exists {
			headers["original_"+k] = v
		}
	}

	return p.writer.WriteMessage(ctx, p.GetDLQTopic(msg.OriginalTopic), msg.OriginalKey, body, headers)
}

func (p *BrokerDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + p.config.TopicSuffix
}

// RawPayload returns body as JSON, quoting it when it is not valid JSON
func RawPayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
