// Package kafka publishes audit events to a Kafka topic. Events are
// write-only here; querying happens against whatever consumes the topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	id "concierge/pkg/domain"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/sentinel"
)

// Sink implements audit.Store over a Kafka producer.
type Sink struct {
	client *kgo.Client
}

// New connects a producer to the given brokers and topic.
func New(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Sink{client: client}, nil
}

// payload is the JSON shape written to the topic.
type payload struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Append produces one record per event, keyed by user so per-user ordering
// is preserved within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	p := payload{
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Reason:    event.Reason,
		DeviceID:  event.DeviceID,
		ClientIP:  event.ClientIP,
		RequestID: event.RequestID,
	}
	if !event.UserID.IsZero() {
		p.UserID = event.UserID.String()
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(p.UserID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByUser is not supported on the Kafka sink.
func (s *Sink) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, sentinel.ErrUnavailable
}

// Close flushes and releases the producer.
func (s *Sink) Close() {
	s.client.Close()
}
