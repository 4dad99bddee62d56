// Package kafka publishes officer notifications to the officer feed topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// OfficerNotifier writes one message per notification, keyed by ticket code
// so a ticket's notifications stay ordered within a partition.
type OfficerNotifier struct {
	writer *kafka.Writer
	topic  string
}

type message struct {
	ID           string              `json:"id"`
	Notification domain.Notification `json:"notification"`
	PublishedAt  time.Time           `json:"published_at"`
}

// NewOfficerNotifier builds a publisher for the given brokers and topic.
func NewOfficerNotifier(brokers []string, topic string) (*OfficerNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka notifier requires a topic")
	}
	return &OfficerNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topic: topic,
	}, nil
}

func (n *OfficerNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	now := time.Now().UTC()
	payload, err := json.Marshal(message{ID: uuid.NewString(), Notification: msg, PublishedAt: now})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(msg.TicketCode),
		Value: payload,
		Time:  now,
	})
}

// Close flushes and closes the writer.
func (n *OfficerNotifier) Close() error {
	return n.writer.Close()
}
