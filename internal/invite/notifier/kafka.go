package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier writes invite events as JSON to a Kafka topic, keyed by invite id.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier returns a notifier writing to topic. It returns nil when brokers or topic are
// empty; callers fall back to Nop. Call Close when shutting down.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

// InviteCreated serializes the event and writes it with a short timeout so a slow broker does not
// hold the caller.
func (n *KafkaNotifier) InviteCreated(ctx context.Context, ev InviteCreated) error {
	if n == nil || n.writer == nil {
		return nil
	}
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(ev.InviteID), Value: payload})
}

// Close closes the Kafka writer. Safe to call multiple times.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.writer == nil {
		return nil
	}
	return n.writer.Close()
}

func encode(ev InviteCreated) ([]byte, error) {
	ev.Type = EventInviteCreated
	return json.Marshal(ev)
}
