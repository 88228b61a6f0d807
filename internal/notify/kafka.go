package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes notification envelopes to a Kafka topic for a
// downstream delivery worker (email/SMS) to consume. Produce is asynchronous;
// a failed delivery is reported through the produce callback and otherwise
// dropped, matching the fire-and-forget contract.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// envelope is the wire form of one notification.
type envelope struct {
	Recipient string         `json:"recipient"`
	Template  TemplateKind   `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
	SentAt    time.Time      `json:"sent_at"`
}

// NewKafkaNotifier connects to the brokers and ensures the topic exists.
func NewKafkaNotifier(ctx context.Context, brokers []string, topic string) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, resp.Err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, recipient string, kind TemplateKind, data map[string]any) error {
	payload, err := json.Marshal(envelope{
		Recipient: recipient,
		Template:  kind,
		Data:      data,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	n.client.Produce(ctx, &kgo.Record{
		Key:   []byte(recipient),
		Value: payload,
		Topic: n.topic,
	}, nil)
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}
