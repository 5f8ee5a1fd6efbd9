package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/screwyprof/stakecheck/checker"
)

// Message metadata keys set on every published snapshot
const (
	MetadataExecutedAt = "executed_at"
	MetadataValidators = "validators"
)

// StreamNotifier publishes each snapshot as JSON to a message topic,
// for consumers that want the data rather than the chat text
type StreamNotifier struct {
	pub   message.Publisher
	topic string
}

// NewStreamNotifier publishes to topic through pub
func NewStreamNotifier(pub message.Publisher, topic string) *StreamNotifier {
	return &StreamNotifier{pub: pub, topic: topic}
}

// NewRedisStreamPublisher creates a watermill publisher writing to Redis streams
func NewRedisStreamPublisher(client redis.UniversalClient, log *slog.Logger) (message.Publisher, error) {
	return redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewSlogLogger(log),
	)
}

func (s *StreamNotifier) Send(ctx context.Context, snapshot checker.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataExecutedAt, snapshot.ExecutedAt.UTC().Format(time.RFC3339Nano))
	msg.Metadata.Set(MetadataValidators, fmt.Sprint(len(snapshot.Data)))

	if err := s.pub.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", s.topic, err)
	}
	return nil
}

// Close closes the underlying publisher
func (s *StreamNotifier) Close() error {
	return s.pub.Close()
}
