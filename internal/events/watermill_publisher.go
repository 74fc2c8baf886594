package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Metadata keys set on every outgoing message
const (
	MetadataEventType = "event_type"
	MetadataSource    = "source"
)

// WatermillPublisher publishes JSON-encoded events to a single topic
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewKafkaEventPublisher publishes to Kafka through watermill-kafka
func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

// NewInProcessEventPublisher keeps events inside the process. It is used
// when no broker is configured; Subscribe exposes the stream to consumers.
func NewInProcessEventPublisher(topic string, logger *slog.Logger) *InProcessPublisher {
	channel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	return &InProcessPublisher{
		WatermillPublisher: WatermillPublisher{
			publisher: channel,
			topic:     topic,
			logger:    logger,
		},
		channel: channel,
	}
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(MetadataEventType, event.Type)
	msg.Metadata.Set(MetadataSource, event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// InProcessPublisher is a WatermillPublisher over a go channel pub/sub
type InProcessPublisher struct {
	WatermillPublisher
	channel *gochannel.GoChannel
}

// Subscribe returns the messages published after the call
func (p *InProcessPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, p.topic)
}

// DecodeEvent unmarshals a message payload into the envelope; Data stays generic
func DecodeEvent(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &event, nil
}
