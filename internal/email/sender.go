package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
)

// Sender delivers a single HTML email
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EventSender hands emails to the mail worker through the event bus
type EventSender struct {
	publisher events.EventPublisher
	from      string
	logger    *slog.Logger
}

func NewEventSender(publisher events.EventPublisher, from string, logger *slog.Logger) *EventSender {
	return &EventSender{
		publisher: publisher,
		from:      from,
		logger:    logger,
	}
}

func (s *EventSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	event := events.NewEvent(events.EmailRequested, events.EmailRequestedEvent{
		From:     s.from,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to queue email to %s: %w", to, err)
	}
	s.logger.Info("Email queued", "to", to, "subject", subject, "event_id", event.ID)
	return nil
}

// LogSender only logs; used in development
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.InfoContext(ctx, "Email (not delivered)", "to", to, "subject", subject, "body_length", len(htmlBody))
	return nil
}
