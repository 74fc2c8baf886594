package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source identifies this service in every published event
const Source = "test-platform"

// Event types
const (
	TestPublished       = "test.published"
	TestClosed          = "test.closed"
	InviteIssued        = "invite.issued"
	AttemptStarted      = "attempt.started"
	AttemptSubmitted    = "attempt.submitted"
	SubscriptionChanged = "subscription.changed"
	EmailRequested      = "email.requested"
)

// Event is the envelope shared by every domain event
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    Source,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers events to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type TestStatusEvent struct {
	TestID  uint   `json:"test_id"`
	OwnerID string `json:"owner_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"` // "manual" or "schedule"
}

type InviteIssuedEvent struct {
	InviteID uint   `json:"invite_id"`
	TestID   uint   `json:"test_id"`
	Email    string `json:"email"`
	IssuedBy string `json:"issued_by"`
}

type AttemptEvent struct {
	AttemptID uint    `json:"attempt_id"`
	TestID    uint    `json:"test_id"`
	Email     string  `json:"email"`
	Score     float64 `json:"score,omitempty"`
	MaxScore  int     `json:"max_score,omitempty"`
}

type SubscriptionEvent struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type EmailRequestedEvent struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}
