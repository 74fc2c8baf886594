package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

const DefaultInterval = 60 * time.Second

// TickResult counts the transitions made by one tick
type TickResult struct {
	Published int
	Closed    int
	// Skipped tests changed status between the list query and the update
	Skipped int
	Failed  int
}

type moveOutcome int

const (
	moveApplied moveOutcome = iota
	moveSkipped
	moveFailed
)

func (r *TickResult) count(outcome moveOutcome, applied *int) {
	switch outcome {
	case moveApplied:
		*applied++
	case moveSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Automaton publishes and closes scheduled tests when their window opens or ends
type Automaton struct {
	loop
	tests     repositories.TestRepository
	publisher events.EventPublisher
	now       Clock
}

func NewAutomaton(tests repositories.TestRepository, publisher events.EventPublisher, logger *slog.Logger, interval time.Duration, opts ...Option) *Automaton {
	if interval <= 0 {
		interval = DefaultInterval
	}
	o := buildOptions(opts)

	a := &Automaton{
		tests:     tests,
		publisher: publisher,
		now:       o.clock,
	}
	a.loop = loop{
		name:     "test_schedule",
		interval: interval,
		logger:   logger,
		tick:     func(ctx context.Context) { a.Tick(ctx) },
	}
	return a
}

// Tick runs one pass. Each test moves with its own conditional update, so a
// test edited since the list query is skipped rather than overwritten.
func (a *Automaton) Tick(ctx context.Context) TickResult {
	now := a.now()
	var result TickResult

	due, err := a.tests.ListDueForPublish(ctx, nil, now)
	if err != nil {
		a.logger.Error("Failed to list tests due for publish", "error", err)
	}
	for _, test := range due {
		result.count(a.move(ctx, test, models.TestScheduled, models.TestActive, false, events.TestPublished), &result.Published)
	}

	due, err = a.tests.ListDueForClose(ctx, nil, now)
	if err != nil {
		a.logger.Error("Failed to list tests due for close", "error", err)
	}
	for _, test := range due {
		result.count(a.move(ctx, test, models.TestActive, models.TestClosed, true, events.TestClosed), &result.Closed)
	}

	if result != (TickResult{}) {
		a.logger.Info("Schedule tick finished",
			"published", result.Published,
			"closed", result.Closed,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
	return result
}

func (a *Automaton) move(ctx context.Context, test *models.Test, from, to models.TestStatus, locked bool, eventType string) moveOutcome {
	changed, err := a.tests.TransitionStatus(ctx, nil, test.ID, from, to, locked)
	if err != nil {
		a.logger.Error("Scheduled transition failed", "test_id", test.ID, "from", from, "to", to, "error", err)
		return moveFailed
	}
	if !changed {
		a.logger.Debug("Test changed before scheduled transition", "test_id", test.ID, "expected", from)
		return moveSkipped
	}

	a.logger.Info("Scheduled transition applied", "test_id", test.ID, "from", from, "to", to)

	if a.publisher == nil {
		return moveApplied
	}
	event := events.NewEvent(eventType, events.TestStatusEvent{
		TestID:  test.ID,
		OwnerID: test.OwnerID,
		From:    string(from),
		To:      string(to),
		Trigger: "schedule",
	})
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("Failed to publish event", "event_type", eventType, "test_id", test.ID, "error", err)
	}
	return moveApplied
}
