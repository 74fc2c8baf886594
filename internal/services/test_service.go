package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

type testService struct {
	repo          repositories.Repository
	subscriptions SubscriptionService
	publisher     events.EventPublisher
	logger        *slog.Logger
	validator     *validator.Validator
	now           Clock
}

func NewTestService(repo repositories.Repository, subscriptions SubscriptionService, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) TestService {
	return &testService{
		repo:          repo,
		subscriptions: subscriptions,
		publisher:     publisher,
		logger:        logger,
		validator:     validator,
		now:           time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *testService) Create(ctx context.Context, req *models.TestCreateRequest, ownerID string) (*models.Test, error) {
	s.logger.Info("Creating test", "owner_id", ownerID, "name", req.Name)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateTags(req.Tags); len(errs) > 0 {
		return nil, errs
	}

	allowed, err := s.subscriptions.CanCreateTest(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test quota: %w", err)
	}
	if !allowed {
		limits, _ := s.subscriptions.Limits(ctx, ownerID)
		return nil, NewBusinessRuleError(ErrQuotaExceeded, "test_limit",
			"test creation limit reached for the current period",
			map[string]interface{}{"limit": limits.MaxTestsPerPeriod})
	}

	tags, err := encodeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	test := &models.Test{
		OwnerID:            ownerID,
		Name:               req.Name,
		Description:        req.Description,
		RandomizeQuestions: req.RandomizeQuestions,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		MaxAttempts:        maxAttempts,
		Status:             models.TestDraft,
		Category:           req.Category,
		Tags:               tags,
	}
	if err := s.repo.Test().Create(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created successfully", "test_id", test.ID)
	return test, nil
}

func (s *testService) GetByID(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return getOwnedTest(ctx, s.repo, id, userID, "read")
}

func (s *testService) List(ctx context.Context, ownerID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	filters.OwnerID = &ownerID
	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)

	tests, total, err := s.repo.Test().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, total, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *models.TestUpdateRequest, userID string) (*models.Test, error) {
	s.logger.Info("Updating test", "test_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateTags(req.Tags); len(errs) > 0 {
		return nil, errs
	}

	test, err := getOwnedTest(ctx, s.repo, id, userID, "update")
	if err != nil {
		return nil, err
	}
	if test.IsArchived {
		return nil, ErrTestArchived
	}

	if req.Name != nil {
		test.Name = *req.Name
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.RandomizeQuestions != nil {
		test.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.TimeLimitMinutes != nil {
		test.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = *req.MaxAttempts
	}
	if req.Category != nil {
		test.Category = req.Category
	}
	if req.Tags != nil {
		if test.Tags, err = encodeTags(req.Tags); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Test().Update(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}
	return test, nil
}

func (s *testService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting test", "test_id", id, "user_id", userID)

	if _, err := getOwnedTest(ctx, s.repo, id, userID, "delete"); err != nil {
		return err
	}

	hasAttempts, err := s.repo.Test().HasAttempts(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return ErrTestHasAttempts
	}

	if err := s.repo.Test().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}
	return nil
}

// ===== LIFECYCLE =====

func (s *testService) Publish(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.transition(ctx, id, userID, "publish", models.TestActive, func(t *models.Test) {
		t.IsLocked = false
	})
}

func (s *testService) Close(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.transition(ctx, id, userID, "close", models.TestClosed, func(t *models.Test) {
		t.IsLocked = true
	})
}

func (s *testService) Archive(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.transition(ctx, id, userID, "archive", models.TestArchived, func(t *models.Test) {
		now := s.now()
		t.IsArchived = true
		t.ArchivedAt = &now
		t.IsLocked = true
		t.IsScheduled = false
	})
}

func (s *testService) Unarchive(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.transition(ctx, id, userID, "unarchive", models.TestClosed, func(t *models.Test) {
		t.IsArchived = false
		t.ArchivedAt = nil
		t.IsLocked = true
	})
}

func (s *testService) Lock(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.setLocked(ctx, id, userID, true)
}

func (s *testService) Unlock(ctx context.Context, id uint, userID string) (*models.Test, error) {
	return s.setLocked(ctx, id, userID, false)
}

func (s *testService) setLocked(ctx context.Context, id uint, userID string, locked bool) (*models.Test, error) {
	action := "unlock"
	if locked {
		action = "lock"
	}

	test, err := getOwnedTest(ctx, s.repo, id, userID, action)
	if err != nil {
		return nil, err
	}
	if test.IsArchived {
		return nil, ErrTestArchived
	}
	if test.IsLocked == locked {
		return test, nil
	}

	test.IsLocked = locked
	if err := s.repo.Test().Update(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to %s test: %w", action, err)
	}

	s.logger.Info("Test lock changed", "test_id", id, "locked", locked)
	return test, nil
}

// ===== SCHEDULING =====

func (s *testService) Schedule(ctx context.Context, id uint, req *models.ScheduleRequest, userID string) (*models.Test, error) {
	if errs := s.validator.GetBusinessValidator().ValidateSchedule(req, s.now()); len(errs) > 0 {
		return nil, errs
	}

	start, end := req.Start, req.End
	return s.transition(ctx, id, userID, "schedule", models.TestScheduled, func(t *models.Test) {
		t.IsScheduled = true
		t.ScheduledStart = &start
		t.ScheduledEnd = &end
		t.AutoPublish = req.AutoPublish
		t.AutoClose = req.AutoClose
		t.IsLocked = true
	})
}

func (s *testService) Unschedule(ctx context.Context, id uint, userID string) (*models.Test, error) {
	test, err := getOwnedTest(ctx, s.repo, id, userID, "unschedule")
	if err != nil {
		return nil, err
	}
	if test.Status != models.TestScheduled {
		return nil, NewBusinessRuleError(ErrInvalidStatusTransition, "status_transition",
			"only scheduled tests can be unscheduled",
			map[string]interface{}{"status": test.Status})
	}

	return s.transition(ctx, id, userID, "unschedule", models.TestDraft, func(t *models.Test) {
		t.IsScheduled = false
		t.ScheduledStart = nil
		t.ScheduledEnd = nil
		t.AutoPublish = false
		t.AutoClose = false
		t.IsLocked = false
	})
}

// transition applies a manual status change after checking the lifecycle rules
func (s *testService) transition(ctx context.Context, id uint, userID, action string, next models.TestStatus, mutate func(*models.Test)) (*models.Test, error) {
	test, err := getOwnedTest(ctx, s.repo, id, userID, action)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Changing test status", "test_id", id, "from", test.Status, "to", next)

	if errs := s.validator.GetBusinessValidator().ValidateStatusTransition(test.Status, next, test.QuestionCount); len(errs) > 0 {
		return nil, statusTransitionError(test.Status, next, errs)
	}

	previous := test.Status
	test.Status = next
	mutate(test)

	if err := s.repo.Test().Update(ctx, nil, test); err != nil {
		return nil, fmt.Errorf("failed to %s test: %w", action, err)
	}

	switch next {
	case models.TestActive:
		s.publishStatus(ctx, test, previous, events.TestPublished)
	case models.TestClosed:
		s.publishStatus(ctx, test, previous, events.TestClosed)
	}
	return test, nil
}

func (s *testService) publishStatus(ctx context.Context, test *models.Test, from models.TestStatus, eventType string) {
	publishEvent(ctx, s.publisher, s.logger, eventType, events.TestStatusEvent{
		TestID:  test.ID,
		OwnerID: test.OwnerID,
		From:    string(from),
		To:      string(test.Status),
		Trigger: "manual",
	})
}

func statusTransitionError(from, to models.TestStatus, errs ValidationErrors) error {
	for _, e := range errs {
		if e.Rule == "status_transition" {
			return NewBusinessRuleError(ErrInvalidStatusTransition, "status_transition", e.Message,
				map[string]interface{}{"from": from, "to": to})
		}
	}
	return NewBusinessRuleError(ErrTestHasNoQuestions, "questions_required",
		"test must have at least one question", map[string]interface{}{"to": to})
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return datatypes.JSON(data), nil
}
