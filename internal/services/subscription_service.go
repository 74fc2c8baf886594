package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

type subscriptionService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       Clock
}

func NewSubscriptionService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) SubscriptionService {
	return &subscriptionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// effectiveTier treats a lapsed paid period as free even before the sweep runs
func effectiveTier(sub *models.Subscription, now time.Time) models.Tier {
	if sub.Tier == models.TierPro && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.Before(now) {
		return models.TierFree
	}
	return sub.Tier
}

func remainingInvites(sub *models.Subscription, now time.Time) int {
	limit := models.LimitsFor(effectiveTier(sub, now)).InvitesPerWeek
	if !sub.InviteWindowStart.After(now.Add(-models.InviteWindow)) {
		return limit
	}
	if left := limit - sub.InvitesUsed; left > 0 {
		return left
	}
	return 0
}

func (s *subscriptionService) getOrCreate(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.repo.Subscription().GetOrCreate(ctx, nil, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*models.SubscriptionResponse, error) {
	sub, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Test().CountCreatedSince(ctx, nil, userID, now.Add(-models.BillingPeriod))
	if err != nil {
		return nil, fmt.Errorf("failed to count tests: %w", err)
	}

	return &models.SubscriptionResponse{
		Subscription:     sub,
		Limits:           models.LimitsFor(effectiveTier(sub, now)),
		RemainingInvites: remainingInvites(sub, now),
		TestsThisPeriod:  created,
	}, nil
}

func (s *subscriptionService) SetTier(ctx context.Context, userID string, tier models.Tier) (*models.Subscription, error) {
	if !tier.Valid() {
		return nil, NewValidationError("tier", "must be free or pro", tier)
	}

	s.logger.Info("Setting subscription tier", "user_id", userID, "tier", tier)

	sub, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.applyTier(sub, tier, models.SubscriptionActive)
	if err := s.repo.Subscription().Update(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.publishChange(ctx, sub, "tier_changed")
	return sub, nil
}

func (s *subscriptionService) applyTier(sub *models.Subscription, tier models.Tier, status models.SubscriptionStatus) {
	sub.Tier = tier
	sub.Status = status
	if tier == models.TierPro {
		end := s.now().Add(models.BillingPeriod)
		sub.CurrentPeriodEnd = &end
	} else {
		sub.CurrentPeriodEnd = nil
	}
}

func (s *subscriptionService) RecordPaymentStatus(ctx context.Context, providerSubscriptionID string, status models.PaymentStatus) (*models.Subscription, error) {
	if status != models.PaymentSucceeded && status != models.PaymentFailed {
		return nil, NewValidationError("status", "must be succeeded or failed", status)
	}

	sub, err := s.repo.Subscription().GetByProviderID(ctx, nil, providerSubscriptionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	s.logger.Info("Recording payment", "subscription_id", sub.ID, "user_id", sub.UserID, "status", status)

	now := s.now()
	sub.LastPaymentStatus = &status
	sub.LastPaymentAt = &now

	switch status {
	case models.PaymentSucceeded:
		base := now
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			base = *sub.CurrentPeriodEnd
		}
		end := base.Add(models.BillingPeriod)
		sub.Tier = models.TierPro
		sub.Status = models.SubscriptionActive
		sub.CurrentPeriodEnd = &end
	case models.PaymentFailed:
		sub.Status = models.SubscriptionPastDue
	}

	if err := s.repo.Subscription().Update(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.publishChange(ctx, sub, "payment_"+string(status))
	return sub, nil
}

// HandleBillingEvent applies a webhook notification from the billing provider
func (s *subscriptionService) HandleBillingEvent(ctx context.Context, event *models.BillingEvent) error {
	if err := s.validator.Validate(event); err != nil {
		return err
	}

	s.logger.Info("Handling billing event", "type", event.Type, "user_id", event.UserID, "subscription_id", event.SubscriptionID)

	switch event.Type {
	case models.BillingSubscriptionCreated, models.BillingSubscriptionUpdated:
		if event.UserID == "" {
			return NewValidationError("user_id", "is required for subscription events", nil)
		}
		if event.Tier == "" {
			return NewValidationError("tier", "is required for subscription events", nil)
		}
		sub, err := s.getOrCreate(ctx, event.UserID)
		if err != nil {
			return err
		}
		s.applyTier(sub, event.Tier, models.SubscriptionActive)
		if event.SubscriptionID != "" {
			providerID := event.SubscriptionID
			sub.ProviderSubscriptionID = &providerID
		}
		if err := s.repo.Subscription().Update(ctx, nil, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		s.publishChange(ctx, sub, string(event.Type))
		return nil

	case models.BillingSubscriptionCanceled:
		sub, err := s.findForEvent(ctx, event)
		if err != nil {
			return err
		}
		s.applyTier(sub, models.TierFree, models.SubscriptionCanceled)
		if err := s.repo.Subscription().Update(ctx, nil, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		s.publishChange(ctx, sub, string(event.Type))
		return nil

	case models.BillingPaymentSucceeded, models.BillingPaymentFailed:
		if event.SubscriptionID == "" {
			return NewValidationError("subscription_id", "is required for payment events", nil)
		}
		status := models.PaymentSucceeded
		if event.Type == models.BillingPaymentFailed {
			status = models.PaymentFailed
		}
		_, err := s.RecordPaymentStatus(ctx, event.SubscriptionID, status)
		return err

	default:
		return NewValidationError("type", "unsupported billing event type", event.Type)
	}
}

func (s *subscriptionService) findForEvent(ctx context.Context, event *models.BillingEvent) (*models.Subscription, error) {
	var (
		sub *models.Subscription
		err error
	)
	switch {
	case event.SubscriptionID != "":
		sub, err = s.repo.Subscription().GetByProviderID(ctx, nil, event.SubscriptionID)
	case event.UserID != "":
		sub, err = s.repo.Subscription().GetByUserID(ctx, nil, event.UserID)
	default:
		return nil, NewValidationError("subscription_id", "subscription_id or user_id is required", nil)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) Limits(ctx context.Context, userID string) (models.TierLimits, error) {
	sub, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return models.TierLimits{}, err
	}
	return models.LimitsFor(effectiveTier(sub, s.now())), nil
}

func (s *subscriptionService) CanCreateTest(ctx context.Context, userID string) (bool, error) {
	limits, err := s.Limits(ctx, userID)
	if err != nil {
		return false, err
	}
	created, err := s.repo.Test().CountCreatedSince(ctx, nil, userID, s.now().Add(-models.BillingPeriod))
	if err != nil {
		return false, fmt.Errorf("failed to count tests: %w", err)
	}
	return created < int64(limits.MaxTestsPerPeriod), nil
}

func (s *subscriptionService) CanAddQuestion(ctx context.Context, test *models.Test) (bool, error) {
	limits, err := s.Limits(ctx, test.OwnerID)
	if err != nil {
		return false, err
	}
	count, err := s.repo.Question().CountByTest(ctx, nil, test.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count questions: %w", err)
	}
	return count < int64(limits.MaxQuestionsPerTest), nil
}

func (s *subscriptionService) RemainingInvites(ctx context.Context, userID string) (int, error) {
	sub, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return remainingInvites(sub, s.now()), nil
}

func (s *subscriptionService) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.Subscription().ListExpired(ctx, nil, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired subscriptions: %w", err)
	}

	count := 0
	for _, sub := range expired {
		changed, err := s.repo.Subscription().Expire(ctx, nil, sub.ID, now)
		if err != nil {
			s.logger.Error("Failed to expire subscription", "subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
			continue
		}
		if !changed {
			continue
		}
		count++
		sub.Tier = models.TierFree
		sub.Status = models.SubscriptionExpired
		s.publishChange(ctx, sub, "period_ended")
	}

	if count > 0 {
		s.logger.Info("Expired subscriptions", "count", count)
	}
	return count, nil
}

func (s *subscriptionService) publishChange(ctx context.Context, sub *models.Subscription, reason string) {
	publishEvent(ctx, s.publisher, s.logger, events.SubscriptionChanged, events.SubscriptionEvent{
		UserID: sub.UserID,
		Tier:   string(sub.Tier),
		Status: string(sub.Status),
		Reason: reason,
	})
}
