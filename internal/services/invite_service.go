package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/email"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

// inviteTokenBytes is the entropy of an invite token before encoding
const inviteTokenBytes = 32

type inviteService struct {
	repo          repositories.Repository
	subscriptions SubscriptionService
	sender        email.Sender
	publisher     events.EventPublisher
	logger        *slog.Logger
	validator     *validator.Validator
	baseURL       string
	now           Clock
	newToken      func() (string, error)
}

func NewInviteService(
	repo repositories.Repository,
	subscriptions SubscriptionService,
	sender email.Sender,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	baseURL string,
) InviteService {
	return &inviteService{
		repo:          repo,
		subscriptions: subscriptions,
		sender:        sender,
		publisher:     publisher,
		logger:        logger,
		validator:     validator,
		baseURL:       baseURL,
		now:           time.Now,
		newToken:      newInviteToken,
	}
}

// newInviteToken returns 32 random bytes, base64url encoded without padding
func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// inviteBatch is what every invite of one request shares
type inviteBatch struct {
	test        *models.Test
	limits      models.TierLimits
	issuerID    string
	inviterName string
}

func (s *inviteService) IssueInvite(ctx context.Context, testID uint, address, issuerID string) (*models.TestInvite, error) {
	address = normalizeEmail(address)
	if err := s.validator.Validate(&models.IssueInvitesRequest{Emails: []string{address}}); err != nil {
		return nil, err
	}

	batch, err := s.prepare(ctx, testID, issuerID)
	if err != nil {
		return nil, err
	}
	return s.issueOne(ctx, batch, address)
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (s *inviteService) IssueInvites(ctx context.Context, testID uint, emails []string, issuerID string) (*models.IssueInvitesResponse, error) {
	normalized := make([]string, len(emails))
	for i, raw := range emails {
		normalized[i] = normalizeEmail(raw)
	}
	if err := s.validator.Validate(&models.IssueInvitesRequest{Emails: normalized}); err != nil {
		return nil, err
	}

	batch, err := s.prepare(ctx, testID, issuerID)
	if err != nil {
		return nil, err
	}

	resp := &models.IssueInvitesResponse{
		Sent:   []string{},
		Failed: []models.InviteFailure{},
	}
	seen := make(map[string]bool, len(normalized))

	for _, address := range normalized {
		if seen[address] {
			resp.Failed = append(resp.Failed, models.InviteFailure{Email: address, Reason: "duplicate email in request"})
			continue
		}
		seen[address] = true

		_, err := s.issueOne(ctx, batch, address)
		switch {
		case err == nil:
			resp.Sent = append(resp.Sent, address)
		case errors.Is(err, ErrQuotaExceeded):
			resp.Failed = append(resp.Failed, models.InviteFailure{Email: address, Reason: "weekly invite quota exceeded"})
		case errors.Is(err, ErrEmailDelivery):
			resp.Failed = append(resp.Failed, models.InviteFailure{Email: address, Reason: "invite created but email delivery failed"})
		default:
			s.logger.Error("Failed to issue invite", "test_id", testID, "email", address, "error", err)
			resp.Failed = append(resp.Failed, models.InviteFailure{Email: address, Reason: "internal error"})
		}
	}

	remaining, err := s.subscriptions.RemainingInvites(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read remaining quota: %w", err)
	}
	resp.RemainingQuota = remaining

	s.logger.Info("Invites issued", "test_id", testID, "sent", len(resp.Sent), "failed", len(resp.Failed))
	return resp, nil
}

// prepare checks, in order: ownership, lock, question count
func (s *inviteService) prepare(ctx context.Context, testID uint, issuerID string) (*inviteBatch, error) {
	test, err := getOwnedTest(ctx, s.repo, testID, issuerID, "invite")
	if err != nil {
		return nil, err
	}
	if test.IsLocked {
		return nil, ErrTestLocked
	}
	if test.QuestionCount == 0 {
		return nil, ErrTestHasNoQuestions
	}

	limits, err := s.subscriptions.Limits(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tier limits: %w", err)
	}

	return &inviteBatch{
		test:        test,
		limits:      limits,
		issuerID:    issuerID,
		inviterName: s.displayName(ctx, issuerID),
	}, nil
}

func (s *inviteService) displayName(ctx context.Context, userID string) string {
	if s.repo.User() == nil {
		return ""
	}
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to resolve inviter", "user_id", userID, "error", err)
		return ""
	}
	return user.DisplayName
}

// issueOne consumes one unit of quota and persists the invite atomically,
// then sends the email outside the transaction
func (s *inviteService) issueOne(ctx context.Context, batch *inviteBatch, address string) (*models.TestInvite, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	invite := &models.TestInvite{
		TestID:   batch.test.ID,
		Token:    token,
		Email:    address,
		IssuedAt: now,
		IssuedBy: batch.issuerID,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		ok, err := tx.Subscription().ConsumeInvite(ctx, nil, batch.issuerID, batch.limits.InvitesPerWeek, now)
		if err != nil {
			return fmt.Errorf("failed to consume invite quota: %w", err)
		}
		if !ok {
			return NewBusinessRuleError(ErrQuotaExceeded, "invite_limit",
				"weekly invite quota exhausted",
				map[string]interface{}{"limit": batch.limits.InvitesPerWeek})
		}
		if err := tx.Invite().Create(ctx, nil, invite); err != nil {
			return fmt.Errorf("failed to create invite: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invite issued", "invite_id", invite.ID, "test_id", batch.test.ID, "email", address)
	publishEvent(ctx, s.publisher, s.logger, events.InviteIssued, events.InviteIssuedEvent{
		InviteID: invite.ID,
		TestID:   batch.test.ID,
		Email:    address,
		IssuedBy: batch.issuerID,
	})

	return invite, s.deliver(ctx, batch, invite)
}

// deliver sends the invite email and records the outcome on the invite
func (s *inviteService) deliver(ctx context.Context, batch *inviteBatch, invite *models.TestInvite) error {
	link := email.TakeURL(s.baseURL, invite.TestID, invite.Token)
	subject, body := email.InviteEmail(batch.test.Name, batch.inviterName, link)

	sendErr := s.sender.Send(ctx, invite.Email, subject, body)

	var deliveryErr *string
	if sendErr != nil {
		msg := sendErr.Error()
		deliveryErr = &msg
		s.logger.Warn("Invite email failed", "invite_id", invite.ID, "email", invite.Email, "error", sendErr)
	}
	invite.EmailSent = sendErr == nil
	invite.DeliveryError = deliveryErr

	if err := s.repo.Invite().UpdateDelivery(ctx, nil, invite.ID, invite.EmailSent, deliveryErr); err != nil {
		s.logger.Error("Failed to record invite delivery", "invite_id", invite.ID, "error", err)
	}

	if sendErr != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, sendErr)
	}
	return nil
}

func (s *inviteService) ListInvites(ctx context.Context, testID uint, ownerID string, filters repositories.InviteFilters) ([]*models.TestInvite, int64, error) {
	if _, err := getOwnedTest(ctx, s.repo, testID, ownerID, "list_invites"); err != nil {
		return nil, 0, err
	}

	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)
	invites, total, err := s.repo.Invite().ListByTest(ctx, nil, testID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, total, nil
}
