package services

import (
	"context"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/analytics"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

// ===== SERVICE INTERFACES =====

type TestService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *models.TestCreateRequest, ownerID string) (*models.Test, error)
	GetByID(ctx context.Context, id uint, userID string) (*models.Test, error)
	List(ctx context.Context, ownerID string, filters repositories.TestFilters) ([]*models.Test, int64, error)
	Update(ctx context.Context, id uint, req *models.TestUpdateRequest, userID string) (*models.Test, error)
	Delete(ctx context.Context, id uint, userID string) error

	// Lifecycle
	Publish(ctx context.Context, id uint, userID string) (*models.Test, error)
	Close(ctx context.Context, id uint, userID string) (*models.Test, error)
	Lock(ctx context.Context, id uint, userID string) (*models.Test, error)
	Unlock(ctx context.Context, id uint, userID string) (*models.Test, error)
	Archive(ctx context.Context, id uint, userID string) (*models.Test, error)
	Unarchive(ctx context.Context, id uint, userID string) (*models.Test, error)

	// Scheduling
	Schedule(ctx context.Context, id uint, req *models.ScheduleRequest, userID string) (*models.Test, error)
	Unschedule(ctx context.Context, id uint, userID string) (*models.Test, error)
}

type QuestionService interface {
	Add(ctx context.Context, testID uint, req *models.QuestionCreateRequest, userID string) (*models.Question, error)
	Update(ctx context.Context, testID, questionID uint, req *models.QuestionUpdateRequest, userID string) (*models.Question, error)
	Delete(ctx context.Context, testID, questionID uint, userID string) error
	List(ctx context.Context, testID uint, userID string) ([]models.Question, error)
	Reorder(ctx context.Context, testID uint, req *models.ReorderRequest, userID string) ([]models.Question, error)
}

type InviteService interface {
	// IssueInvite persists one invite and emails it. When only the email
	// fails, the invite is returned together with an ErrEmailDelivery error.
	IssueInvite(ctx context.Context, testID uint, email, issuerID string) (*models.TestInvite, error)
	IssueInvites(ctx context.Context, testID uint, emails []string, issuerID string) (*models.IssueInvitesResponse, error)
	ListInvites(ctx context.Context, testID uint, ownerID string, filters repositories.InviteFilters) ([]*models.TestInvite, int64, error)
}

type AttemptService interface {
	// Student side; the invite token is the credential
	Redeem(ctx context.Context, req *models.RedeemRequest) (*models.TestAttempt, error)
	GetSession(ctx context.Context, attemptID uint, token string) (*models.AttemptSession, error)
	Submit(ctx context.Context, attemptID uint, req *models.SubmitRequest) (*models.SubmitResult, error)

	// Owner side
	List(ctx context.Context, testID uint, ownerID string, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error)
	Get(ctx context.Context, attemptID uint, ownerID string) (*models.TestAttempt, error)
}

type AnalyticsService interface {
	GetTestAnalytics(ctx context.Context, testID uint, ownerID string) (*analytics.Report, error)
	InvalidateReport(ctx context.Context, testID uint)
}

type SubscriptionService interface {
	GetSubscription(ctx context.Context, userID string) (*models.SubscriptionResponse, error)
	SetTier(ctx context.Context, userID string, tier models.Tier) (*models.Subscription, error)
	RecordPaymentStatus(ctx context.Context, providerSubscriptionID string, status models.PaymentStatus) (*models.Subscription, error)
	HandleBillingEvent(ctx context.Context, event *models.BillingEvent) error

	// Quota checks
	Limits(ctx context.Context, userID string) (models.TierLimits, error)
	CanCreateTest(ctx context.Context, userID string) (bool, error)
	CanAddQuestion(ctx context.Context, test *models.Test) (bool, error)
	RemainingInvites(ctx context.Context, userID string) (int, error)

	// ExpireSubscriptions downgrades paid subscriptions whose period ended before now
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
}

// ServiceManager interface for managing all services
type ServiceManager interface {
	Test() TestService
	Question() QuestionService
	Invite() InviteService
	Attempt() AttemptService
	Analytics() AnalyticsService
	Subscription() SubscriptionService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
