package repositories

import "context"

// Repository aggregates every store used by the services
type Repository interface {
	Test() TestRepository
	Question() QuestionRepository
	Invite() InviteRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	Subscription() SubscriptionRepository

	// User directory (read-only, external)
	User() UserRepository

	// WithTransaction runs fn against stores bound to one database transaction.
	// Returning an error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
