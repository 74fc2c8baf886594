package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/email"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/grading"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// PublicBaseURL prefixes the test-taking links in invite emails
	PublicBaseURL string
	// LenientMultiSelect grades multi-select questions by subset instead of set equality
	LenientMultiSelect bool
	// Seeds overrides the shuffle seed source; nil means random
	Seeds SeedSource
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Publisher events.EventPublisher
	Sender    email.Sender
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	testService         TestService
	questionService     QuestionService
	inviteService       InviteService
	attemptService      AttemptService
	analyticsService    AnalyticsService
	subscriptionService SubscriptionService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if sm.deps.Sender == nil {
		return fmt.Errorf("email sender is required")
	}

	sm.deps.Logger.Info("Initializing service manager")

	d := sm.deps
	grader := grading.NewGrader(grading.WithLenientMultiSelect(sm.config.LenientMultiSelect))

	sm.subscriptionService = NewSubscriptionService(d.Repo, d.Publisher, d.Logger, d.Validator)
	sm.testService = NewTestService(d.Repo, sm.subscriptionService, d.Publisher, d.Logger, d.Validator)
	sm.questionService = NewQuestionService(d.Repo, sm.subscriptionService, d.Logger, d.Validator)
	sm.inviteService = NewInviteService(d.Repo, sm.subscriptionService, d.Sender, d.Publisher, d.Logger, d.Validator, sm.config.PublicBaseURL)
	sm.analyticsService = NewAnalyticsService(d.Repo, d.Cache, d.Logger)
	sm.attemptService = NewAttemptService(d.Repo, grader, sm.analyticsService, d.Publisher, d.Logger, d.Validator, sm.config.Seeds)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully",
		"lenient_multi_select", sm.config.LenientMultiSelect)
	return nil
}

func (sm *serviceManager) ready() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Test() TestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.testService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.questionService
}

func (sm *serviceManager) Invite() InviteService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.inviteService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.attemptService
}

func (sm *serviceManager) Analytics() AnalyticsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.analyticsService
}

func (sm *serviceManager) Subscription() SubscriptionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready()
	return sm.subscriptionService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher; the repository is owned by its manager
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.shutdown = true

	sm.deps.Logger.Info("Shutting down service manager")
	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			return fmt.Errorf("failed to close event publisher: %w", err)
		}
	}
	return nil
}
