package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	test         repositories.TestRepository
	question     repositories.QuestionRepository
	invite       repositories.InviteRepository
	attempt      repositories.AttemptRepository
	answer       repositories.AnswerRepository
	subscription repositories.SubscriptionRepository
	user         repositories.UserRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository wires every store against one connection
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	repo := newBound(config.DB, config.RedisClient, cacheManager)
	repo.user = casdoor.NewUserCasdoor(config.CasdoorConfig, cacheManager)
	return repo
}

// newBound builds the gorm-backed stores on db, which may be a transaction
func newBound(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		test:         NewTestPostgreSQL(db, cacheManager),
		question:     NewQuestionPostgreSQL(db, cacheManager),
		invite:       NewInvitePostgreSQL(db),
		attempt:      NewAttemptPostgreSQL(db),
		answer:       NewAnswerPostgreSQL(db),
		subscription: NewSubscriptionPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) Test() repositories.TestRepository { return r.test }

func (r *PostgreSQLRepository) Question() repositories.QuestionRepository { return r.question }

func (r *PostgreSQLRepository) Invite() repositories.InviteRepository { return r.invite }

func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository { return r.attempt }

func (r *PostgreSQLRepository) Answer() repositories.AnswerRepository { return r.answer }

func (r *PostgreSQLRepository) Subscription() repositories.SubscriptionRepository {
	return r.subscription
}

func (r *PostgreSQLRepository) User() repositories.UserRepository { return r.user }

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := newBound(tx, r.redisClient, r.cacheManager)
		// The user directory is external and not transactional
		txRepo.user = r.user
		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.cacheManager.Enabled() {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	var errs []error

	sqlDB, err := r.db.DB()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to get database instance: %w", err))
	} else if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize checks connectivity and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if err := rm.config.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
