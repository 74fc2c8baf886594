package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/analytics"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
)

type analyticsService struct {
	repo   repositories.Repository
	cache  *cache.CacheManager
	logger *slog.Logger
	now    Clock
}

func NewAnalyticsService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger) AnalyticsService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &analyticsService{
		repo:   repo,
		cache:  cacheManager,
		logger: logger,
		now:    time.Now,
	}
}

// GetTestAnalytics returns the cached report, computing it on a miss
func (s *analyticsService) GetTestAnalytics(ctx context.Context, testID uint, ownerID string) (*analytics.Report, error) {
	if _, err := getOwnedTest(ctx, s.repo, testID, ownerID, "view_analytics"); err != nil {
		return nil, err
	}

	var report analytics.Report
	err := s.cache.Stats.CacheOrExecute(ctx, cache.ReportKey(testID), &report, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.compute(ctx, testID)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *analyticsService) compute(ctx context.Context, testID uint) (*analytics.Report, error) {
	questions, err := s.repo.Question().ListByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	attempts, err := s.repo.Attempt().ListWithAnswers(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	report := analytics.Compute(analytics.Input{
		TestID:    testID,
		Questions: questions,
		Attempts:  attempts,
	}, s.now())

	s.logger.Info("Analytics computed", "test_id", testID, "attempts", report.TotalAttempts, "completed", report.CompletedAttempts)
	return &report, nil
}

func (s *analyticsService) InvalidateReport(ctx context.Context, testID uint) {
	cache.InvalidateReport(ctx, s.cache, testID)
}
