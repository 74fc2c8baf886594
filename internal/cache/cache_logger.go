package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func TestKey(testID uint) string      { return fmt.Sprintf("id:%d", testID) }
func QuestionsKey(testID uint) string { return fmt.Sprintf("test:%d", testID) }
func ReportKey(testID uint) string    { return fmt.Sprintf("report:%d", testID) }

// InvalidateTestCache drops a test, its owner listings and its report
func InvalidateTestCache(ctx context.Context, cm *CacheManager, testID uint, ownerID string) {
	SafeDelete(ctx, cm.Test, TestKey(testID))
	SafeInvalidatePattern(ctx, cm.Test, fmt.Sprintf("owner:%s:*", ownerID))
	SafeDelete(ctx, cm.Stats, ReportKey(testID))
}

// InvalidateQuestionCache drops the question list of a test and everything derived from it
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, testID uint) {
	SafeDelete(ctx, cm.Question, QuestionsKey(testID))
	SafeDelete(ctx, cm.Test, TestKey(testID))
	SafeDelete(ctx, cm.Stats, ReportKey(testID))
}

// InvalidateReport drops the cached analytics report of a test
func InvalidateReport(ctx context.Context, cm *CacheManager, testID uint) {
	SafeDelete(ctx, cm.Stats, ReportKey(testID))
}
