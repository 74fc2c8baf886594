package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/grading"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	grader    *grading.Grader
	analytics AnalyticsService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	seeds     SeedSource
	now       Clock
}

func NewAttemptService(
	repo repositories.Repository,
	grader *grading.Grader,
	analytics AnalyticsService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	seeds SeedSource,
) AttemptService {
	if seeds == nil {
		seeds = randomSeeds{}
	}
	return &attemptService{
		repo:      repo,
		grader:    grader,
		analytics: analytics,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		seeds:     seeds,
		now:       time.Now,
	}
}

// ===== STUDENT SIDE =====

// Redeem turns an unused invite into an in-progress attempt. The token is
// claimed with a conditional update, so of several concurrent redemptions
// exactly one creates an attempt.
func (s *attemptService) Redeem(ctx context.Context, req *models.RedeemRequest) (*models.TestAttempt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var attempt *models.TestAttempt
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		invite, err := tx.Invite().GetByToken(ctx, nil, req.Token)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to get invite: %w", err)
		}
		if invite.IsUsed {
			return ErrInvalidToken
		}

		test, err := tx.Test().GetByID(ctx, nil, invite.TestID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to get test: %w", err)
		}
		if test.IsLocked {
			return ErrTestLocked
		}

		now := s.now()
		won, err := tx.Invite().MarkUsed(ctx, nil, req.Token, now)
		if err != nil {
			return fmt.Errorf("failed to redeem invite: %w", err)
		}
		if !won {
			return ErrInvalidToken
		}

		attempt = &models.TestAttempt{
			TestID:           test.ID,
			InviteID:         invite.ID,
			StudentFirstName: req.FirstName,
			StudentLastName:  req.LastName,
			StudentEmail:     invite.Email,
			StartTime:        now,
			ShuffleSeed:      s.seeds.Seed(),
		}
		if err := tx.Attempt().Create(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "test_id", attempt.TestID, "email", attempt.StudentEmail)
	publishEvent(ctx, s.publisher, s.logger, events.AttemptStarted, events.AttemptEvent{
		AttemptID: attempt.ID,
		TestID:    attempt.TestID,
		Email:     attempt.StudentEmail,
	})
	return attempt, nil
}

// GetSession returns the attempt with its questions in delivery order.
// Completed attempts come back without questions.
func (s *attemptService) GetSession(ctx context.Context, attemptID uint, token string) (*models.AttemptSession, error) {
	attempt, err := s.authorize(ctx, attemptID, token)
	if err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, nil, attempt.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	session := &models.AttemptSession{
		Attempt:          attempt,
		TestName:         test.Name,
		TimeLimitMinutes: test.TimeLimitMinutes,
		Questions:        []models.StudentQuestion{},
	}
	if attempt.IsCompleted {
		return session, nil
	}

	questions, err := s.repo.Question().ListByTest(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	session.Questions = toStudentQuestions(orderQuestions(questions, test.RandomizeQuestions, attempt.ShuffleSeed))
	return session, nil
}

// Submit grades the responses and completes the attempt. Completion is a
// compare-and-set on is_completed; the loser of a race writes nothing.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *models.SubmitRequest) (*models.SubmitResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.authorize(ctx, attemptID, req.Token)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, ErrAttemptAlreadySubmitted
	}

	s.logger.Info("Submitting attempt", "attempt_id", attemptID, "answers", len(req.Answers))

	questions, err := s.repo.Question().ListByTest(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	graded := s.grader.GradeSubmission(questions, req.Answers)
	for i := range graded.Answers {
		graded.Answers[i].AttemptID = attempt.ID
	}

	end := s.now()
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		won, err := tx.Attempt().Complete(ctx, nil, attempt.ID, graded.Score, end)
		if err != nil {
			return fmt.Errorf("failed to complete attempt: %w", err)
		}
		if !won {
			return ErrAttemptAlreadySubmitted
		}
		if err := tx.Answer().CreateBatch(ctx, nil, graded.Answers); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attempt.IsCompleted = true
	attempt.Score = graded.Score
	attempt.EndTime = &end
	attempt.Answers = graded.Answers

	if len(graded.SkippedQuestionIDs) > 0 {
		s.logger.Warn("Submission named unknown questions", "attempt_id", attempt.ID, "question_ids", graded.SkippedQuestionIDs)
	}
	s.logger.Info("Attempt completed", "attempt_id", attempt.ID, "score", graded.Score, "max_score", graded.MaxScore)

	if s.analytics != nil {
		s.analytics.InvalidateReport(ctx, attempt.TestID)
	}
	publishEvent(ctx, s.publisher, s.logger, events.AttemptSubmitted, events.AttemptEvent{
		AttemptID: attempt.ID,
		TestID:    attempt.TestID,
		Email:     attempt.StudentEmail,
		Score:     graded.Score,
		MaxScore:  graded.MaxScore,
	})

	return &models.SubmitResult{
		Attempt:            attempt,
		MaxScore:           graded.MaxScore,
		SkippedQuestionIDs: graded.SkippedQuestionIDs,
	}, nil
}

// authorize checks that token is the invite the attempt was started with.
// The token is resolved first; an unknown attempt is reported like a wrong token.
func (s *attemptService) authorize(ctx context.Context, attemptID uint, token string) (*models.TestAttempt, error) {
	invite, err := s.repo.Invite().GetByToken(ctx, nil, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if invite.ID != attempt.InviteID {
		return nil, ErrInvalidToken
	}
	return attempt, nil
}

// ===== OWNER SIDE =====

func (s *attemptService) List(ctx context.Context, testID uint, ownerID string, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	if _, err := getOwnedTest(ctx, s.repo, testID, ownerID, "list_attempts"); err != nil {
		return nil, 0, err
	}

	filters.Limit, filters.Offset = normalizePagination(filters.Limit, filters.Offset)
	attempts, total, err := s.repo.Attempt().ListByTest(ctx, nil, testID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

func (s *attemptService) Get(ctx context.Context, attemptID uint, ownerID string) (*models.TestAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if _, err := getOwnedTest(ctx, s.repo, attempt.TestID, ownerID, "read_attempt"); err != nil {
		return nil, err
	}
	return attempt, nil
}
