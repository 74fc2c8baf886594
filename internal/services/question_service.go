package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

type questionService struct {
	repo          repositories.Repository
	subscriptions SubscriptionService
	logger        *slog.Logger
	validator     *validator.Validator
}

func NewQuestionService(repo repositories.Repository, subscriptions SubscriptionService, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:          repo,
		subscriptions: subscriptions,
		logger:        logger,
		validator:     validator,
	}
}

func (s *questionService) Add(ctx context.Context, testID uint, req *models.QuestionCreateRequest, userID string) (*models.Question, error) {
	s.logger.Info("Adding question", "test_id", testID, "kind", req.Kind, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	content, errs := s.validator.GetBusinessValidator().ValidateQuestionPayload(req.Kind, req.Payload)
	if len(errs) > 0 {
		return nil, errs
	}
	payload, err := models.EncodeContent(content)
	if err != nil {
		return nil, err
	}

	test, err := s.editableTest(ctx, testID, userID, "add_question")
	if err != nil {
		return nil, err
	}

	limits, err := s.subscriptions.Limits(ctx, test.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tier limits: %w", err)
	}

	question := &models.Question{
		TestID: testID,
		Text:   req.Text,
		Points: req.Points,
		Kind:   req.Kind,
		// Stored in canonical form so grading never sees unknown fields
		Payload: payload,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		count, err := tx.Question().CountByTest(ctx, nil, testID)
		if err != nil {
			return fmt.Errorf("failed to count questions: %w", err)
		}
		if count >= int64(limits.MaxQuestionsPerTest) {
			return NewBusinessRuleError(ErrQuotaExceeded, "question_limit",
				"question limit reached for this test",
				map[string]interface{}{"limit": limits.MaxQuestionsPerTest})
		}

		if req.Position != nil {
			question.Position = *req.Position
		} else if question.Position, err = tx.Question().NextPosition(ctx, nil, testID); err != nil {
			return fmt.Errorf("failed to get next position: %w", err)
		}

		return tx.Question().Create(ctx, nil, question)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question added", "question_id", question.ID, "test_id", testID)
	return question, nil
}

func (s *questionService) Update(ctx context.Context, testID, questionID uint, req *models.QuestionUpdateRequest, userID string) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.editableTest(ctx, testID, userID, "update_question"); err != nil {
		return nil, err
	}
	question, err := s.getQuestion(ctx, testID, questionID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if req.Position != nil {
		question.Position = *req.Position
	}
	if len(req.Payload) > 0 {
		content, errs := s.validator.GetBusinessValidator().ValidateQuestionPayload(question.Kind, req.Payload)
		if len(errs) > 0 {
			return nil, errs
		}
		if question.Payload, err = models.EncodeContent(content); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, testID, questionID uint, userID string) error {
	if _, err := s.editableTest(ctx, testID, userID, "delete_question"); err != nil {
		return err
	}
	if _, err := s.getQuestion(ctx, testID, questionID); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, nil, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "question_id", questionID, "test_id", testID)
	return nil
}

func (s *questionService) List(ctx context.Context, testID uint, userID string) ([]models.Question, error) {
	if _, err := getOwnedTest(ctx, s.repo, testID, userID, "list_questions"); err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().ListByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// Reorder assigns positions 1..n following the given IDs, which must name every question once
func (s *questionService) Reorder(ctx context.Context, testID uint, req *models.ReorderRequest, userID string) ([]models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.editableTest(ctx, testID, userID, "reorder_questions"); err != nil {
		return nil, err
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Question().ListByTest(ctx, nil, testID)
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}
		if errs := checkPermutation(current, req.QuestionIDs); len(errs) > 0 {
			return errs
		}
		return tx.Question().UpdatePositions(ctx, nil, testID, req.QuestionIDs)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	return s.repo.Question().ListByTest(ctx, nil, testID)
}

func checkPermutation(current []models.Question, ids []uint) ValidationErrors {
	if len(ids) != len(current) {
		return NewValidationError("question_ids", fmt.Sprintf("must list all %d questions", len(current)), len(ids))
	}
	known := make(map[uint]bool, len(current))
	for _, q := range current {
		known[q.ID] = true
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return NewValidationError("question_ids", "unknown question", id)
		}
		if seen[id] {
			return NewValidationError("question_ids", "duplicate question", id)
		}
		seen[id] = true
	}
	return nil
}

func (s *questionService) editableTest(ctx context.Context, testID uint, userID, action string) (*models.Test, error) {
	test, err := getOwnedTest(ctx, s.repo, testID, userID, action)
	if err != nil {
		return nil, err
	}
	if test.IsArchived {
		return nil, ErrTestArchived
	}
	return test, nil
}

func (s *questionService) getQuestion(ctx context.Context, testID, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.TestID != testID {
		return nil, ErrQuestionNotFound
	}
	return question, nil
}
