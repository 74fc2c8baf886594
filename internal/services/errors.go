package services

import (
	"errors"
	"fmt"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
)

// ===== SENTINEL ERRORS =====

// Not found
var (
	ErrTestNotFound         = errors.New("test not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Forbidden
var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid or already used invite token")
)

// Conflict
var (
	ErrTestLocked              = errors.New("test is locked")
	ErrTestHasNoQuestions      = errors.New("test has no questions")
	ErrQuotaExceeded           = errors.New("quota exceeded")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrTestHasAttempts         = errors.New("test has attempts")
	ErrTestArchived            = errors.New("test is archived")
)

// Bad request
var (
	ErrValidationFailed = errors.New("validation failed")
)

// ErrEmailDelivery marks a soft failure: the invite exists but its email was not sent.
var ErrEmailDelivery = errors.New("email delivery failed")

// ===== TYPED ERRORS =====

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business_logic"}}
}

// PermissionError is returned when a user acts on a resource they do not own
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

// BusinessRuleError carries the rule and context behind a conflict such as a tier limit
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
	Err     error
}

func NewBusinessRuleError(err error, rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     err,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error { return e.Err }
