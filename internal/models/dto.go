package models

import (
	"encoding/json"
	"time"
)

// ===== TEST REQUESTS =====

type TestCreateRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=200"`
	Description        *string  `json:"description" validate:"omitempty,max=2000"`
	RandomizeQuestions bool     `json:"randomize_questions"`
	TimeLimitMinutes   int      `json:"time_limit_minutes" validate:"min=0,max=1440"`
	MaxAttempts        int      `json:"max_attempts" validate:"min=0,max=100"`
	Category           *string  `json:"category" validate:"omitempty,max=100"`
	Tags               []string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
}

type TestUpdateRequest struct {
	Name               *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string  `json:"description" validate:"omitempty,max=2000"`
	RandomizeQuestions *bool    `json:"randomize_questions"`
	TimeLimitMinutes   *int     `json:"time_limit_minutes" validate:"omitempty,min=0,max=1440"`
	MaxAttempts        *int     `json:"max_attempts" validate:"omitempty,min=0,max=100"`
	Category           *string  `json:"category" validate:"omitempty,max=100"`
	Tags               []string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
}

type ScheduleRequest struct {
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required,gtfield=Start"`
	AutoPublish bool      `json:"auto_publish"`
	AutoClose   bool      `json:"auto_close"`
}

// ===== QUESTION REQUESTS =====

type QuestionCreateRequest struct {
	Kind     QuestionKind    `json:"kind" validate:"required,question_kind"`
	Text     string          `json:"text" validate:"required,min=1,max=4000"`
	Points   int             `json:"points" validate:"min=0,max=1000"`
	Position *int            `json:"position" validate:"omitempty,min=0"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

type QuestionUpdateRequest struct {
	Text     *string         `json:"text" validate:"omitempty,min=1,max=4000"`
	Points   *int            `json:"points" validate:"omitempty,min=0,max=1000"`
	Position *int            `json:"position" validate:"omitempty,min=0"`
	Payload  json.RawMessage `json:"payload"`
}

type ReorderRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1"`
}

// ===== INVITE / ATTEMPT REQUESTS =====

type IssueInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type IssueInvitesRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=200,dive,required,email"`
}

type RedeemRequest struct {
	Token     string `json:"token" validate:"required,min=16,max=64"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
}

type SubmittedResponse struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	Response   json.RawMessage `json:"response"`
}

type SubmitRequest struct {
	Token   string              `json:"token" validate:"required,min=16,max=64"`
	Answers []SubmittedResponse `json:"answers" validate:"dive"`
}

// ===== BILLING =====

type BillingEventType string

const (
	BillingSubscriptionCreated  BillingEventType = "subscription.created"
	BillingSubscriptionUpdated  BillingEventType = "subscription.updated"
	BillingSubscriptionCanceled BillingEventType = "subscription.canceled"
	BillingPaymentSucceeded     BillingEventType = "payment.succeeded"
	BillingPaymentFailed        BillingEventType = "payment.failed"
)

type BillingEvent struct {
	Type           BillingEventType `json:"type" validate:"required"`
	UserID         string           `json:"user_id"`
	SubscriptionID string           `json:"subscription_id"`
	Tier           Tier             `json:"tier" validate:"omitempty,tier"`
	Status         string           `json:"status"`
}

// ===== RESPONSES =====

type InviteFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type IssueInvitesResponse struct {
	Sent           []string        `json:"sent"`
	Failed         []InviteFailure `json:"failed"`
	RemainingQuota int             `json:"remaining_quota"`
}

// StudentQuestion is a question as shown to a test taker, without answer keys.
type StudentQuestion struct {
	ID       uint            `json:"id"`
	Kind     QuestionKind    `json:"kind"`
	Text     string          `json:"text"`
	Points   int             `json:"points"`
	Position int             `json:"position"`
	Payload  json.RawMessage `json:"payload"`
}

type AttemptSession struct {
	Attempt          *TestAttempt      `json:"attempt"`
	TestName         string            `json:"test_name"`
	TimeLimitMinutes int               `json:"time_limit_minutes"`
	Questions        []StudentQuestion `json:"questions"`
}

type SubmitResult struct {
	Attempt            *TestAttempt `json:"attempt"`
	MaxScore           int          `json:"max_score"`
	SkippedQuestionIDs []uint       `json:"skipped_question_ids"`
}

type SubscriptionResponse struct {
	Subscription     *Subscription `json:"subscription"`
	Limits           TierLimits    `json:"limits"`
	RemainingInvites int           `json:"remaining_invites"`
	TestsThisPeriod  int64         `json:"tests_this_period"`
}

type SetTierRequest struct {
	Tier Tier `json:"tier" validate:"required,tier"`
}

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}
