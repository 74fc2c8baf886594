package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptState is derived from the stored flags; NotStarted means an unused invite.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
)

type TestInvite struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	TestID   uint       `json:"test_id" gorm:"not null;index"`
	Token    string     `json:"-" gorm:"not null;uniqueIndex;size:64"`
	Email    string     `json:"email" gorm:"not null;size:255;index"`
	IsUsed   bool       `json:"is_used" gorm:"not null;default:false"`
	UsedAt   *time.Time `json:"used_at"`
	IssuedAt time.Time  `json:"issued_at" gorm:"not null"`
	IssuedBy string     `json:"issued_by" gorm:"not null;size:255"`

	// Delivery outcome, recorded after the invite is persisted
	EmailSent     bool    `json:"email_sent" gorm:"not null;default:false"`
	DeliveryError *string `json:"delivery_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TestInvite) TableName() string {
	return "test_invites"
}

type TestAttempt struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	TestID           uint       `json:"test_id" gorm:"not null;index"`
	InviteID         uint       `json:"invite_id" gorm:"not null;uniqueIndex"`
	StudentFirstName string     `json:"student_first_name" gorm:"not null;size:100"`
	StudentLastName  string     `json:"student_last_name" gorm:"not null;size:100"`
	StudentEmail     string     `json:"student_email" gorm:"not null;size:255;index"`
	StartTime        time.Time  `json:"start_time" gorm:"not null"`
	EndTime          *time.Time `json:"end_time"`
	IsCompleted      bool       `json:"is_completed" gorm:"not null;default:false;index"`
	Score            float64    `json:"score" gorm:"not null;default:0"`
	ShuffleSeed      int64      `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

func (a *TestAttempt) State() AttemptState {
	if a.IsCompleted {
		return AttemptCompleted
	}
	return AttemptInProgress
}

// Duration is the completion time; zero while the attempt is in progress.
func (a *TestAttempt) Duration() time.Duration {
	if a.EndTime == nil {
		return 0
	}
	return a.EndTime.Sub(a.StartTime)
}

type Answer struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	AttemptID     uint           `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID    uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question;index"`
	Response      datatypes.JSON `json:"response" gorm:"type:jsonb"`
	PointsAwarded float64        `json:"points_awarded" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
}

func (Answer) TableName() string {
	return "answers"
}
