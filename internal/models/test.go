package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TestStatus string

const (
	TestDraft     TestStatus = "Draft"
	TestScheduled TestStatus = "Scheduled"
	TestActive    TestStatus = "Active"
	TestClosed    TestStatus = "Closed"
	TestArchived  TestStatus = "Archived"
)

type Test struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	OwnerID            string     `json:"owner_id" gorm:"not null;index;size:255"`
	Name               string     `json:"name" gorm:"not null;size:200;index"`
	Description        *string    `json:"description" gorm:"type:text"`
	RandomizeQuestions bool       `json:"randomize_questions" gorm:"not null;default:false"`
	TimeLimitMinutes   int        `json:"time_limit_minutes" gorm:"not null;default:0"`
	MaxAttempts        int        `json:"max_attempts" gorm:"not null;default:1"`
	Status             TestStatus `json:"status" gorm:"not null;default:Draft;index;size:16"`

	// IsLocked blocks new attempts and invites regardless of Status.
	IsLocked   bool       `json:"is_locked" gorm:"not null;default:false"`
	IsArchived bool       `json:"is_archived" gorm:"not null;default:false;index"`
	ArchivedAt *time.Time `json:"archived_at"`

	Category *string        `json:"category" gorm:"size:100;index"`
	Tags     datatypes.JSON `json:"tags" gorm:"type:jsonb"` // []string

	// Scheduling
	IsScheduled    bool       `json:"is_scheduled" gorm:"not null;default:false;index"`
	ScheduledStart *time.Time `json:"scheduled_start" gorm:"index"`
	ScheduledEnd   *time.Time `json:"scheduled_end" gorm:"index"`
	AutoPublish    bool       `json:"auto_publish" gorm:"not null;default:false"`
	AutoClose      bool       `json:"auto_close" gorm:"not null;default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:TestID"`

	// Computed
	QuestionCount int `json:"question_count" gorm:"-"`
	TotalPoints   int `json:"total_points" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

// AcceptsAttempts reports whether new invites and attempts may be created.
func (t *Test) AcceptsAttempts() bool {
	return !t.IsLocked
}

// SumPoints returns the maximum achievable score over qs.
func SumPoints(qs []Question) int {
	total := 0
	for _, q := range qs {
		total += q.Points
	}
	return total
}
