package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// ErrNotFound is returned by every store when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err means a missing row, from this package or from gorm.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	OwnerID  *string            `json:"owner_id"`
	Status   *models.TestStatus `json:"status"`
	Category *string            `json:"category"`
	Archived *bool              `json:"archived"`
	Search   string             `json:"search"`
	DateFrom *time.Time         `json:"date_from"`
	DateTo   *time.Time         `json:"date_to"`

	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "name", "status"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type InviteFilters struct {
	Used      *bool  `json:"used"`
	Email     string `json:"email"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

type AttemptFilters struct {
	Completed *bool      `json:"completed"`
	Email     string     `json:"email"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "score", "start_time"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}
