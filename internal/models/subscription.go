package models

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

const (
	// BillingPeriod is the length of a paid period and of the test-creation window.
	BillingPeriod = 30 * 24 * time.Hour
	// InviteWindow is the length of the invite quota window.
	InviteWindow = 7 * 24 * time.Hour
)

type Subscription struct {
	ID                     uint               `json:"id" gorm:"primaryKey"`
	UserID                 string             `json:"user_id" gorm:"not null;uniqueIndex;size:255"`
	Tier                   Tier               `json:"tier" gorm:"not null;default:free;size:16;index"`
	Status                 SubscriptionStatus `json:"status" gorm:"not null;default:active;size:16"`
	ProviderSubscriptionID *string            `json:"provider_subscription_id" gorm:"size:255;uniqueIndex"`
	LastPaymentStatus      *PaymentStatus     `json:"last_payment_status" gorm:"size:16"`
	LastPaymentAt          *time.Time         `json:"last_payment_at"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end" gorm:"index"`

	InviteWindowStart time.Time `json:"invite_window_start" gorm:"not null"`
	InvitesUsed       int       `json:"invites_used" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// TierLimits are the quotas a tier grants.
type TierLimits struct {
	MaxQuestionsPerTest int `json:"max_questions_per_test"`
	MaxTestsPerPeriod   int `json:"max_tests_per_period"`
	InvitesPerWeek      int `json:"invites_per_week"`
}

var tierLimits = map[Tier]TierLimits{
	TierFree: {MaxQuestionsPerTest: 10, MaxTestsPerPeriod: 5, InvitesPerWeek: 25},
	TierPro:  {MaxQuestionsPerTest: 200, MaxTestsPerPeriod: 500, InvitesPerWeek: 1000},
}

// LimitsFor returns the quotas for t; unknown tiers get the free limits.
func LimitsFor(t Tier) TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}
