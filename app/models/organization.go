package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TierBasic    = "basic"
	TierExtended = "extended"
	// TierEnterprise is accepted on input but stored as extended.
	TierEnterprise = "enterprise"

	OrgLifecycleOnboarding = "onboarding"
	OrgLifecycleActive     = "active"
	OrgLifecycleSuspended  = "suspended"

	SubStatusTrial     = "trial"
	SubStatusActive    = "active"
	SubStatusPastDue   = "past_due"
	SubStatusCancelled = "cancelled"
)

// MaxFailedPaymentAttempts is the consecutive-failure threshold after which a
// subscription is demoted to past_due by the recurring billing sweep.
const MaxFailedPaymentAttempts = 3

// Organization is the tenant record. An organization is created either at
// signup (onboarding-first) or at first checkout (payment-first, with a
// placeholder business id). The unique owner index guarantees at most one
// organization per owner regardless of which path runs first.
type Organization struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	UUID                  string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	OwnerUserID           uint           `gorm:"not null;uniqueIndex:ux_organizations_owner" json:"owner_user_id"`
	Name                  string         `gorm:"type:varchar(200)" json:"name" validate:"max=200"`
	BusinessID            string         `gorm:"type:varchar(64);index" json:"business_id"`
	Industry              string         `gorm:"type:varchar(100);default:''" json:"industry"`
	Tier                  string         `gorm:"type:varchar(20);default:'basic'" json:"tier"`
	LifecycleStatus       string         `gorm:"type:varchar(20);not null;default:'onboarding';index" json:"lifecycle_status"`
	SubscriptionStatus    string         `gorm:"type:varchar(20);not null;default:'trial';index:idx_organizations_substatus" json:"subscription_status"`
	SubscriptionStart     *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_start,omitempty"`
	SubscriptionEnd       *time.Time     `gorm:"type:timestamp;default:null;index" json:"subscription_end,omitempty"`
	AnnualBilling         bool           `gorm:"default:false" json:"annual_billing"`
	PaymentProvider       string         `gorm:"type:varchar(20);default:''" json:"payment_provider"`
	PaymentToken          string         `gorm:"type:varchar(191);default:''" json:"-"`
	PaymentTokenExpiry    string         `gorm:"type:varchar(7);default:''" json:"-"`
	CardMask              string         `gorm:"type:varchar(25);default:''" json:"card_mask"`
	LastPaymentAmount     int            `gorm:"default:0" json:"last_payment_amount"`
	LastPaymentAt         *time.Time     `gorm:"type:timestamp;default:null" json:"last_payment_at,omitempty"`
	FailedPaymentAttempts int            `gorm:"default:0" json:"failed_payment_attempts"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *Organization) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// NewPlaceholderOrganization builds the payment-first placeholder tenant. The
// business id is temporary until the onboarding questionnaire completes.
func NewPlaceholderOrganization(ownerUserID uint, name string) *Organization {
	return &Organization{
		UUID:            uuid.New().String(),
		OwnerUserID:     ownerUserID,
		Name:            name,
		BusinessID:      "PENDING-" + uuid.New().String(),
		LifecycleStatus: OrgLifecycleOnboarding,
	}
}

// HasPlaceholderBusinessID reports whether onboarding still owes the real
// registration number.
func (o *Organization) HasPlaceholderBusinessID() bool {
	return len(o.BusinessID) > 8 && o.BusinessID[:8] == "PENDING-"
}
