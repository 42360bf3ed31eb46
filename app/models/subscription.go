package models

import "time"

// Subscription is the billing-cycle record for an organization. The unique
// organization index enforces the one-row-per-tenant rule; all writers go
// through an OnConflict upsert keyed on it.
type Subscription struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;uniqueIndex:ux_subscriptions_org" json:"organization_id"`
	Tier           string     `gorm:"type:varchar(20);not null;default:'basic'" json:"tier"`
	MonthlyPrice   int        `gorm:"not null;default:0" json:"monthly_price"`
	AnnualBilling  bool       `gorm:"default:false" json:"annual_billing"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CycleStart     *time.Time `gorm:"type:timestamp;default:null" json:"cycle_start,omitempty"`
	CycleEnd       *time.Time `gorm:"type:timestamp;default:null" json:"cycle_end,omitempty"`
	ChargeToken    string     `gorm:"type:varchar(191);default:''" json:"-"`
	QuestionQuota  int        `gorm:"default:0" json:"question_quota"`
	QuestionsUsed  int        `gorm:"default:0" json:"questions_used"`
	DocumentQuota  int        `gorm:"default:0" json:"document_quota"`
	DocumentsUsed  int        `gorm:"default:0" json:"documents_used"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
