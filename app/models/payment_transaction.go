package models

import (
	"fmt"
	"time"
)

const (
	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
	TxnStatusFailed    = "failed"
)

// Payment provider names shared by transactions, webhook events and the
// provider registry.
const (
	ProviderCardcom      = "cardcom"
	ProviderTranzila     = "tranzila"
	ProviderHYP          = "hyp"
	ProviderLemonSqueezy = "lemonsqueezy"
)

// PaymentTransaction records one checkout attempt. The id is client-generated
// and embeds the organization id plus a timestamp so gateway custom-data
// fields can carry it end to end. A transaction transitions from pending to
// exactly one terminal status; terminal writes are guarded by a
// status='pending' predicate so webhook re-delivery cannot re-apply effects.
type PaymentTransaction struct {
	ID              string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	OrganizationID  uint       `gorm:"not null;index" json:"organization_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	Amount          int        `gorm:"not null" json:"amount"`
	Plan            string     `gorm:"type:varchar(20);not null" json:"plan"`
	AnnualBilling   bool       `gorm:"default:false" json:"annual_billing"`
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	CorrelationCode string     `gorm:"type:varchar(191);default:'';index:idx_payment_transactions_corr" json:"correlation_code"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CardMask        string     `gorm:"type:varchar(25);default:''" json:"card_mask"`
	GatewayError    string     `gorm:"type:text" json:"gateway_error"`
	CompletedAt     *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewTransactionID builds the synthetic checkout id: TXN-<orgID>-<unix>.
func NewTransactionID(orgID uint, at time.Time) string {
	return fmt.Sprintf("TXN-%d-%d", orgID, at.Unix())
}
