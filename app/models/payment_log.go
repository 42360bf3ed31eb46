package models

import "time"

const (
	PaymentLogCharge  = "charge"
	PaymentLogRenewal = "renewal"
	PaymentLogFailure = "failure"
)

// PaymentLog is the append-only payment history. Insert failures are logged
// and swallowed; the log never blocks the primary action.
type PaymentLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	TransactionID  string    `gorm:"type:varchar(64);default:'';index" json:"transaction_id"`
	Provider       string    `gorm:"type:varchar(20);not null" json:"provider"`
	Kind           string    `gorm:"type:varchar(20);not null" json:"kind"`
	Amount         int       `gorm:"not null" json:"amount"`
	Success        bool      `gorm:"not null" json:"success"`
	Detail         string    `gorm:"type:text" json:"detail"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
