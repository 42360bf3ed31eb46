package models

import "time"

// AuditLog is the append-only compliance trail. Insert failures are
// non-fatal by design.
type AuditLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"index" json:"organization_id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	Action         string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Detail         string    `gorm:"type:text" json:"detail"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
