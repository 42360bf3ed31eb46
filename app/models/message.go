package models

import "time"

// Message is a chat message between a tenant user and the assigned DPO.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	FromStaff      bool      `gorm:"default:false" json:"from_staff"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
