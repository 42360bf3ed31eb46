package models

import "time"

// Notification is a user-facing in-app notice.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Kind      string     `gorm:"type:varchar(40);not null" json:"kind"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	ReadAt    *time.Time `gorm:"type:timestamp;default:null" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
