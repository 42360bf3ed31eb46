package models

import "time"

const (
	DPOTaskOpen     = "open"
	DPOTaskClaimed  = "claimed"
	DPOTaskResolved = "resolved"
)

// DPOTask is an item in the internal DPO review queue.
type DPOTask struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	Subject        string     `gorm:"type:varchar(200);not null" json:"subject"`
	Detail         string     `gorm:"type:text" json:"detail"`
	Status         string     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ClaimedBy      uint       `gorm:"default:0;index" json:"claimed_by"`
	ResolvedAt     *time.Time `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	Resolution     string     `gorm:"type:text" json:"resolution"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Escalation is created when a DPO bumps a task to the supervising officer.
type Escalation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	RaisedBy  uint      `gorm:"not null" json:"raised_by"`
	Reason    string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
