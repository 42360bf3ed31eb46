package models

import "time"

const (
	QASourceLLM      = "llm"
	QASourceFallback = "fallback"
)

// QAInteraction records one question/answer exchange, including whether the
// answer came from the LLM or the keyword fallback.
type QAInteraction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"index" json:"organization_id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	Question       string    `gorm:"type:text;not null" json:"question"`
	Answer         string    `gorm:"type:longtext;not null" json:"answer"`
	Source         string    `gorm:"type:varchar(20);not null" json:"source"`
	Escalated      bool      `gorm:"default:false" json:"escalated"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
