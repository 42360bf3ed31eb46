package models

import "time"

const (
	DocumentKindROPA          = "ropa"
	DocumentKindPrivacyPolicy = "privacy_policy"
	DocumentKindAppointment   = "dpo_appointment"
)

// Document is a generated compliance artifact rendered from the onboarding
// questionnaire answers.
type Document struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UUID           string    `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	OrganizationID uint      `gorm:"not null;index" json:"organization_id"`
	Kind           string    `gorm:"type:varchar(40);not null;index" json:"kind"`
	Title          string    `gorm:"type:varchar(200);not null" json:"title"`
	Body           string    `gorm:"type:longtext;not null" json:"body"`
	GeneratedBy    uint      `gorm:"default:0" json:"generated_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
