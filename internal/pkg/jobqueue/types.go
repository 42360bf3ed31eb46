package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendEmail        JobType = "send_email"
	JobTypeGenerateDocument JobType = "generate_document"
	JobTypeBillingSweep     JobType = "billing_sweep"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// SendEmailJobPayload contains the payload for transactional email jobs
type SendEmailJobPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ToMap converts the payload to a map for storage
func (p SendEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"to":      p.To,
		"subject": p.Subject,
		"body":    p.Body,
	}
}

// FromMap creates a payload from a map
func SendEmailJobPayloadFromMap(data map[string]interface{}) (*SendEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload SendEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// GenerateDocumentJobPayload contains the payload for async document rendering
type GenerateDocumentJobPayload struct {
	OrganizationID uint   `json:"organization_id"`
	UserID         uint   `json:"user_id"`
	Kind           string `json:"kind"`
	AnswersJSON    string `json:"answers_json"`
}

// ToMap converts the payload to a map for storage
func (p GenerateDocumentJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"organization_id": p.OrganizationID,
		"user_id":         p.UserID,
		"kind":            p.Kind,
		"answers_json":    p.AnswersJSON,
	}
}

// FromMap creates a payload from a map
func GenerateDocumentJobPayloadFromMap(data map[string]interface{}) (*GenerateDocumentJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload GenerateDocumentJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// BillingSweepJobPayload is empty; the sweep finds its own work.
type BillingSweepJobPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// ToMap converts the payload to a map for storage
func (p BillingSweepJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"triggered_by": p.TriggeredBy,
	}
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
