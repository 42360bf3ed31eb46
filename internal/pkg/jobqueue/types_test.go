package jobqueue

import (
	"testing"
	"time"
)

func TestJobRetryable(t *testing.T) {
	job := &Job{
		ID:         "j1",
		Type:       JobTypeSendEmail,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	if job.Status != JobStatusProcessing || job.ProcessedAt == nil {
		t.Fatalf("processing transition incomplete: %+v", job)
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		job.MarkAsFailed("smtp timeout")
		if i < DefaultMaxRetries-1 && !job.IsRetryable() {
			t.Fatalf("attempt %d should be retryable", i+1)
		}
	}
	if job.IsRetryable() {
		t.Fatalf("job retryable after exhausting %d retries", DefaultMaxRetries)
	}
}

func TestJobCompletedClearsError(t *testing.T) {
	job := &Job{ID: "j2", Status: JobStatusProcessing, ErrorMsg: "earlier failure"}
	job.MarkAsCompleted()
	if job.ErrorMsg != "" || job.CompletedAt == nil {
		t.Fatalf("completion must clear error and set timestamp")
	}
	if time.Since(*job.CompletedAt) > time.Minute {
		t.Fatalf("completed_at not set to now")
	}
}

func TestSendEmailPayloadRoundTrip(t *testing.T) {
	in := SendEmailJobPayload{To: "owner@example.co.il", Subject: "אישור תשלום", Body: "<p>תודה</p>"}
	out, err := SendEmailJobPayloadFromMap(in.ToMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *out != in {
		t.Fatalf("payload round trip mismatch: %+v", out)
	}
}

func TestGenerateDocumentPayloadFromMap(t *testing.T) {
	in := GenerateDocumentJobPayload{OrganizationID: 7, UserID: 3, Kind: "ropa", AnswersJSON: `{"OrgName":"x"}`}
	out, err := GenerateDocumentJobPayloadFromMap(in.ToMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.OrganizationID != 7 || out.Kind != "ropa" {
		t.Fatalf("payload mismatch: %+v", out)
	}
}
