package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/billing"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/documents"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/mail"
)

// smtpMailer adapts the SMTP mail package to the queue's Mailer interface.
type smtpMailer struct{}

func (smtpMailer) SendMail(to, subject, body string) error {
	return mail.SendMail(to, subject, body)
}

// documentRenderer renders queued document jobs through the documents service.
type documentRenderer struct {
	db   *gorm.DB
	docs *documents.Service
}

func newDocumentRenderer(db *gorm.DB) *documentRenderer {
	return &documentRenderer{db: db, docs: documents.NewService(db)}
}

func (r *documentRenderer) RenderForJob(ctx context.Context, p *GenerateDocumentJobPayload) error {
	var org models.Organization
	if err := r.db.Where("id = ?", p.OrganizationID).First(&org).Error; err != nil {
		return fmt.Errorf("organization %d not found: %w", p.OrganizationID, err)
	}

	var answers documents.Answers
	if p.AnswersJSON != "" {
		if err := json.Unmarshal([]byte(p.AnswersJSON), &answers); err != nil {
			return fmt.Errorf("invalid answers payload: %w", err)
		}
	}

	_, err := r.docs.GenerateForOrg(ctx, &org, p.UserID, p.Kind, answers)
	return err
}

// sweepRunner adapts the billing sweeper to the queue's SweepRunner interface.
type sweepRunner struct {
	sweeper *billing.Sweeper
}

func (s sweepRunner) RunSweep(ctx context.Context) error {
	_, err := s.sweeper.Run(ctx)
	return err
}
