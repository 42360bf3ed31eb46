package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// ErrQuotaExceeded means the organization used up its question quota for the
// current billing cycle.
var ErrQuotaExceeded = errors.New("question quota exceeded")

// Completer is the LLM dependency of the QA service.
type Completer interface {
	Complete(ctx context.Context, question string, orgContext string) (string, error)
}

// Service answers Amendment-13 questions: LLM first, keyword fallback on any
// LLM failure. Every exchange is persisted; unanswerable questions open a DPO
// review task.
type Service struct {
	db  *gorm.DB
	llm Completer
}

func NewService(db *gorm.DB, llm Completer) *Service {
	return &Service{db: db, llm: llm}
}

// Answer is the result of one question.
type Answer struct {
	Text      string `json:"answer"`
	Source    string `json:"source"`
	Escalated bool   `json:"escalated"`
}

// Ask answers one question for an organization member, consuming one unit of
// the question quota. Quota consumption is guarded by a questions_used <
// question_quota predicate so concurrent requests cannot overshoot.
func (s *Service) Ask(ctx context.Context, org *models.Organization, userID uint, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is required")
	}

	res := s.db.Model(&models.Subscription{}).
		Where("organization_id = ? AND questions_used < question_quota", org.ID).
		UpdateColumn("questions_used", gorm.Expr("questions_used + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrQuotaExceeded
	}

	answer := &Answer{Source: models.QASourceLLM}
	text, err := s.llm.Complete(ctx, question, orgContext(org))
	if err != nil {
		log.Warnf("[QA] llm unavailable, using keyword fallback: %v", err)
		answer.Source = models.QASourceFallback
		text, answer.Escalated = FallbackAnswer(question)
	}
	answer.Text = text

	interaction := &models.QAInteraction{
		OrganizationID: org.ID,
		UserID:         userID,
		Question:       question,
		Answer:         answer.Text,
		Source:         answer.Source,
		Escalated:      answer.Escalated,
	}
	if err := s.db.Create(interaction).Error; err != nil {
		return nil, err
	}

	if answer.Escalated {
		task := &models.DPOTask{
			OrganizationID: org.ID,
			Subject:        "שאלה ללא מענה אוטומטי",
			Detail:         question,
			Status:         models.DPOTaskOpen,
		}
		if err := s.db.Create(task).Error; err != nil {
			// The member already got the fallback answer; queueing is best effort.
			log.Errorf("[QA] failed to open review task for org %d: %v", org.ID, err)
		}
	}

	return answer, nil
}

func orgContext(org *models.Organization) string {
	if org == nil {
		return ""
	}
	return fmt.Sprintf("ארגון: %s, מסלול: %s", org.Name, org.Tier)
}
