package documents

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// ErrQuotaExceeded means the organization used up its document quota for the
// current billing cycle.
var ErrQuotaExceeded = errors.New("document quota exceeded")

// Service renders compliance documents and persists them per organization.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GenerateForOrg renders one document, consumes one unit of the document
// quota and stores the result. The quota predicate keeps concurrent requests
// from overshooting.
func (s *Service) GenerateForOrg(ctx context.Context, org *models.Organization, userID uint, kind string, a Answers) (*models.Document, error) {
	_ = ctx
	if !IsKind(kind) {
		return nil, errors.New("unknown document kind: " + kind)
	}

	res := s.db.Model(&models.Subscription{}).
		Where("organization_id = ? AND documents_used < document_quota", org.ID).
		UpdateColumn("documents_used", gorm.Expr("documents_used + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrQuotaExceeded
	}

	if a.OrgName == "" {
		a.OrgName = org.Name
	}
	if a.BusinessID == "" {
		a.BusinessID = org.BusinessID
	}

	title, body, err := Generate(kind, a)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		UUID:           uuid.New().String(),
		OrganizationID: org.ID,
		Kind:           kind,
		Title:          title,
		Body:           body,
		GeneratedBy:    userID,
	}
	if err := s.db.Create(doc).Error; err != nil {
		return nil, err
	}

	audit := &models.AuditLog{
		OrganizationID: org.ID,
		UserID:         userID,
		Action:         "document.generated",
		Detail:         "kind=" + kind + " uuid=" + doc.UUID,
	}
	if err := s.db.Create(audit).Error; err != nil {
		log.Errorf("[Documents] audit log write failed: %v", err)
	}

	return doc, nil
}

// FindByUUID loads one document scoped to an organization.
func (s *Service) FindByUUID(orgID uint, docUUID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.Where("uuid = ? AND organization_id = ?", docUUID, orgID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListForOrg returns all documents of an organization, newest first.
func (s *Service) ListForOrg(orgID uint) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}
