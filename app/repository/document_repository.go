package repository

import (
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// GetByUUID retrieves a document scoped to its organization
func (r *documentRepository) GetByUUID(orgID uint, uuid string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("uuid = ? AND organization_id = ?", uuid, orgID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByOrg returns all documents of an organization, newest first
func (r *documentRepository) ListByOrg(orgID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").Find(&docs).Error
	return docs, err
}
