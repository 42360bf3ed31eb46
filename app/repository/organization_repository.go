package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

// Create creates a new organization
func (r *organizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// CreateIfAbsentForOwner inserts the organization unless the owner already
// has one, then returns the stored row either way. The unique owner index
// makes the insert race-free across the payment-first and onboarding-first
// paths.
func (r *organizationRepository) CreateIfAbsentForOwner(org *models.Organization) (*models.Organization, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_user_id"}},
		DoNothing: true,
	}).Create(org)
	if tx.Error != nil {
		return nil, tx.Error
	}

	var stored models.Organization
	if err := r.db.Where("owner_user_id = ?", org.OwnerUserID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByID retrieves an organization by its ID
func (r *organizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByUUID retrieves an organization by its public UUID
func (r *organizationRepository) GetByUUID(uuid string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("uuid = ?", uuid).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByOwner retrieves the organization owned by the given user
func (r *organizationRepository) GetByOwner(ownerUserID uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("owner_user_id = ?", ownerUserID).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Update updates an existing organization
func (r *organizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

// CompleteOnboarding replaces the placeholder business profile with the real
// one and activates the tenant lifecycle.
func (r *organizationRepository) CompleteOnboarding(orgID uint, businessID, name, industry string) error {
	updates := map[string]interface{}{
		"business_id":      businessID,
		"lifecycle_status": models.OrgLifecycleActive,
	}
	if name != "" {
		updates["name"] = name
	}
	if industry != "" {
		updates["industry"] = industry
	}
	return r.db.Model(&models.Organization{}).Where("id = ?", orgID).Updates(updates).Error
}

// Count returns the total number of organizations
func (r *organizationRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Organization{}).Count(&count).Error
	return count, err
}
