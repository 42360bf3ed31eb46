package repository

import (
	"time"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint, at time.Time) error
	Count() (int64, error)
}

// OrganizationRepository defines the interface for tenant database operations
type OrganizationRepository interface {
	Create(org *models.Organization) error
	CreateIfAbsentForOwner(org *models.Organization) (*models.Organization, error)
	GetByID(id uint) (*models.Organization, error)
	GetByUUID(uuid string) (*models.Organization, error)
	GetByOwner(ownerUserID uint) (*models.Organization, error)
	Update(org *models.Organization) error
	CompleteOnboarding(orgID uint, businessID, name, industry string) error
	Count() (int64, error)
}

// TransactionRepository defines the interface for payment transaction rows
type TransactionRepository interface {
	Create(txn *models.PaymentTransaction) error
	GetByID(id string) (*models.PaymentTransaction, error)
	SetCorrelationCode(id, code string) error
	ListByOrg(orgID uint, limit int) ([]models.PaymentTransaction, error)
}

// SubscriptionRepository defines the interface for subscription rows
type SubscriptionRepository interface {
	GetByOrg(orgID uint) (*models.Subscription, error)
	Cancel(orgID uint) error
}

// DocumentRepository defines the interface for generated documents
type DocumentRepository interface {
	GetByUUID(orgID uint, uuid string) (*models.Document, error)
	ListByOrg(orgID uint) ([]models.Document, error)
}

// DPOQueueRepository defines the interface for the internal review queue
type DPOQueueRepository interface {
	Create(task *models.DPOTask) error
	GetByID(id uint) (*models.DPOTask, error)
	ListOpen(limit int) ([]models.DPOTask, error)
	Claim(taskID, userID uint) (bool, error)
	Resolve(taskID, userID uint, resolution string) (bool, error)
	Escalate(taskID, userID uint, reason string) error
}
