package repository

import (
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new payment transaction
func (r *transactionRepository) Create(txn *models.PaymentTransaction) error {
	return r.db.Create(txn).Error
}

// GetByID retrieves a transaction by its synthetic id
func (r *transactionRepository) GetByID(id string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// SetCorrelationCode stores the gateway correlation code returned at checkout
func (r *transactionRepository) SetCorrelationCode(id, code string) error {
	return r.db.Model(&models.PaymentTransaction{}).Where("id = ?", id).
		Update("correlation_code", code).Error
}

// ListByOrg returns the most recent transactions of an organization
func (r *transactionRepository) ListByOrg(orgID uint, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var txns []models.PaymentTransaction
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").Limit(limit).Find(&txns).Error
	return txns, err
}

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetByOrg retrieves the subscription row of an organization
func (r *subscriptionRepository) GetByOrg(orgID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("organization_id = ?", orgID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Cancel marks the subscription and its organization as cancelled
func (r *subscriptionRepository) Cancel(orgID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).Where("organization_id = ?", orgID).
			Update("status", models.SubStatusCancelled).Error; err != nil {
			return err
		}
		return tx.Model(&models.Organization{}).Where("id = ?", orgID).
			Update("subscription_status", models.SubStatusCancelled).Error
	})
}
