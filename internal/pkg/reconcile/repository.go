package reconcile

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/plans"
)

// Repository provides the DB operations behind the shared reconciliation
// service. The two Apply methods are the only writers of payment state and
// run inside a single DB transaction each.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error

	FindTransactionByCorrelation(provider, code string) (*models.PaymentTransaction, error)
	FindTransactionByID(id string) (*models.PaymentTransaction, error)
	LatestPendingTransaction(provider string, orgID uint) (*models.PaymentTransaction, error)

	FindOrganizationByUUID(uuid string) (*models.Organization, error)
	FindOrganizationByID(id uint) (*models.Organization, error)
	OwnerEmail(orgID uint) (string, error)

	ApplyTransactionOutcome(txnID string, o TransactionOutcome) (bool, error)
	ListDueOrganizations(now time.Time) ([]models.Organization, error)
	ApplyRenewalOutcome(orgID uint, o RenewalOutcome) (*models.Organization, error)

	AppendAuditLog(entry *models.AuditLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reconciliation repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) FindTransactionByCorrelation(provider, code string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("provider = ? AND correlation_code = ?", provider, code).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) FindTransactionByID(id string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) LatestPendingTransaction(provider string, orgID uint) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.
		Where("provider = ? AND organization_id = ? AND status = ?", provider, orgID, models.TxnStatusPending).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) FindOrganizationByUUID(uuid string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("uuid = ?", uuid).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) FindOrganizationByID(id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) OwnerEmail(orgID uint) (string, error) {
	var org models.Organization
	if err := r.db.Select("owner_user_id").Where("id = ?", orgID).First(&org).Error; err != nil {
		return "", err
	}
	var user models.User
	if err := r.db.Select("email").Where("id = ?", org.OwnerUserID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}

// terminalTransactionUpdates builds the column set for a pending transaction's
// one-way transition. completed_at is a success timestamp and stays NULL on
// failed transactions; the correlation code is only backfilled, never replaced.
func terminalTransactionUpdates(txn *models.PaymentTransaction, o TransactionOutcome, now time.Time) map[string]interface{} {
	newStatus := models.TxnStatusFailed
	if o.Success {
		newStatus = models.TxnStatusCompleted
	}

	updates := map[string]interface{}{
		"status":        newStatus,
		"gateway_error": o.ErrorText,
	}
	if o.Success {
		updates["completed_at"] = &now
	}
	if o.CardMask != "" {
		updates["card_mask"] = o.CardMask
	}
	if o.CorrelationCode != "" && txn.CorrelationCode == "" {
		updates["correlation_code"] = o.CorrelationCode
	}
	return updates
}

// ApplyTransactionOutcome moves a pending transaction to its terminal status
// and, on success, activates the subscription. The status='pending' predicate
// makes the terminal transition happen at most once even under concurrent
// duplicate deliveries.
func (r *gormRepository) ApplyTransactionOutcome(txnID string, o TransactionOutcome) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var txn models.PaymentTransaction
		if err := tx.Where("id = ?", txnID).First(&txn).Error; err != nil {
			return err
		}

		now := time.Now()
		updates := terminalTransactionUpdates(&txn, o, now)

		res := tx.Model(&models.PaymentTransaction{}).
			Where("id = ? AND status = ?", txnID, models.TxnStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already terminal; re-delivery is a no-op.
			return nil
		}
		applied = true

		if !o.Success {
			return tx.Create(&models.PaymentLog{
				OrganizationID: txn.OrganizationID,
				TransactionID:  txn.ID,
				Provider:       txn.Provider,
				Kind:           models.PaymentLogFailure,
				Amount:         txn.Amount,
				Success:        false,
				Detail:         o.ErrorText,
			}).Error
		}

		tier := plans.Normalize(txn.Plan)
		start := now
		end := plans.PeriodEnd(start, txn.AnnualBilling)
		questionQuota, documentQuota := plans.Quota(tier)

		sub := &models.Subscription{
			OrganizationID: txn.OrganizationID,
			Tier:           string(tier),
			MonthlyPrice:   plans.MonthlyPrice(tier),
			AnnualBilling:  txn.AnnualBilling,
			Status:         models.SubStatusActive,
			CycleStart:     &start,
			CycleEnd:       &end,
			ChargeToken:    o.Token,
			QuestionQuota:  questionQuota,
			DocumentQuota:  documentQuota,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tier",
				"monthly_price",
				"annual_billing",
				"status",
				"cycle_start",
				"cycle_end",
				"charge_token",
				"question_quota",
				"document_quota",
				"updated_at",
			}),
		}).Create(sub).Error; err != nil {
			return err
		}

		orgUpdates := map[string]interface{}{
			"tier":                    string(tier),
			"subscription_status":     models.SubStatusActive,
			"subscription_start":      &start,
			"subscription_end":        &end,
			"annual_billing":          txn.AnnualBilling,
			"payment_provider":        txn.Provider,
			"last_payment_amount":     txn.Amount,
			"last_payment_at":         &now,
			"failed_payment_attempts": 0,
		}
		if o.Token != "" {
			orgUpdates["payment_token"] = o.Token
			orgUpdates["payment_token_expiry"] = o.TokenExpiry
		}
		if o.CardMask != "" {
			orgUpdates["card_mask"] = o.CardMask
		}
		if err := tx.Model(&models.Organization{}).
			Where("id = ?", txn.OrganizationID).
			Updates(orgUpdates).Error; err != nil {
			return err
		}

		return tx.Create(&models.PaymentLog{
			OrganizationID: txn.OrganizationID,
			TransactionID:  txn.ID,
			Provider:       txn.Provider,
			Kind:           models.PaymentLogCharge,
			Amount:         txn.Amount,
			Success:        true,
			Detail:         "checkout completed",
		}).Error
	})
	return applied, err
}

// ListDueOrganizations returns active monthly organizations whose period has
// lapsed. Self-renewing gateways are excluded: their renewals arrive as
// webhooks and there is no token the sweeper could charge.
func (r *gormRepository) ListDueOrganizations(now time.Time) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.
		Where("subscription_status = ? AND annual_billing = ? AND subscription_end IS NOT NULL AND subscription_end < ?",
			models.SubStatusActive, false, now).
		Where("payment_provider NOT IN ?", payments.SelfRenewingProviders()).
		Order("subscription_end ASC").
		Find(&orgs).Error
	return orgs, err
}

// ApplyRenewalOutcome extends or demotes one organization after a sweeper
// charge. Success extends from the previous period end, not from now, so a
// late sweep does not shift the billing anchor.
func (r *gormRepository) ApplyRenewalOutcome(orgID uint, o RenewalOutcome) (*models.Organization, error) {
	var out models.Organization
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.Where("id = ?", orgID).First(&org).Error; err != nil {
			return err
		}

		now := o.Now
		if now.IsZero() {
			now = time.Now()
		}

		if o.Success {
			prevEnd := now
			if org.SubscriptionEnd != nil {
				prevEnd = *org.SubscriptionEnd
			}
			newEnd := plans.PeriodEnd(prevEnd, false)

			if err := tx.Model(&models.Organization{}).Where("id = ?", org.ID).Updates(map[string]interface{}{
				"subscription_status":     models.SubStatusActive,
				"subscription_end":        &newEnd,
				"last_payment_amount":     o.Amount,
				"last_payment_at":         &now,
				"failed_payment_attempts": 0,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Subscription{}).Where("organization_id = ?", org.ID).Updates(map[string]interface{}{
				"status":      models.SubStatusActive,
				"cycle_start": &prevEnd,
				"cycle_end":   &newEnd,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.PaymentLog{
				OrganizationID: org.ID,
				Provider:       org.PaymentProvider,
				Kind:           models.PaymentLogRenewal,
				Amount:         o.Amount,
				Success:        true,
				Detail:         "recurring charge",
			}).Error; err != nil {
				return err
			}
		} else {
			attempts := org.FailedPaymentAttempts + 1
			updates := map[string]interface{}{
				"failed_payment_attempts": attempts,
			}
			if attempts >= models.MaxFailedPaymentAttempts {
				updates["subscription_status"] = models.SubStatusPastDue
			}
			if err := tx.Model(&models.Organization{}).Where("id = ?", org.ID).Updates(updates).Error; err != nil {
				return err
			}
			if attempts >= models.MaxFailedPaymentAttempts {
				if err := tx.Model(&models.Subscription{}).Where("organization_id = ?", org.ID).
					Update("status", models.SubStatusPastDue).Error; err != nil {
					return err
				}
			}
			if err := tx.Create(&models.PaymentLog{
				OrganizationID: org.ID,
				Provider:       org.PaymentProvider,
				Kind:           models.PaymentLogFailure,
				Amount:         o.Amount,
				Success:        false,
				Detail:         o.ErrorText,
			}).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", org.ID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *gormRepository) AppendAuditLog(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}
