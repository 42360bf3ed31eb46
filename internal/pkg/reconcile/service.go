package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
)

// ErrTransactionNotFound means no pending transaction could be matched to a
// gateway callback after the full fallback chain ran. Webhook controllers map
// it to an HTTP 200 body with success=false.
var ErrTransactionNotFound = errors.New("payment transaction not found")

// Notifier dispatches best-effort emails. The jobqueue adapter implements it;
// tests substitute a recorder.
type Notifier interface {
	EnqueueEmail(to, subject, body string) error
}

// Service is the shared subscription/organization state updater. Every
// gateway webhook and the recurring billing sweep funnel through it.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, notifier Notifier) *Service {
	return NewService(NewRepository(db), notifier)
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// provider id are keyed by a payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ResolveTransaction matches a normalized callback to its pending
// transaction: correlation code first, then the echoed synthetic id, then the
// most recent pending transaction for the organization. The last step is the
// weakest match and only runs when the gateway returned neither identifier.
func (s *Service) ResolveTransaction(ctx context.Context, res *payments.CallbackResult) (*models.PaymentTransaction, error) {
	_ = ctx
	if code := strings.TrimSpace(res.CorrelationCode); code != "" {
		txn, err := s.repo.FindTransactionByCorrelation(res.Provider, code)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if id := strings.TrimSpace(res.TransactionID); id != "" {
		txn, err := s.repo.FindTransactionByID(id)
		if err == nil {
			if txn.Provider == res.Provider {
				return txn, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if orgUUID := strings.TrimSpace(res.OrgUUID); orgUUID != "" {
		org, err := s.repo.FindOrganizationByUUID(orgUUID)
		if err == nil {
			txn, err := s.repo.LatestPendingTransaction(res.Provider, org.ID)
			if err == nil {
				return txn, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, ErrTransactionNotFound
}

// HandleCallback applies a normalized gateway callback end to end: resolve
// the transaction, apply the outcome atomically, then fire best-effort side
// effects. Re-delivery of an already-terminal transaction reports Duplicate.
func (s *Service) HandleCallback(ctx context.Context, res *payments.CallbackResult) (*CallbackReport, error) {
	if res.Renewal {
		return s.handleRenewalCallback(ctx, res)
	}

	txn, err := s.ResolveTransaction(ctx, res)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.ApplyTransactionOutcome(txn.ID, TransactionOutcome{
		Success:         res.Success,
		Amount:          res.Amount,
		CorrelationCode: res.CorrelationCode,
		Token:           res.Token,
		TokenExpiry:     res.TokenExpiry,
		CardMask:        res.CardMask,
		ErrorText:       res.ErrorText,
	})
	if err != nil {
		return nil, err
	}

	report := &CallbackReport{
		TransactionID: txn.ID,
		Applied:       applied,
		Duplicate:     !applied,
	}
	if !applied {
		return report, nil
	}

	s.audit(txn, res)
	s.notifyOutcome(txn, res.Success)
	return report, nil
}

// handleRenewalCallback applies a gateway-initiated renewal invoice. These
// never have a pending transaction: the organization is resolved through the
// echoed org uuid and the current period is extended or the failure counted,
// exactly as for a sweeper charge.
func (s *Service) handleRenewalCallback(ctx context.Context, res *payments.CallbackResult) (*CallbackReport, error) {
	orgUUID := strings.TrimSpace(res.OrgUUID)
	if orgUUID == "" {
		return nil, ErrTransactionNotFound
	}
	org, err := s.repo.FindOrganizationByUUID(orgUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if _, err := s.ApplyRenewal(ctx, org.ID, RenewalOutcome{
		Success:   res.Success,
		Amount:    res.Amount,
		ErrorText: res.ErrorText,
	}); err != nil {
		return nil, err
	}

	action := "renewal.failed"
	if res.Success {
		action = "renewal.completed"
	}
	if err := s.repo.AppendAuditLog(&models.AuditLog{
		OrganizationID: org.ID,
		Action:         action,
		Detail:         fmt.Sprintf("provider=%s event=%s amount=%d", res.Provider, res.EventType, res.Amount),
	}); err != nil {
		log.Errorf("[Reconcile] audit log write failed: %v", err)
	}

	return &CallbackReport{Applied: true, Renewal: true}, nil
}

// ApplyRenewal records one sweeper charge outcome for an organization.
func (s *Service) ApplyRenewal(ctx context.Context, orgID uint, o RenewalOutcome) (*models.Organization, error) {
	_ = ctx
	org, err := s.repo.ApplyRenewalOutcome(orgID, o)
	if err != nil {
		return nil, err
	}

	if o.Success {
		s.notifyRenewal(org, true, "")
	} else if org.SubscriptionStatus == models.SubStatusPastDue {
		s.notifyRenewal(org, false, o.ErrorText)
	}
	return org, nil
}

// ListDueOrganizations exposes the sweeper query through the service.
func (s *Service) ListDueOrganizations(ctx context.Context) ([]models.Organization, error) {
	_ = ctx
	return s.repo.ListDueOrganizations(time.Now())
}

func (s *Service) audit(txn *models.PaymentTransaction, res *payments.CallbackResult) {
	action := "payment.failed"
	if res.Success {
		action = "payment.completed"
	}
	entry := &models.AuditLog{
		OrganizationID: txn.OrganizationID,
		UserID:         txn.UserID,
		Action:         action,
		Detail:         fmt.Sprintf("provider=%s transaction=%s amount=%d", txn.Provider, txn.ID, txn.Amount),
	}
	if err := s.repo.AppendAuditLog(entry); err != nil {
		// Audit writes never block payment processing.
		log.Errorf("[Reconcile] audit log write failed: %v", err)
	}
}

func (s *Service) notifyOutcome(txn *models.PaymentTransaction, success bool) {
	if s.notifier == nil {
		return
	}
	email, err := s.repo.OwnerEmail(txn.OrganizationID)
	if err != nil || email == "" {
		log.Warnf("[Reconcile] no owner email for org %d: %v", txn.OrganizationID, err)
		return
	}

	subject := "התשלום נכשל - שירות DPO"
	body := fmt.Sprintf("<p>התשלום עבור מנוי %s לא אושר. נא לנסות שוב או לפנות לתמיכה.</p>", txn.Plan)
	if success {
		subject = "אישור תשלום - שירות DPO"
		body = fmt.Sprintf("<p>התשלום על סך %d ש\"ח עבור מנוי %s התקבל. המנוי פעיל.</p>", txn.Amount, txn.Plan)
	}
	if err := s.notifier.EnqueueEmail(email, subject, body); err != nil {
		log.Errorf("[Reconcile] email enqueue failed: %v", err)
	}
}

func (s *Service) notifyRenewal(org *models.Organization, success bool, errText string) {
	if s.notifier == nil {
		return
	}
	email, err := s.repo.OwnerEmail(org.ID)
	if err != nil || email == "" {
		return
	}

	if success {
		_ = s.notifier.EnqueueEmail(email,
			"חידוש מנוי - שירות DPO",
			fmt.Sprintf("<p>המנוי החודשי חודש בהצלחה על סך %d ש\"ח.</p>", org.LastPaymentAmount))
		return
	}
	_ = s.notifier.EnqueueEmail(email,
		"חיוב המנוי נכשל - שירות DPO",
		fmt.Sprintf("<p>החיוב החודשי נכשל (%s). המנוי הועבר למצב פיגור תשלום.</p>", errText))
}
