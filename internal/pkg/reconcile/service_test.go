package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
)

type fakeRepository struct {
	events       map[string]*models.WebhookEvent
	transactions map[string]*models.PaymentTransaction
	orgs         map[uint]*models.Organization
	ownerEmails  map[uint]string
	audits       []*models.AuditLog
	applied      []string
	processed    map[uint]string

	nextEventID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		events:       map[string]*models.WebhookEvent{},
		transactions: map[string]*models.PaymentTransaction{},
		orgs:         map[uint]*models.Organization{},
		ownerEmails:  map[uint]string{},
		processed:    map[uint]string{},
	}
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	f.processed[id] = processingError
	return nil
}

func (f *fakeRepository) FindTransactionByCorrelation(provider, code string) (*models.PaymentTransaction, error) {
	for _, txn := range f.transactions {
		if txn.Provider == provider && txn.CorrelationCode == code && code != "" {
			return txn, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindTransactionByID(id string) (*models.PaymentTransaction, error) {
	if txn, ok := f.transactions[id]; ok {
		return txn, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) LatestPendingTransaction(provider string, orgID uint) (*models.PaymentTransaction, error) {
	var latest *models.PaymentTransaction
	for _, txn := range f.transactions {
		if txn.Provider != provider || txn.OrganizationID != orgID || txn.Status != models.TxnStatusPending {
			continue
		}
		if latest == nil || txn.CreatedAt.After(latest.CreatedAt) {
			latest = txn
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeRepository) FindOrganizationByUUID(uuid string) (*models.Organization, error) {
	for _, org := range f.orgs {
		if org.UUID == uuid {
			return org, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindOrganizationByID(id uint) (*models.Organization, error) {
	if org, ok := f.orgs[id]; ok {
		return org, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) OwnerEmail(orgID uint) (string, error) {
	if email, ok := f.ownerEmails[orgID]; ok {
		return email, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (f *fakeRepository) ApplyTransactionOutcome(txnID string, o TransactionOutcome) (bool, error) {
	txn, ok := f.transactions[txnID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if txn.Status != models.TxnStatusPending {
		return false, nil
	}
	if o.Success {
		txn.Status = models.TxnStatusCompleted
	} else {
		txn.Status = models.TxnStatusFailed
	}
	f.applied = append(f.applied, txnID)
	return true, nil
}

func (f *fakeRepository) ListDueOrganizations(now time.Time) ([]models.Organization, error) {
	var due []models.Organization
	for _, org := range f.orgs {
		if org.SubscriptionStatus == models.SubStatusActive && !org.AnnualBilling &&
			org.SubscriptionEnd != nil && org.SubscriptionEnd.Before(now) {
			due = append(due, *org)
		}
	}
	return due, nil
}

func (f *fakeRepository) ApplyRenewalOutcome(orgID uint, o RenewalOutcome) (*models.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if o.Success {
		org.FailedPaymentAttempts = 0
		org.LastPaymentAmount = o.Amount
	} else {
		org.FailedPaymentAttempts++
		if org.FailedPaymentAttempts >= models.MaxFailedPaymentAttempts {
			org.SubscriptionStatus = models.SubStatusPastDue
		}
	}
	return org, nil
}

func (f *fakeRepository) AppendAuditLog(entry *models.AuditLog) error {
	f.audits = append(f.audits, entry)
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) EnqueueEmail(to, subject, body string) error {
	n.sent = append(n.sent, to+": "+subject)
	return nil
}

func pendingTxn(id string, orgID uint, provider string) *models.PaymentTransaction {
	return &models.PaymentTransaction{
		ID:             id,
		OrganizationID: orgID,
		UserID:         1,
		Amount:         500,
		Plan:           models.TierBasic,
		Provider:       provider,
		Status:         models.TxnStatusPending,
		CreatedAt:      time.Now(),
	}
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)

	in := WebhookEventInput{
		Provider:        models.ProviderCardcom,
		ProviderEventID: "lp-code-1",
		PayloadJSON:     `{"a":1}`,
	}

	created, first, err := svc.RecordWebhookEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected first delivery to create the event")
	}

	created, second, err := svc.RecordWebhookEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected re-delivery to be a duplicate")
	}
	if first.ID != second.ID {
		t.Fatalf("expected same stored event, got %d and %d", first.ID, second.ID)
	}
}

func TestRecordWebhookEventHashFallback(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, nil)

	_, event, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    models.ProviderTranzila,
		PayloadJSON: "Response=000&index=1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(event.ProviderEventID, "hash:") {
		t.Fatalf("expected hash fallback event id, got %q", event.ProviderEventID)
	}
}

func TestResolveTransactionByCorrelation(t *testing.T) {
	repo := newFakeRepository()
	txn := pendingTxn("TXN-1-100", 1, models.ProviderCardcom)
	txn.CorrelationCode = "lp-42"
	repo.transactions[txn.ID] = txn

	svc := NewService(repo, nil)
	got, err := svc.ResolveTransaction(context.Background(), &payments.CallbackResult{
		Provider:        models.ProviderCardcom,
		CorrelationCode: "lp-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != txn.ID {
		t.Fatalf("resolved %q, want %q", got.ID, txn.ID)
	}
}

func TestResolveTransactionFallsBackToEchoedID(t *testing.T) {
	repo := newFakeRepository()
	txn := pendingTxn("TXN-2-200", 2, models.ProviderTranzila)
	repo.transactions[txn.ID] = txn

	svc := NewService(repo, nil)
	got, err := svc.ResolveTransaction(context.Background(), &payments.CallbackResult{
		Provider:        models.ProviderTranzila,
		CorrelationCode: "no-such-index",
		TransactionID:   "TXN-2-200",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != txn.ID {
		t.Fatalf("resolved %q, want %q", got.ID, txn.ID)
	}
}

func TestResolveTransactionFallsBackToLatestPending(t *testing.T) {
	repo := newFakeRepository()
	org := &models.Organization{ID: 3, UUID: "org-uuid-3"}
	repo.orgs[org.ID] = org

	older := pendingTxn("TXN-3-100", 3, models.ProviderHYP)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := pendingTxn("TXN-3-200", 3, models.ProviderHYP)
	repo.transactions[older.ID] = older
	repo.transactions[newer.ID] = newer

	svc := NewService(repo, nil)
	got, err := svc.ResolveTransaction(context.Background(), &payments.CallbackResult{
		Provider: models.ProviderHYP,
		OrgUUID:  "org-uuid-3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("resolved %q, want newest pending %q", got.ID, newer.ID)
	}
}

func TestResolveTransactionNotFound(t *testing.T) {
	svc := NewService(newFakeRepository(), nil)
	_, err := svc.ResolveTransaction(context.Background(), &payments.CallbackResult{
		Provider:        models.ProviderCardcom,
		CorrelationCode: "ghost",
	})
	if err != ErrTransactionNotFound {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestHandleCallbackAppliesOnce(t *testing.T) {
	repo := newFakeRepository()
	txn := pendingTxn("TXN-4-400", 4, models.ProviderCardcom)
	txn.CorrelationCode = "lp-4"
	repo.transactions[txn.ID] = txn
	repo.ownerEmails[4] = "owner@example.co.il"

	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier)

	res := &payments.CallbackResult{
		Provider:        models.ProviderCardcom,
		CorrelationCode: "lp-4",
		Success:         true,
		Amount:          500,
		Token:           "cc_tok",
	}

	report, err := svc.HandleCallback(context.Background(), res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Applied || report.Duplicate {
		t.Fatalf("first delivery: applied=%v duplicate=%v", report.Applied, report.Duplicate)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", len(notifier.sent))
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != "payment.completed" {
		t.Fatalf("expected payment.completed audit entry")
	}

	report, err = svc.HandleCallback(context.Background(), res)
	if err != nil {
		t.Fatalf("unexpected error on re-delivery: %v", err)
	}
	if report.Applied || !report.Duplicate {
		t.Fatalf("re-delivery: applied=%v duplicate=%v", report.Applied, report.Duplicate)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("re-delivery must not send another email")
	}
}

func TestHandleCallbackFailureAudited(t *testing.T) {
	repo := newFakeRepository()
	txn := pendingTxn("TXN-5-500", 5, models.ProviderTranzila)
	txn.CorrelationCode = "idx-5"
	repo.transactions[txn.ID] = txn
	repo.ownerEmails[5] = "owner@example.co.il"

	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier)

	report, err := svc.HandleCallback(context.Background(), &payments.CallbackResult{
		Provider:        models.ProviderTranzila,
		CorrelationCode: "idx-5",
		Success:         false,
		ErrorText:       "card declined",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected failure to be applied")
	}
	if repo.transactions[txn.ID].Status != models.TxnStatusFailed {
		t.Fatalf("status = %q, want failed", repo.transactions[txn.ID].Status)
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != "payment.failed" {
		t.Fatalf("expected payment.failed audit entry")
	}
}

func TestHandleCallbackRenewalExtendsWithoutPendingTransaction(t *testing.T) {
	repo := newFakeRepository()
	org := &models.Organization{
		ID:                    7,
		UUID:                  "org-uuid-7",
		SubscriptionStatus:    models.SubStatusActive,
		FailedPaymentAttempts: 2,
	}
	repo.orgs[org.ID] = org
	repo.ownerEmails[7] = "owner@example.co.il"

	svc := NewService(repo, &fakeNotifier{})

	report, err := svc.HandleCallback(context.Background(), &payments.CallbackResult{
		Provider:  models.ProviderLemonSqueezy,
		EventType: "subscription_payment_success",
		OrgUUID:   "org-uuid-7",
		Renewal:   true,
		Success:   true,
		Amount:    500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Applied || !report.Renewal {
		t.Fatalf("report = %+v, want applied renewal", report)
	}
	if org.LastPaymentAmount != 500 {
		t.Fatalf("amount not recorded, got %d", org.LastPaymentAmount)
	}
	if org.FailedPaymentAttempts != 0 {
		t.Fatalf("failure counter not reset by successful renewal")
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != "renewal.completed" {
		t.Fatalf("expected renewal.completed audit entry")
	}
}

func TestHandleCallbackRenewalNeverTouchesPendingTransaction(t *testing.T) {
	repo := newFakeRepository()
	org := &models.Organization{ID: 8, UUID: "org-uuid-8", SubscriptionStatus: models.SubStatusActive}
	repo.orgs[org.ID] = org

	// An open upgrade checkout must survive an unrelated renewal invoice.
	txn := pendingTxn("TXN-8-800", 8, models.ProviderLemonSqueezy)
	repo.transactions[txn.ID] = txn

	svc := NewService(repo, nil)
	if _, err := svc.HandleCallback(context.Background(), &payments.CallbackResult{
		Provider: models.ProviderLemonSqueezy,
		OrgUUID:  "org-uuid-8",
		Renewal:  true,
		Success:  true,
		Amount:   500,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.transactions[txn.ID].Status != models.TxnStatusPending {
		t.Fatalf("renewal completed a pending checkout transaction")
	}
	if len(repo.applied) != 0 {
		t.Fatalf("renewal applied a transaction outcome")
	}
}

func TestHandleCallbackRenewalFailureCountsAgainstOrg(t *testing.T) {
	repo := newFakeRepository()
	org := &models.Organization{
		ID:                    9,
		UUID:                  "org-uuid-9",
		SubscriptionStatus:    models.SubStatusActive,
		FailedPaymentAttempts: models.MaxFailedPaymentAttempts - 1,
	}
	repo.orgs[org.ID] = org
	repo.ownerEmails[9] = "owner@example.co.il"

	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier)

	report, err := svc.HandleCallback(context.Background(), &payments.CallbackResult{
		Provider:  models.ProviderLemonSqueezy,
		EventType: "subscription_payment_failed",
		OrgUUID:   "org-uuid-9",
		Renewal:   true,
		Success:   false,
		ErrorText: "card declined",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected failed renewal to be applied")
	}
	if org.SubscriptionStatus != models.SubStatusPastDue {
		t.Fatalf("status = %q, want past_due after final failure", org.SubscriptionStatus)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected past_due notification")
	}
}

func TestHandleCallbackRenewalUnknownOrg(t *testing.T) {
	svc := NewService(newFakeRepository(), nil)
	_, err := svc.HandleCallback(context.Background(), &payments.CallbackResult{
		Provider: models.ProviderLemonSqueezy,
		OrgUUID:  "ghost",
		Renewal:  true,
		Success:  true,
	})
	if err != ErrTransactionNotFound {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestApplyRenewalDemotionNotifies(t *testing.T) {
	repo := newFakeRepository()
	org := &models.Organization{
		ID:                    6,
		UUID:                  "org-uuid-6",
		SubscriptionStatus:    models.SubStatusActive,
		FailedPaymentAttempts: models.MaxFailedPaymentAttempts - 1,
	}
	repo.orgs[org.ID] = org
	repo.ownerEmails[6] = "owner@example.co.il"

	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier)

	got, err := svc.ApplyRenewal(context.Background(), 6, RenewalOutcome{
		Success:   false,
		ErrorText: "insufficient funds",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SubscriptionStatus != models.SubStatusPastDue {
		t.Fatalf("status = %q, want past_due after final failure", got.SubscriptionStatus)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected past_due notification, got %d emails", len(notifier.sent))
	}
}
