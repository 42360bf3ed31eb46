package controllers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/reconcile"
)

// webhookRepo backs the reconcile service in controller tests. The controller
// holds the service in a package-level singleton, so one stub serves every
// test in the binary; its maps are reset per test.
type webhookRepo struct {
	seenEvents   map[string]bool
	nextEventID  uint
	transactions map[string]*models.PaymentTransaction
	applied      map[string]reconcile.TransactionOutcome
}

var stubRepo = &webhookRepo{}

func (r *webhookRepo) reset() {
	r.seenEvents = map[string]bool{}
	r.nextEventID = 0
	r.transactions = map[string]*models.PaymentTransaction{}
	r.applied = map[string]reconcile.TransactionOutcome{}
}

func (r *webhookRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if r.seenEvents[key] {
		return false, event, nil
	}
	r.seenEvents[key] = true
	r.nextEventID++
	event.ID = r.nextEventID
	return true, event, nil
}

func (r *webhookRepo) MarkWebhookProcessed(id uint, processingError string) error {
	return nil
}

func (r *webhookRepo) FindTransactionByCorrelation(provider, code string) (*models.PaymentTransaction, error) {
	for _, txn := range r.transactions {
		if txn.Provider == provider && txn.CorrelationCode == code {
			return txn, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) FindTransactionByID(id string) (*models.PaymentTransaction, error) {
	if txn, ok := r.transactions[id]; ok {
		return txn, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) LatestPendingTransaction(provider string, orgID uint) (*models.PaymentTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) FindOrganizationByUUID(uuid string) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) FindOrganizationByID(id uint) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) OwnerEmail(orgID uint) (string, error) {
	return "", gorm.ErrRecordNotFound
}

func (r *webhookRepo) ApplyTransactionOutcome(txnID string, o reconcile.TransactionOutcome) (bool, error) {
	if _, ok := r.applied[txnID]; ok {
		return false, nil
	}
	r.applied[txnID] = o
	if txn, ok := r.transactions[txnID]; ok {
		txn.Status = models.TxnStatusFailed
		if o.Success {
			txn.Status = models.TxnStatusCompleted
		}
	}
	return true, nil
}

func (r *webhookRepo) ListDueOrganizations(now time.Time) ([]models.Organization, error) {
	return nil, nil
}

func (r *webhookRepo) ApplyRenewalOutcome(orgID uint, o reconcile.RenewalOutcome) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookRepo) AppendAuditLog(entry *models.AuditLog) error {
	return nil
}

func newWebhookTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("CARDCOM_TERMINAL", "1000")
	t.Setenv("CARDCOM_USERNAME", "api-user")

	stubRepo.reset()
	reconcileOnce.Do(func() {
		reconcileService = reconcile.NewService(stubRepo, nil)
	})

	app := fiber.New()
	app.Post("/webhooks/cardcom", HandleCardcomWebhook)
	return app
}

func postWebhookForm(t *testing.T, app *fiber.App, path, form string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCardcomWebhookUnmatchedPaymentAnswers200(t *testing.T) {
	app := newWebhookTestApp(t)

	status, body := postWebhookForm(t, app, "/webhooks/cardcom",
		"lowprofilecode=lp-ghost&OperationResponse=0&ReturnValue=TXN-9-1")

	assert.Equal(t, fiber.StatusOK, status, "gateways retry-storm on non-200")
	assert.JSONEq(t, `{"success":false,"error":"Payment not found"}`, body)
}

func TestCardcomWebhookCompletesPendingTransaction(t *testing.T) {
	app := newWebhookTestApp(t)
	stubRepo.transactions["TXN-5-100"] = &models.PaymentTransaction{
		ID:             "TXN-5-100",
		OrganizationID: 5,
		Provider:       models.ProviderCardcom,
		Status:         models.TxnStatusPending,
	}

	status, body := postWebhookForm(t, app, "/webhooks/cardcom",
		"lowprofilecode=lp-55&OperationResponse=0&ReturnValue=TXN-5-100&SumToBill=500")

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"transaction":"TXN-5-100","duplicate":false}`, body)
	assert.Equal(t, models.TxnStatusCompleted, stubRepo.transactions["TXN-5-100"].Status)
}

func TestCardcomWebhookDuplicateDeliveryAcknowledged(t *testing.T) {
	app := newWebhookTestApp(t)
	stubRepo.transactions["TXN-6-200"] = &models.PaymentTransaction{
		ID:             "TXN-6-200",
		OrganizationID: 6,
		Provider:       models.ProviderCardcom,
		Status:         models.TxnStatusPending,
	}
	form := "lowprofilecode=lp-66&OperationResponse=0&ReturnValue=TXN-6-200"

	status, _ := postWebhookForm(t, app, "/webhooks/cardcom", form)
	require.Equal(t, fiber.StatusOK, status)

	// Same lowprofilecode again: acknowledged without reapplying.
	status, body := postWebhookForm(t, app, "/webhooks/cardcom", form)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"duplicate":true}`, body)
	assert.Len(t, stubRepo.applied, 1)
}

func TestCardcomWebhookMalformedBodyAnswers200(t *testing.T) {
	app := newWebhookTestApp(t)

	status, body := postWebhookForm(t, app, "/webhooks/cardcom",
		"OperationResponse=0&ReturnValue=TXN-7-1")

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":false,"error":"invalid payload"}`, body)
}
