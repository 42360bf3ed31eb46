package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/reconcile"
)

// sweepRepo implements just enough of reconcile.Repository for sweep tests.
type sweepRepo struct {
	orgs     map[uint]*models.Organization
	renewals []reconcile.RenewalOutcome
}

func newSweepRepo(orgs ...*models.Organization) *sweepRepo {
	r := &sweepRepo{orgs: map[uint]*models.Organization{}}
	for _, org := range orgs {
		r.orgs[org.ID] = org
	}
	return r
}

func (r *sweepRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return false, nil, errors.New("not used")
}

func (r *sweepRepo) MarkWebhookProcessed(id uint, processingError string) error {
	return errors.New("not used")
}

func (r *sweepRepo) FindTransactionByCorrelation(provider, code string) (*models.PaymentTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) FindTransactionByID(id string) (*models.PaymentTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) LatestPendingTransaction(provider string, orgID uint) (*models.PaymentTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) FindOrganizationByUUID(uuid string) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) FindOrganizationByID(id uint) (*models.Organization, error) {
	if org, ok := r.orgs[id]; ok {
		return org, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) OwnerEmail(orgID uint) (string, error) {
	return "", gorm.ErrRecordNotFound
}

func (r *sweepRepo) ApplyTransactionOutcome(txnID string, o reconcile.TransactionOutcome) (bool, error) {
	return false, errors.New("not used")
}

func (r *sweepRepo) ListDueOrganizations(now time.Time) ([]models.Organization, error) {
	var due []models.Organization
	for _, org := range r.orgs {
		if org.SubscriptionStatus == models.SubStatusActive && !org.AnnualBilling &&
			org.SubscriptionEnd != nil && org.SubscriptionEnd.Before(now) {
			due = append(due, *org)
		}
	}
	return due, nil
}

func (r *sweepRepo) ApplyRenewalOutcome(orgID uint, o reconcile.RenewalOutcome) (*models.Organization, error) {
	org, ok := r.orgs[orgID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.renewals = append(r.renewals, o)
	if o.Success {
		prevEnd := *org.SubscriptionEnd
		newEnd := prevEnd.AddDate(0, 1, 0)
		org.SubscriptionEnd = &newEnd
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

func (r *sweepRepo) AppendAuditLog(entry *models.AuditLog) error {
	return nil
}

func dueOrg(id uint, tier string, attempts int) *models.Organization {
	end := time.Now().Add(-24 * time.Hour)
	return &models.Organization{
		ID:                    id,
		UUID:                  "org-uuid",
		Tier:                  tier,
		SubscriptionStatus:    models.SubStatusActive,
		SubscriptionEnd:       &end,
		PaymentProvider:       models.ProviderCardcom,
		PaymentToken:          "cc_tok",
		PaymentTokenExpiry:    "12/27",
		FailedPaymentAttempts: attempts,
	}
}

func TestSweepChargesAndExtends(t *testing.T) {
	org := dueOrg(1, models.TierBasic, 0)
	prevEnd := *org.SubscriptionEnd
	repo := newSweepRepo(org)
	svc := reconcile.NewService(repo, nil)

	sweeper := NewSweeperWithCharge(svc, func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
		if provider != models.ProviderCardcom {
			t.Fatalf("provider = %q", provider)
		}
		if req.Amount != 500 {
			t.Fatalf("amount = %d, want 500 for monthly basic", req.Amount)
		}
		if req.Token != "cc_tok" {
			t.Fatalf("token = %q", req.Token)
		}
		return &payments.ChargeResult{Success: true, Reference: "ref-1"}, nil
	})

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Due != 1 || report.Charged != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}

	wantEnd := prevEnd.AddDate(0, 1, 0)
	if !org.SubscriptionEnd.Equal(wantEnd) {
		t.Fatalf("extended to %v, want previous end + 1 month (%v)", org.SubscriptionEnd, wantEnd)
	}
	if org.FailedPaymentAttempts != 0 {
		t.Fatalf("failure counter not reset")
	}
}

func TestSweepThirdFailureDemotes(t *testing.T) {
	org := dueOrg(2, models.TierExtended, models.MaxFailedPaymentAttempts-1)
	repo := newSweepRepo(org)
	svc := reconcile.NewService(repo, nil)

	sweeper := NewSweeperWithCharge(svc, func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
		return &payments.ChargeResult{Success: false, ErrorText: "card expired"}, nil
	})

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if org.SubscriptionStatus != models.SubStatusPastDue {
		t.Fatalf("status = %q, want past_due after third consecutive failure", org.SubscriptionStatus)
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	broken := dueOrg(3, models.TierBasic, 0)
	broken.PaymentToken = ""
	healthy := dueOrg(4, models.TierBasic, 0)

	repo := newSweepRepo(broken, healthy)
	svc := reconcile.NewService(repo, nil)

	sweeper := NewSweeperWithCharge(svc, func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
		return &payments.ChargeResult{Success: true}, nil
	})

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Charged != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v, want one charged and one failed", report)
	}
	if healthy.FailedPaymentAttempts != 0 {
		t.Fatalf("healthy org affected by broken org")
	}
	if broken.FailedPaymentAttempts != 1 {
		t.Fatalf("broken org attempts = %d, want 1", broken.FailedPaymentAttempts)
	}
}

func TestSweepSkipsSelfRenewingProvider(t *testing.T) {
	org := dueOrg(6, models.TierBasic, 2)
	org.PaymentProvider = models.ProviderLemonSqueezy
	org.PaymentToken = ""
	repo := newSweepRepo(org)
	svc := reconcile.NewService(repo, nil)

	sweeper := NewSweeperWithCharge(svc, func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
		t.Fatalf("charge attempted for self-renewing provider %q", provider)
		return nil, nil
	})

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Skipped != 1 || report.Failed != 0 || report.Charged != 0 {
		t.Fatalf("report = %+v, want one skipped and nothing else", report)
	}
	if org.SubscriptionStatus != models.SubStatusActive {
		t.Fatalf("status = %q, sweep must not demote gateway-billed orgs", org.SubscriptionStatus)
	}
	if org.FailedPaymentAttempts != 2 {
		t.Fatalf("attempts = %d, want unchanged", org.FailedPaymentAttempts)
	}
	if len(repo.renewals) != 0 {
		t.Fatalf("renewal outcome recorded for skipped org")
	}
}

func TestSweepEnterpriseChargedAsExtended(t *testing.T) {
	org := dueOrg(5, models.TierEnterprise, 0)
	repo := newSweepRepo(org)
	svc := reconcile.NewService(repo, nil)

	var charged int
	sweeper := NewSweeperWithCharge(svc, func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
		charged = req.Amount
		return &payments.ChargeResult{Success: true}, nil
	})

	if _, err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charged != 1200 {
		t.Fatalf("charged %d, want extended monthly price 1200", charged)
	}
}
