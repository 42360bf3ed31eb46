package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/plans"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/reconcile"
)

// ChargeFunc charges a stored token at one gateway. The default
// implementation dispatches through the provider registry; tests inject
// their own.
type ChargeFunc func(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error)

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Due       int
	Charged   int
	Failed    int
	Skipped   int
	StartedAt time.Time
	Duration  time.Duration
}

// Sweeper runs the recurring billing pass: find monthly organizations whose
// period has lapsed and charge their stored token. Organizations are
// processed one at a time; a failure for one never aborts the rest.
type Sweeper struct {
	service *reconcile.Service
	charge  ChargeFunc
}

// NewSweeper creates a sweeper that charges through the provider registry.
func NewSweeper(service *reconcile.Service) *Sweeper {
	return &Sweeper{service: service, charge: registryCharge}
}

// NewSweeperWithCharge creates a sweeper with an injected charge function.
func NewSweeperWithCharge(service *reconcile.Service, charge ChargeFunc) *Sweeper {
	return &Sweeper{service: service, charge: charge}
}

func registryCharge(ctx context.Context, provider string, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	p, err := payments.New(provider)
	if err != nil {
		return nil, err
	}
	return p.ChargeToken(ctx, req)
}

// Run executes one sweep over all due organizations.
func (s *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{StartedAt: start}

	due, err := s.service.ListDueOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	report.Due = len(due)
	if len(due) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Infof("[Billing] sweep started, %d organization(s) due", len(due))
	for i := range due {
		org := &due[i]
		if payments.IsSelfRenewing(org.PaymentProvider) {
			// The gateway charges these itself and reports via webhook; a
			// sweep attempt would count a bogus failure against the org.
			report.Skipped++
			log.Warnf("[Billing] org %d uses self-renewing provider %s, skipping", org.ID, org.PaymentProvider)
			continue
		}
		if err := s.renewOne(ctx, org); err != nil {
			report.Failed++
			log.Errorf("[Billing] renewal failed for org %d (%s): %v", org.ID, org.UUID, err)
			continue
		}
		report.Charged++
	}

	report.Duration = time.Since(start)
	log.Infof("[Billing] sweep done: %d charged, %d failed, %d skipped, took %s",
		report.Charged, report.Failed, report.Skipped, report.Duration)
	return report, nil
}

func (s *Sweeper) renewOne(ctx context.Context, org *models.Organization) error {
	tier := plans.Normalize(org.Tier)
	amount := plans.MonthlyPrice(tier)

	outcome := reconcile.RenewalOutcome{Amount: amount, Now: time.Now()}
	switch {
	case org.PaymentToken == "":
		outcome.ErrorText = "no stored payment token"
	case !payments.IsKnown(org.PaymentProvider):
		outcome.ErrorText = fmt.Sprintf("unknown payment provider %q", org.PaymentProvider)
	default:
		res, err := s.charge(ctx, org.PaymentProvider, payments.ChargeRequest{
			Token:       org.PaymentToken,
			TokenExpiry: org.PaymentTokenExpiry,
			Amount:      amount,
			OrgUUID:     org.UUID,
			Description: fmt.Sprintf("monthly renewal, %s plan", tier),
		})
		if err != nil {
			outcome.ErrorText = err.Error()
		} else if res.Success {
			outcome.Success = true
		} else {
			outcome.ErrorText = res.ErrorText
		}
	}

	updated, err := s.service.ApplyRenewal(ctx, org.ID, outcome)
	if err != nil {
		return err
	}
	if !outcome.Success {
		return errors.New(outcome.ErrorText + failureSuffix(updated))
	}
	return nil
}

func failureSuffix(org *models.Organization) string {
	if org != nil && org.SubscriptionStatus == models.SubStatusPastDue {
		return " (subscription moved to past_due)"
	}
	return ""
}
