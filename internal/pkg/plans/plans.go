package plans

import (
	"strings"
	"time"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// Tier is an internal subscription plan level.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierExtended Tier = "extended"
)

// Prices in whole ILS. The annual price is a flat rate, not 12x the monthly
// rate (extended annual is 12000, not 14400).
var priceTable = map[Tier]struct {
	Monthly int
	Annual  int
}{
	TierBasic:    {Monthly: 500, Annual: 5000},
	TierExtended: {Monthly: 1200, Annual: 12000},
}

// Quotas per tier (questions and generated documents per billing cycle).
var quotaTable = map[Tier]struct {
	Questions int
	Documents int
}{
	TierBasic:    {Questions: 10, Documents: 3},
	TierExtended: {Questions: 50, Documents: 12},
}

// Normalize maps raw tier input to an internal tier. The enterprise tier is
// marketed separately but billed as extended.
func Normalize(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierExtended), models.TierEnterprise:
		return TierExtended
	default:
		return TierBasic
	}
}

// IsValid reports whether the raw input names a sellable tier.
func IsValid(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierBasic), string(TierExtended), models.TierEnterprise:
		return true
	default:
		return false
	}
}

// Price returns the checkout amount in ILS for a tier and billing cadence.
func Price(tier Tier, annual bool) int {
	p, ok := priceTable[tier]
	if !ok {
		p = priceTable[TierBasic]
	}
	if annual {
		return p.Annual
	}
	return p.Monthly
}

// MonthlyPrice returns the recurring monthly rate used by the sweeper.
func MonthlyPrice(tier Tier) int {
	return Price(tier, false)
}

// PeriodEnd computes the subscription end for a period starting at from.
func PeriodEnd(from time.Time, annual bool) time.Time {
	if annual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Quota returns per-cycle usage quotas for a tier.
func Quota(tier Tier) (questions, documents int) {
	q, ok := quotaTable[tier]
	if !ok {
		q = quotaTable[TierBasic]
	}
	return q.Questions, q.Documents
}
