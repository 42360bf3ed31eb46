package payments

import (
	"fmt"
	"strings"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// ProviderNames lists every wired gateway, in routing order.
var ProviderNames = []string{
	models.ProviderCardcom,
	models.ProviderTranzila,
	models.ProviderHYP,
	models.ProviderLemonSqueezy,
}

// selfRenewing lists gateways that charge renewals on their own schedule and
// report them via webhooks. They carry no stored token the sweeper could use.
var selfRenewing = map[string]bool{
	models.ProviderLemonSqueezy: true,
}

// IsSelfRenewing reports whether the gateway handles recurring charges itself.
func IsSelfRenewing(name string) bool {
	return selfRenewing[strings.ToLower(strings.TrimSpace(name))]
}

// SelfRenewingProviders returns the gateway names excluded from the sweep.
func SelfRenewingProviders() []string {
	out := make([]string, 0, len(selfRenewing))
	for name := range selfRenewing {
		out = append(out, name)
	}
	return out
}

// New builds a provider by name from environment configuration. A missing
// credential surfaces as an error here and becomes a 500 configuration error
// at the request boundary.
func New(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case models.ProviderCardcom:
		return NewCardcomFromEnv()
	case models.ProviderTranzila:
		return NewTranzilaFromEnv()
	case models.ProviderHYP:
		return NewHYPFromEnv()
	case models.ProviderLemonSqueezy:
		return NewLemonSqueezyFromEnv()
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", name)
	}
}

// IsKnown reports whether name refers to a wired gateway.
func IsKnown(name string) bool {
	for _, n := range ProviderNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return true
		}
	}
	return false
}
