package reconcile

import "time"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// TransactionOutcome is what a gateway callback resolved to, ready to be
// applied to the pending transaction and its organization.
type TransactionOutcome struct {
	Success         bool
	Amount          int
	CorrelationCode string
	Token           string
	TokenExpiry     string
	CardMask        string
	ErrorText       string
}

// RenewalOutcome is the result of one recurring charge, whether initiated by
// the sweeper or reported by a self-renewing gateway.
type RenewalOutcome struct {
	Success   bool
	Amount    int
	ErrorText string
	Now       time.Time
}

// CallbackReport tells the webhook controller what happened.
type CallbackReport struct {
	TransactionID string
	Applied       bool
	Duplicate     bool
	Renewal       bool
}
