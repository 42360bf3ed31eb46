package payments

import "context"

// CheckoutRequest carries everything a gateway needs to build a hosted
// payment page for one pending transaction.
type CheckoutRequest struct {
	TransactionID string
	OrgID         uint
	OrgUUID       string
	Tier          string
	Annual        bool
	Amount        int
	CustomerName  string
	CustomerEmail string
	SuccessURL    string
	FailureURL    string
	CallbackURL   string
}

// CheckoutSession is the gateway's answer to CreateCheckout.
type CheckoutSession struct {
	RedirectURL     string
	CorrelationCode string
}

// Callback wraps a raw gateway webhook delivery. Header gives access to the
// transport headers without tying providers to a concrete HTTP framework.
type Callback struct {
	Body   []byte
	Header func(key string) string
}

// CallbackResult is the provider-agnostic shape every gateway callback is
// normalized into before the shared reconciliation routine runs.
type CallbackResult struct {
	Provider        string
	EventID         string
	EventType       string
	CorrelationCode string
	// TransactionID is the synthetic checkout id carried through the
	// gateway's custom-data field, when the gateway echoes it back.
	TransactionID string
	OrgUUID       string
	// Renewal marks a charge the gateway initiated on its own schedule
	// (LemonSqueezy subscription invoices). Renewals have no pending
	// transaction on our side; they extend the current period directly.
	Renewal        bool
	Success        bool
	Amount         int
	Token          string
	TokenExpiry    string
	CardMask       string
	ErrorText      string
	SignatureValid bool
	RawPayload     string
}

// ChargeRequest is a server-to-server charge of a stored payment token.
type ChargeRequest struct {
	Token       string
	TokenExpiry string
	Amount      int
	OrgUUID     string
	Description string
}

// ChargeResult is the normalized outcome of a token charge.
type ChargeResult struct {
	Success   bool
	Reference string
	ErrorText string
}

// Provider is the single polymorphic gateway interface. Each of the four
// integrations implements it; everything downstream consumes normalized
// results only.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error)
	ChargeToken(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
