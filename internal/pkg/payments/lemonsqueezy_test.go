package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

const lsOrderPayload = `{
	"meta": {
		"event_name": "order_created",
		"custom_data": { "transaction_id": "TXN-9-1700000002", "org_uuid": "org-uuid-9" }
	},
	"data": {
		"id": "order-123",
		"attributes": {
			"status": "paid",
			"total": 50000,
			"card_brand": "visa",
			"card_last_four": "4242"
		}
	}
}`

func signedHeader(payload []byte, secret string) func(string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))
	return func(key string) string {
		if key == "X-Signature" {
			return sig
		}
		return ""
	}
}

func TestLemonSqueezyParseCallback(t *testing.T) {
	secret := "ls-secret"
	p := &LemonSqueezyProvider{WebhookSecret: secret}

	body := []byte(lsOrderPayload)
	res, err := p.ParseCallback(context.Background(), Callback{Body: body, Header: signedHeader(body, secret)})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Provider != models.ProviderLemonSqueezy {
		t.Fatalf("provider = %q", res.Provider)
	}
	if !res.SignatureValid {
		t.Fatalf("expected valid signature")
	}
	if !res.Success {
		t.Fatalf("expected paid order to be success")
	}
	if res.CorrelationCode != "order-123" {
		t.Fatalf("correlation = %q", res.CorrelationCode)
	}
	if res.TransactionID != "TXN-9-1700000002" {
		t.Fatalf("transaction id = %q", res.TransactionID)
	}
	if res.Amount != 500 {
		t.Fatalf("amount = %d, want 500 (cents converted)", res.Amount)
	}
	if res.CardMask != "****4242" {
		t.Fatalf("card mask = %q", res.CardMask)
	}
}

func TestLemonSqueezyParseCallbackBadSignature(t *testing.T) {
	p := &LemonSqueezyProvider{WebhookSecret: "ls-secret"}
	body := []byte(lsOrderPayload)

	res, err := p.ParseCallback(context.Background(), Callback{Body: body, Header: noHeaders})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.SignatureValid {
		t.Fatalf("expected invalid signature without header")
	}
}

const lsRenewalPayload = `{
	"meta": {
		"event_name": "subscription_payment_success",
		"custom_data": { "org_uuid": "org-uuid-9" }
	},
	"data": {
		"id": "invoice-77",
		"attributes": {
			"status": "paid",
			"total": 50000,
			"billing_reason": "renewal"
		}
	}
}`

func TestLemonSqueezyParseCallbackRenewalInvoice(t *testing.T) {
	secret := "ls-secret"
	p := &LemonSqueezyProvider{WebhookSecret: secret}

	body := []byte(lsRenewalPayload)
	res, err := p.ParseCallback(context.Background(), Callback{Body: body, Header: signedHeader(body, secret)})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Renewal {
		t.Fatalf("expected renewal invoice to be flagged as renewal")
	}
	if !res.Success || res.Amount != 500 {
		t.Fatalf("success = %v amount = %d", res.Success, res.Amount)
	}
	if res.OrgUUID != "org-uuid-9" {
		t.Fatalf("org uuid = %q", res.OrgUUID)
	}
}

func TestLemonSqueezyParseCallbackInitialInvoiceIsNotRenewal(t *testing.T) {
	p := &LemonSqueezyProvider{WebhookSecret: "ls-secret"}

	initial := []byte(`{
		"meta": {
			"event_name": "subscription_payment_success",
			"custom_data": { "transaction_id": "TXN-9-1700000002", "org_uuid": "org-uuid-9" }
		},
		"data": {
			"id": "invoice-1",
			"attributes": { "status": "paid", "total": 50000, "billing_reason": "initial" }
		}
	}`)
	res, err := p.ParseCallback(context.Background(), Callback{Body: initial, Header: noHeaders})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Renewal {
		t.Fatalf("initial invoice must complete the pending transaction, not renew")
	}

	// order_created is never a renewal regardless of billing reason.
	res, err = p.ParseCallback(context.Background(), Callback{Body: []byte(lsOrderPayload), Header: noHeaders})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Renewal {
		t.Fatalf("order_created flagged as renewal")
	}
}

func TestIsSelfRenewing(t *testing.T) {
	if !IsSelfRenewing("lemonsqueezy") || !IsSelfRenewing(" LemonSqueezy ") {
		t.Fatalf("lemonsqueezy must be self-renewing")
	}
	if IsSelfRenewing("cardcom") || IsSelfRenewing("tranzila") || IsSelfRenewing("hyp") {
		t.Fatalf("token-charging providers flagged as self-renewing")
	}
}

func TestLemonSqueezyChargeTokenUnsupported(t *testing.T) {
	p := &LemonSqueezyProvider{}
	if _, err := p.ChargeToken(context.Background(), ChargeRequest{Token: "x", Amount: 500}); err == nil {
		t.Fatalf("expected token charges to be unsupported")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	if _, err := New("paypal"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if !IsKnown("cardcom") || !IsKnown("LemonSqueezy") {
		t.Fatalf("expected known providers to be recognized")
	}
	if IsKnown("stripe") {
		t.Fatalf("stripe is not wired")
	}
}
