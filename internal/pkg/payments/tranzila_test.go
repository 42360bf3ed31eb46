package payments

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func TestTranzilaCreateCheckoutURL(t *testing.T) {
	p := &TranzilaProvider{
		Supplier:   "demoterminal",
		IframeBase: "https://direct.tranzila.com",
	}

	sess, err := p.CreateCheckout(context.Background(), CheckoutRequest{
		TransactionID: "TXN-7-1700000001",
		OrgUUID:       "org-uuid-7",
		Tier:          "extended",
		Annual:        true,
		Amount:        12000,
		CustomerEmail: "owner@example.co.il",
		SuccessURL:    "https://app.example/billing/success",
		FailureURL:    "https://app.example/billing/failure",
		CallbackURL:   "https://app.example/webhooks/tranzila",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(sess.RedirectURL)
	if err != nil {
		t.Fatalf("redirect url unparsable: %v", err)
	}
	if !strings.HasPrefix(u.Path, "/demoterminal/") {
		t.Fatalf("expected supplier in path, got %s", u.Path)
	}
	q := u.Query()
	if q.Get("sum") != "12000" {
		t.Fatalf("sum = %q, want 12000", q.Get("sum"))
	}
	if q.Get("myid") != "TXN-7-1700000001" {
		t.Fatalf("myid = %q", q.Get("myid"))
	}
	if q.Get("tranmode") != "AK" {
		t.Fatalf("tranmode = %q, want AK (charge+tokenize)", q.Get("tranmode"))
	}
}

func TestTranzilaParseCallback(t *testing.T) {
	form := url.Values{}
	form.Set("Response", "000")
	form.Set("index", "55443")
	form.Set("myid", "TXN-7-1700000001")
	form.Set("uniqid", "org-uuid-7")
	form.Set("sum", "1200")
	form.Set("TranzilaTK", "tz_tok_1")
	form.Set("expmonth", "09")
	form.Set("expyear", "27")
	form.Set("ccno", "458012******7890")

	p := &TranzilaProvider{Supplier: "demoterminal"}
	res, err := p.ParseCallback(context.Background(), Callback{Body: []byte(form.Encode()), Header: noHeaders})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success for Response=000")
	}
	if res.CorrelationCode != "55443" {
		t.Fatalf("correlation = %q", res.CorrelationCode)
	}
	if res.TransactionID != "TXN-7-1700000001" || res.OrgUUID != "org-uuid-7" {
		t.Fatalf("custom data = %q / %q", res.TransactionID, res.OrgUUID)
	}
	if res.Token != "tz_tok_1" || res.TokenExpiry != "09/27" {
		t.Fatalf("token = %q expiry = %q", res.Token, res.TokenExpiry)
	}
	if res.CardMask != "****7890" {
		t.Fatalf("card mask = %q", res.CardMask)
	}
}

func TestTranzilaParseCallbackDecline(t *testing.T) {
	p := &TranzilaProvider{}
	res, err := p.ParseCallback(context.Background(), Callback{Body: []byte("Response=004&myid=TXN-1-1"), Header: noHeaders})
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected decline for Response=004")
	}
	if res.ErrorText == "" {
		t.Fatalf("expected error text for decline")
	}
}
