package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
)

const defaultHYPPayURL = "https://pay.hyp.co.il/p/"

// HYPProvider drives the HYP (Yaad Sarig) payment page. Checkout is a
// parametrized redirect; the notify callback arrives as a form/query POST and
// can optionally be HMAC-signed; token charges reuse the same endpoint with
// action=soft.
type HYPProvider struct {
	Masof          string
	APIKey         string
	PassP          string
	CallbackSecret string

	PayURL string

	HTTPClient *http.Client
}

func NewHYPFromEnv() (*HYPProvider, error) {
	masof := strings.TrimSpace(env.GetEnv("HYP_MASOF", ""))
	if masof == "" {
		return nil, errors.New("HYP_MASOF is not configured")
	}

	return &HYPProvider{
		Masof:          masof,
		APIKey:         strings.TrimSpace(env.GetEnv("HYP_API_KEY", "")),
		PassP:          strings.TrimSpace(env.GetEnv("HYP_PASSP", "")),
		CallbackSecret: strings.TrimSpace(env.GetEnv("HYP_CALLBACK_SECRET", "")),
		PayURL:         strings.TrimSpace(env.GetEnv("HYP_PAY_URL", defaultHYPPayURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (p *HYPProvider) Name() string {
	return models.ProviderHYP
}

func (p *HYPProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	_ = ctx
	u, err := url.Parse(p.PayURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("action", "pay")
	q.Set("Masof", p.Masof)
	if p.PassP != "" {
		q.Set("PassP", p.PassP)
	}
	q.Set("Amount", strconv.Itoa(req.Amount))
	q.Set("Coin", "1") // ILS
	q.Set("Info", fmt.Sprintf("DPO service - %s plan", req.Tier))
	q.Set("Order", req.TransactionID)
	q.Set("UserId", req.OrgUUID)
	q.Set("ClientName", req.CustomerName)
	q.Set("email", req.CustomerEmail)
	q.Set("UTF8", "True")
	q.Set("UTF8out", "True")
	q.Set("MoreData", "True")
	q.Set("Tash", "1")
	q.Set("J5", "True") // request a token for recurring charges
	q.Set("PageLang", "HEB")
	q.Set("SuccessURL", req.SuccessURL)
	q.Set("ErrorURL", req.FailureURL)
	q.Set("NotifyURL", req.CallbackURL)
	u.RawQuery = q.Encode()

	return &CheckoutSession{
		RedirectURL:     u.String(),
		CorrelationCode: "",
	}, nil
}

func (p *HYPProvider) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	_ = ctx
	values, err := url.ParseQuery(string(cb.Body))
	if err != nil {
		return nil, fmt.Errorf("hyp callback unparsable: %w", err)
	}

	id := strings.TrimSpace(values.Get("Id"))
	ccode := strings.TrimSpace(values.Get("CCode"))
	if id == "" && ccode == "" {
		return nil, errors.New("hyp callback missing Id/CCode")
	}

	amount := 0
	if v := strings.TrimSpace(values.Get("Amount")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			amount = int(f)
		}
	}

	cardMask := ""
	if l4 := strings.TrimSpace(values.Get("L4digit")); l4 != "" {
		cardMask = "****" + l4
	}

	errorText := ""
	if ccode != "0" {
		errorText = strings.TrimSpace(values.Get("ErrMsg"))
		if errorText == "" {
			errorText = "hyp response code " + ccode
		}
	}

	// Signed callbacks carry an HMAC over the raw body; unsigned terminals
	// fall back to the transaction id lookup as authenticity check.
	signatureValid := true
	if p.CallbackSecret != "" {
		signatureValid = VerifyHMACSHA256(cb.Body, cb.Header("X-Hyp-Signature"), p.CallbackSecret)
	}

	return &CallbackResult{
		Provider:        models.ProviderHYP,
		EventID:         id,
		EventType:       "notify",
		CorrelationCode: id,
		TransactionID:   strings.TrimSpace(values.Get("Order")),
		OrgUUID:         strings.TrimSpace(values.Get("UserId")),
		Success:         ccode == "0",
		Amount:          amount,
		Token:           strings.TrimSpace(values.Get("Token")),
		TokenExpiry:     strings.TrimSpace(values.Get("Tokef")),
		CardMask:        cardMask,
		ErrorText:       errorText,
		SignatureValid:  signatureValid,
		RawPayload:      string(cb.Body),
	}, nil
}

func (p *HYPProvider) ChargeToken(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, errors.New("hyp charge requires a stored token")
	}

	u, err := url.Parse(p.PayURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("action", "soft")
	q.Set("Masof", p.Masof)
	if p.APIKey != "" {
		q.Set("KEY", p.APIKey)
	}
	if p.PassP != "" {
		q.Set("PassP", p.PassP)
	}
	q.Set("Amount", strconv.Itoa(req.Amount))
	q.Set("Coin", "1")
	q.Set("Token", req.Token)
	q.Set("Tokef", req.TokenExpiry)
	q.Set("Info", req.Description)
	q.Set("UserId", req.OrgUUID)
	q.Set("UTF8", "True")
	q.Set("UTF8out", "True")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hyp charge request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("hyp charge response unparsable: %w", err)
	}

	ccode := values.Get("CCode")
	result := &ChargeResult{
		Success:   ccode == "0",
		Reference: values.Get("Id"),
	}
	if !result.Success {
		result.ErrorText = values.Get("ErrMsg")
		if result.ErrorText == "" {
			result.ErrorText = "hyp response code " + ccode
		}
	}
	return result, nil
}
