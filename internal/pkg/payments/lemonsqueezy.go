package payments

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
)

const defaultLemonSqueezyAPIBaseURL = "https://api.lemonsqueezy.com/v1"

// LemonSqueezyProvider drives LemonSqueezy checkouts for customers paying
// with international cards. Unlike the local gateways it is a JSON:API and
// signs its webhooks (X-Signature, HMAC-SHA256 over the raw body). Recurring
// charges are handled by LemonSqueezy itself, so ChargeToken is unsupported.
type LemonSqueezyProvider struct {
	APIKey        string
	StoreID       string
	VariantBasic  string
	VariantExt    string
	WebhookSecret string

	APIBaseURL string

	HTTPClient *http.Client
}

func NewLemonSqueezyFromEnv() (*LemonSqueezyProvider, error) {
	apiKey := strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_API_KEY", ""))
	storeID := strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_STORE_ID", ""))
	if apiKey == "" || storeID == "" {
		return nil, errors.New("LEMONSQUEEZY_API_KEY/LEMONSQUEEZY_STORE_ID are not configured")
	}

	return &LemonSqueezyProvider{
		APIKey:        apiKey,
		StoreID:       storeID,
		VariantBasic:  strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_VARIANT_BASIC", "")),
		VariantExt:    strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_VARIANT_EXTENDED", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_WEBHOOK_SECRET", "")),
		APIBaseURL:    strings.TrimRight(env.GetEnv("LEMONSQUEEZY_API_BASE_URL", defaultLemonSqueezyAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (p *LemonSqueezyProvider) Name() string {
	return models.ProviderLemonSqueezy
}

func (p *LemonSqueezyProvider) variantFor(tier string) string {
	if strings.EqualFold(tier, models.TierExtended) || strings.EqualFold(tier, models.TierEnterprise) {
		return p.VariantExt
	}
	return p.VariantBasic
}

func (p *LemonSqueezyProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	variant := p.variantFor(req.Tier)
	if variant == "" {
		return nil, fmt.Errorf("no lemonsqueezy variant configured for tier %s", req.Tier)
	}

	payload := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"email": req.CustomerEmail,
					"name":  req.CustomerName,
					"custom": map[string]any{
						"transaction_id": req.TransactionID,
						"org_uuid":       req.OrgUUID,
					},
				},
				"product_options": map[string]any{
					"redirect_url": req.SuccessURL,
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": p.StoreID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": variant},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIBaseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/vnd.api+json")
	httpReq.Header.Set("Accept", "application/vnd.api+json")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lemonsqueezy checkout request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.Data.Attributes.URL == "" {
		return nil, errors.New("lemonsqueezy checkout response missing url")
	}

	return &CheckoutSession{
		RedirectURL:     out.Data.Attributes.URL,
		CorrelationCode: out.Data.ID,
	}, nil
}

func (p *LemonSqueezyProvider) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	_ = ctx
	signatureValid := VerifyHMACSHA256(cb.Body, cb.Header("X-Signature"), p.WebhookSecret)

	var raw struct {
		Meta struct {
			EventName  string `json:"event_name"`
			CustomData struct {
				TransactionID string `json:"transaction_id"`
				OrgUUID       string `json:"org_uuid"`
			} `json:"custom_data"`
		} `json:"meta"`
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status        string `json:"status"`
				Total         int    `json:"total"`
				BillingReason string `json:"billing_reason"`
				CardBrand     string `json:"card_brand"`
				CardLastFour  string `json:"card_last_four"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(cb.Body, &raw); err != nil {
		return nil, fmt.Errorf("lemonsqueezy webhook unparsable: %w", err)
	}
	if raw.Data.ID == "" {
		return nil, errors.New("lemonsqueezy webhook missing data id")
	}

	eventID := strings.TrimSpace(cb.Header("X-Event-Id"))
	if eventID == "" {
		sum := sha256.Sum256(cb.Body)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	status := strings.ToLower(strings.TrimSpace(raw.Data.Attributes.Status))
	success := status == "paid" || status == "active"

	cardMask := ""
	if raw.Data.Attributes.CardLastFour != "" {
		cardMask = "****" + raw.Data.Attributes.CardLastFour
	}

	errorText := ""
	if !success {
		errorText = "lemonsqueezy status " + status
	}

	// Totals come in cents; local prices are whole ILS equivalents.
	amount := raw.Data.Attributes.Total / 100

	// Subscription invoices after the initial one are LemonSqueezy-initiated
	// renewals; there is no pending transaction to complete for those.
	eventName := strings.ToLower(strings.TrimSpace(raw.Meta.EventName))
	billingReason := strings.ToLower(strings.TrimSpace(raw.Data.Attributes.BillingReason))
	renewal := strings.HasPrefix(eventName, "subscription_payment_") && billingReason != "initial"

	return &CallbackResult{
		Provider:        models.ProviderLemonSqueezy,
		EventID:         eventID,
		EventType:       raw.Meta.EventName,
		CorrelationCode: raw.Data.ID,
		TransactionID:   strings.TrimSpace(raw.Meta.CustomData.TransactionID),
		OrgUUID:         strings.TrimSpace(raw.Meta.CustomData.OrgUUID),
		Renewal:         renewal,
		Success:         success,
		Amount:          amount,
		CardMask:        cardMask,
		ErrorText:       errorText,
		SignatureValid:  signatureValid,
		RawPayload:      string(cb.Body),
	}, nil
}

func (p *LemonSqueezyProvider) ChargeToken(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	// LemonSqueezy renews subscriptions on its own schedule and reports the
	// outcome via webhooks; there is no stored token to charge from our side.
	return nil, errors.New("lemonsqueezy does not support server-side token charges")
}
