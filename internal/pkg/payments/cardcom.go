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

const (
	defaultCardcomLowProfileURL  = "https://secure.cardcom.solutions/Interface/LowProfile.aspx"
	defaultCardcomChargeTokenURL = "https://secure.cardcom.solutions/Interface/ChargeToken.aspx"
)

// CardcomProvider drives Cardcom's LowProfile hosted payment page. Both the
// page creation and the token charge are form-encoded request/response pairs;
// the callback ("indicator") arrives as a form POST.
type CardcomProvider struct {
	TerminalNumber string
	Username       string
	APIPassword    string

	LowProfileURL  string
	ChargeTokenURL string

	HTTPClient *http.Client
}

func NewCardcomFromEnv() (*CardcomProvider, error) {
	terminal := strings.TrimSpace(env.GetEnv("CARDCOM_TERMINAL", ""))
	username := strings.TrimSpace(env.GetEnv("CARDCOM_USERNAME", ""))
	if terminal == "" || username == "" {
		return nil, errors.New("CARDCOM_TERMINAL/CARDCOM_USERNAME are not configured")
	}

	return &CardcomProvider{
		TerminalNumber: terminal,
		Username:       username,
		APIPassword:    strings.TrimSpace(env.GetEnv("CARDCOM_API_PASSWORD", "")),
		LowProfileURL:  strings.TrimSpace(env.GetEnv("CARDCOM_LOWPROFILE_URL", defaultCardcomLowProfileURL)),
		ChargeTokenURL: strings.TrimSpace(env.GetEnv("CARDCOM_CHARGE_URL", defaultCardcomChargeTokenURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (p *CardcomProvider) Name() string {
	return models.ProviderCardcom
}

func (p *CardcomProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("terminalnumber", p.TerminalNumber)
	form.Set("username", p.Username)
	form.Set("APILevel", "10")
	form.Set("codepage", "65001")
	form.Set("Operation", "2") // charge + create token
	form.Set("CoinID", "1")    // ILS
	form.Set("Language", "he")
	form.Set("SumToBill", strconv.Itoa(req.Amount))
	form.Set("ProductName", fmt.Sprintf("DPO service - %s plan", req.Tier))
	form.Set("ReturnValue", req.TransactionID)
	form.Set("SuccessRedirectUrl", req.SuccessURL)
	form.Set("ErrorRedirectUrl", req.FailureURL)
	form.Set("IndicatorUrl", req.CallbackURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.LowProfileURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cardcom lowprofile request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	// Cardcom answers with a query-string body.
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("cardcom lowprofile response unparsable: %w", err)
	}
	if values.Get("ResponseCode") != "0" {
		return nil, fmt.Errorf("cardcom lowprofile rejected: code=%s desc=%s",
			values.Get("ResponseCode"), values.Get("Description"))
	}

	lowProfileCode := values.Get("LowProfileCode")
	redirect := values.Get("url")
	if lowProfileCode == "" || redirect == "" {
		return nil, errors.New("cardcom lowprofile response missing LowProfileCode/url")
	}

	return &CheckoutSession{
		RedirectURL:     redirect,
		CorrelationCode: lowProfileCode,
	}, nil
}

func (p *CardcomProvider) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	_ = ctx
	values, err := url.ParseQuery(string(cb.Body))
	if err != nil {
		return nil, fmt.Errorf("cardcom callback unparsable: %w", err)
	}

	lowProfileCode := strings.TrimSpace(values.Get("lowprofilecode"))
	if lowProfileCode == "" {
		lowProfileCode = strings.TrimSpace(values.Get("LowProfileCode"))
	}
	if lowProfileCode == "" {
		return nil, errors.New("cardcom callback missing lowprofilecode")
	}

	opResponse := strings.TrimSpace(values.Get("OperationResponse"))
	if opResponse == "" {
		opResponse = strings.TrimSpace(values.Get("ResponseCode"))
	}

	amount := 0
	if v := strings.TrimSpace(values.Get("SumToBill")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			amount = int(f)
		}
	}

	tokenExpiry := ""
	if m, y := values.Get("TokenExDateMM"), values.Get("TokenExDateYY"); m != "" && y != "" {
		tokenExpiry = m + "/" + y
	} else if v := values.Get("TokenExDate"); v != "" {
		tokenExpiry = v
	}

	cardMask := ""
	if last4 := strings.TrimSpace(values.Get("Last4CardDigits")); last4 != "" {
		cardMask = "****" + last4
	}

	return &CallbackResult{
		Provider:        models.ProviderCardcom,
		EventID:         lowProfileCode,
		EventType:       "lowprofile_indicator",
		CorrelationCode: lowProfileCode,
		TransactionID:   strings.TrimSpace(values.Get("ReturnValue")),
		Success:         opResponse == "0",
		Amount:          amount,
		Token:           strings.TrimSpace(values.Get("Token")),
		TokenExpiry:     tokenExpiry,
		CardMask:        cardMask,
		ErrorText:       strings.TrimSpace(values.Get("OperationResponseText")),
		// Cardcom indicator callbacks are not signed; the lowprofile code
		// lookup is the authenticity check.
		SignatureValid: true,
		RawPayload:     string(cb.Body),
	}, nil
}

func (p *CardcomProvider) ChargeToken(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, errors.New("cardcom charge requires a stored token")
	}

	form := url.Values{}
	form.Set("terminalnumber", p.TerminalNumber)
	form.Set("username", p.Username)
	if p.APIPassword != "" {
		form.Set("TokenPass", p.APIPassword)
	}
	form.Set("Token", req.Token)
	form.Set("TokenExDate", strings.ReplaceAll(req.TokenExpiry, "/", ""))
	form.Set("SumToBill", strconv.Itoa(req.Amount))
	form.Set("CoinID", "1")
	form.Set("UserName", req.OrgUUID)
	form.Set("ProductName", req.Description)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ChargeTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cardcom charge request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("cardcom charge response unparsable: %w", err)
	}

	code := values.Get("ResponseCode")
	return &ChargeResult{
		Success:   code == "0",
		Reference: values.Get("InternalDealNumber"),
		ErrorText: values.Get("Description"),
	}, nil
}
