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
	defaultTranzilaIframeBaseURL = "https://direct.tranzila.com"
	defaultTranzilaChargeURL     = "https://secure.tranzila.com/cgi-bin/tranzila71u.cgi"
)

// TranzilaProvider drives Tranzila's hosted iframe page. The checkout is a
// parametrized redirect (no server call); the notify callback and the token
// charge are form-encoded.
type TranzilaProvider struct {
	Supplier     string
	IframeBase   string
	ChargeURL    string
	TokenizePass string

	HTTPClient *http.Client
}

func NewTranzilaFromEnv() (*TranzilaProvider, error) {
	supplier := strings.TrimSpace(env.GetEnv("TRANZILA_SUPPLIER", ""))
	if supplier == "" {
		return nil, errors.New("TRANZILA_SUPPLIER is not configured")
	}

	return &TranzilaProvider{
		Supplier:     supplier,
		IframeBase:   strings.TrimRight(env.GetEnv("TRANZILA_IFRAME_BASE_URL", defaultTranzilaIframeBaseURL), "/"),
		ChargeURL:    strings.TrimSpace(env.GetEnv("TRANZILA_CHARGE_URL", defaultTranzilaChargeURL)),
		TokenizePass: strings.TrimSpace(env.GetEnv("TRANZILA_TOKENIZE_PASS", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (p *TranzilaProvider) Name() string {
	return models.ProviderTranzila
}

func (p *TranzilaProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	_ = ctx
	u, err := url.Parse(fmt.Sprintf("%s/%s/iframenew.php", p.IframeBase, p.Supplier))
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("sum", strconv.Itoa(req.Amount))
	q.Set("currency", "1") // ILS
	q.Set("cred_type", "1")
	q.Set("tranmode", "AK") // charge + tokenize
	q.Set("myid", req.TransactionID)
	q.Set("uniqid", req.OrgUUID)
	q.Set("contact", req.CustomerName)
	q.Set("email", req.CustomerEmail)
	q.Set("pdesc", fmt.Sprintf("DPO service - %s plan", req.Tier))
	q.Set("success_url_address", req.SuccessURL)
	q.Set("fail_url_address", req.FailureURL)
	q.Set("notify_url_address", req.CallbackURL)
	u.RawQuery = q.Encode()

	// The transaction index only exists after the charge; until the notify
	// callback arrives the synthetic id is the only correlation handle.
	return &CheckoutSession{
		RedirectURL:     u.String(),
		CorrelationCode: "",
	}, nil
}

func (p *TranzilaProvider) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	_ = ctx
	values, err := url.ParseQuery(string(cb.Body))
	if err != nil {
		return nil, fmt.Errorf("tranzila callback unparsable: %w", err)
	}

	index := strings.TrimSpace(values.Get("index"))
	response := strings.TrimSpace(values.Get("Response"))
	if response == "" {
		return nil, errors.New("tranzila callback missing Response")
	}

	amount := 0
	if v := strings.TrimSpace(values.Get("sum")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			amount = int(f)
		}
	}

	tokenExpiry := ""
	if m, y := values.Get("expmonth"), values.Get("expyear"); m != "" && y != "" {
		tokenExpiry = m + "/" + y
	}

	cardMask := ""
	if ccno := strings.TrimSpace(values.Get("ccno")); len(ccno) >= 4 {
		cardMask = "****" + ccno[len(ccno)-4:]
	}

	errorText := ""
	if response != "000" {
		errorText = "tranzila response code " + response
	}

	return &CallbackResult{
		Provider:        models.ProviderTranzila,
		EventID:         index,
		EventType:       "notify",
		CorrelationCode: index,
		TransactionID:   strings.TrimSpace(values.Get("myid")),
		OrgUUID:         strings.TrimSpace(values.Get("uniqid")),
		Success:         response == "000",
		Amount:          amount,
		Token:           strings.TrimSpace(values.Get("TranzilaTK")),
		TokenExpiry:     tokenExpiry,
		CardMask:        cardMask,
		ErrorText:       errorText,
		// Tranzila notify callbacks are unsigned.
		SignatureValid: true,
		RawPayload:     string(cb.Body),
	}, nil
}

func (p *TranzilaProvider) ChargeToken(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, errors.New("tranzila charge requires a stored token")
	}

	form := url.Values{}
	form.Set("supplier", p.Supplier)
	form.Set("TranzilaTK", req.Token)
	form.Set("sum", strconv.Itoa(req.Amount))
	form.Set("currency", "1")
	form.Set("cred_type", "1")
	form.Set("tranmode", "A")
	if p.TokenizePass != "" {
		form.Set("TranzilaPW", p.TokenizePass)
	}
	if parts := strings.SplitN(req.TokenExpiry, "/", 2); len(parts) == 2 {
		form.Set("expmonth", parts[0])
		form.Set("expyear", parts[1])
	}
	form.Set("myid", req.OrgUUID)
	form.Set("pdesc", req.Description)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ChargeURL, strings.NewReader(form.Encode()))
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
		return nil, fmt.Errorf("tranzila charge request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("tranzila charge response unparsable: %w", err)
	}

	code := values.Get("Response")
	result := &ChargeResult{
		Success:   code == "000",
		Reference: values.Get("index"),
	}
	if !result.Success {
		result.ErrorText = "tranzila response code " + code
	}
	return result, nil
}
