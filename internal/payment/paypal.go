// Package payment is a thin pass-through to the PayPal REST API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("paypal is not configured")

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MaxFailures  uint32
	OpenTimeout  time.Duration
}

// APIError is a non-2xx answer from PayPal. 4xx answers are relayed to the caller as is.
type APIError struct {
	Status int
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal responded %d", e.Status)
}

// Result is a successful PayPal answer relayed to the caller.
type Result struct {
	Status int
	Body   json.RawMessage
}

type PayPal struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[*Result]
	log  *zap.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	now      func() time.Time
}

func NewPayPal(cfg Config, log *zap.Logger) *PayPal {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        "paypal",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Client mistakes must not open the breaker.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &PayPal{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb:   gobreaker.NewCircuitBreaker[*Result](settings),
		log:  log,
		now:  time.Now,
	}
}

func (p *PayPal) configured() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

// Setup returns a client token for the browser SDK.
func (p *PayPal) Setup(ctx context.Context) (string, error) {
	res, err := p.call(ctx, http.MethodPost, "/v1/identity/generate-token", nil)
	if err != nil {
		return "", err
	}
	var body struct {
		ClientToken string `json:"client_token"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return "", fmt.Errorf("decode client token: %w", err)
	}
	return body.ClientToken, nil
}

type CreateOrderRequest struct {
	Amount   string
	Currency string
	Intent   string
}

func (r CreateOrderRequest) validate() (decimal.Decimal, error) {
	v := &domain.ValidationError{}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.IsPositive() {
		v.Add("amount", "amount must be a positive number")
	}
	if len(r.Currency) != 3 {
		v.Add("currency", "currency must be a 3-letter code")
	}
	switch strings.ToUpper(r.Intent) {
	case "CAPTURE", "AUTHORIZE":
	default:
		v.Add("intent", "intent must be CAPTURE or AUTHORIZE")
	}
	return amount, v.OrNil()
}

func (p *PayPal) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Result, error) {
	amount, err := req.validate()
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"intent": strings.ToUpper(req.Intent),
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         amount.StringFixed(2),
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return p.call(ctx, http.MethodPost, "/v2/checkout/orders", body)
}

func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*Result, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.NewValidationError("orderID", "order id is required")
	}
	return p.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil)
}

func (p *PayPal) call(ctx context.Context, method, path string, body []byte) (*Result, error) {
	if !p.configured() {
		return nil, ErrNotConfigured
	}
	res, err := p.cb.Execute(func() (*Result, error) {
		token, err := p.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		return p.do(ctx, method, path, body, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set("Content-Type", "application/json")
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: paypal circuit open", domain.ErrTransientIO)
	}
	return res, err
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.tokenExp) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	res, err := p.do(ctx, http.MethodPost, "/v1/oauth2/token", []byte(form.Encode()), func(r *http.Request) {
		r.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
	if err != nil {
		return "", fmt.Errorf("paypal auth: %w", err)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(res.Body, &tok); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}
	p.token = tok.AccessToken
	// Refresh a minute early.
	p.tokenExp = p.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

func (p *PayPal) do(ctx context.Context, method, path string, body []byte, decorate func(*http.Request)) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(p.cfg.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	decorate(req)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransientIO, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read paypal response: %w", domain.ErrTransientIO, err)
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		p.log.Warn("paypal request failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, &APIError{Status: resp.StatusCode, Body: data}
	}
	return &Result{Status: resp.StatusCode, Body: data}, nil
}
