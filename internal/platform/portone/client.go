package portone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cfgpkg "github.com/fatflowers/magazine/pkg/config"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client is a thin typed wrapper over the gateway's REST API. It holds no
// local state; every operation is a single request/response pair.
type Client struct {
	baseURL    string
	apiSecret  string
	channelKey string
	hc         *http.Client
	log        *zap.SugaredLogger
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.PortOne.APISecret == "" {
		return nil, errors.New("portone api secret is not configured")
	}
	timeout := cfg.PortOne.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.PortOne.BaseURL,
		apiSecret:  cfg.PortOne.APISecret,
		channelKey: cfg.PortOne.ChannelKey,
		hc:         &http.Client{Timeout: timeout},
		log:        log,
	}, nil
}

// IssueBillingKey registers a card with the gateway and returns the billing
// key usable for repeated off-session charges.
func (c *Client) IssueBillingKey(ctx context.Context, req *IssueBillingKeyRequest) (string, error) {
	body := map[string]any{
		"channelKey": c.channelKey,
		"customer":   Customer{ID: req.CustomerID},
		"method":     map[string]any{"card": map[string]any{"credential": req.Card}},
	}
	var out struct {
		BillingKeyInfo struct {
			BillingKey string `json:"billingKey"`
		} `json:"billingKeyInfo"`
	}
	if err := c.do(ctx, http.MethodPost, "/billing-keys", nil, body, &out); err != nil {
		return "", err
	}
	if out.BillingKeyInfo.BillingKey == "" {
		return "", errors.New("portone: billing key missing in response")
	}
	return out.BillingKeyInfo.BillingKey, nil
}

// ChargeBillingKey requests an immediate charge against a billing key.
// paymentID is chosen by the caller and acts as the idempotency key.
func (c *Client) ChargeBillingKey(ctx context.Context, paymentID string, req *ChargeRequest) error {
	body := map[string]any{
		"billingKey": req.BillingKey,
		"orderName":  req.OrderName,
		"customer":   Customer{ID: req.CustomerID},
		"amount":     Amount{Total: req.Amount},
		"currency":   req.Currency,
	}
	path := fmt.Sprintf("/payments/%s/billing-key", url.PathEscape(paymentID))
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// GetPayment fetches the gateway's record of a charge.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	path := fmt.Sprintf("/payments/%s", url.PathEscape(paymentID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SchedulePayment registers a deferred charge under the caller-chosen
// scheduleID.
func (c *Client) SchedulePayment(ctx context.Context, scheduleID string, req *ScheduleRequest) error {
	body := map[string]any{
		"payment": map[string]any{
			"billingKey": req.BillingKey,
			"orderName":  req.OrderName,
			"customer":   Customer{ID: req.CustomerID},
			"amount":     Amount{Total: req.Amount},
			"currency":   req.Currency,
		},
		"timeToPay": req.TimeToPay.Format(time.RFC3339),
	}
	path := fmt.Sprintf("/payments/%s/schedule", url.PathEscape(scheduleID))
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// GetPaymentSchedules lists deferred charges for a billing key within a time
// window.
func (c *Client) GetPaymentSchedules(ctx context.Context, filter *ScheduleFilter) ([]*Schedule, error) {
	q := url.Values{}
	if filter != nil {
		if filter.BillingKey != "" {
			q.Set("billingKey", filter.BillingKey)
		}
		if !filter.From.IsZero() {
			q.Set("from", filter.From.Format(time.RFC3339))
		}
		if !filter.Until.IsZero() {
			q.Set("until", filter.Until.Format(time.RFC3339))
		}
	}
	var out struct {
		Items []*Schedule `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/payment-schedules", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// RevokePaymentSchedules cancels pending deferred charges by schedule id.
func (c *Client) RevokePaymentSchedules(ctx context.Context, scheduleIDs []string) error {
	body := map[string]any{"scheduleIds": scheduleIDs}
	return c.do(ctx, http.MethodDelete, "/payment-schedules", nil, body, nil)
}

// CancelPayment reverses a settled charge at the gateway.
func (c *Client) CancelPayment(ctx context.Context, paymentID string, reason string) error {
	if reason == "" {
		reason = "requested by subscriber"
	}
	body := map[string]any{"reason": reason}
	path := fmt.Sprintf("/payments/%s/cancel", url.PathEscape(paymentID))
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("portone: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("portone: build request: %w", err)
	}
	req.Header.Set("Authorization", "PortOne "+c.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("portone: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("portone: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{Status: res.StatusCode, Raw: raw}
		_ = json.Unmarshal(raw, apiErr)
		c.log.Warnw("portone_api_error", "method", method, "path", path, "status", res.StatusCode, "type", apiErr.Type)
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("portone: decode response: %w", err)
		}
	}
	return nil
}
