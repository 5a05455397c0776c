package portone

import (
	"encoding/json"
	"fmt"
	"time"
)

// APIError is a non-2xx answer from the gateway. Raw keeps the undecoded body
// so callers can attach it to their own error responses.
type APIError struct {
	Status  int             `json:"-"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Raw     json.RawMessage `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("portone: %s (%s, status %d)", e.Message, e.Type, e.Status)
	}
	return fmt.Sprintf("portone: request failed with status %d", e.Status)
}

// Details returns the raw gateway body decoded to a generic value, falling
// back to the raw string when the body is not JSON.
func (e *APIError) Details() any {
	if len(e.Raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(e.Raw, &v); err != nil {
		return string(e.Raw)
	}
	return v
}

type Amount struct {
	Total int64 `json:"total"`
}

type Customer struct {
	ID string `json:"id"`
}

// Payment is the gateway's view of a single charge.
type Payment struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Amount     Amount   `json:"amount"`
	Currency   string   `json:"currency"`
	BillingKey string   `json:"billingKey"`
	OrderName  string   `json:"orderName"`
	Customer   Customer `json:"customer"`
}

// Complete reports whether the payment carries every field the ledger needs.
// Partial gateway data is never recorded.
func (p *Payment) Complete() bool {
	return p != nil &&
		p.Amount.Total > 0 &&
		p.BillingKey != "" &&
		p.OrderName != "" &&
		p.Customer.ID != ""
}

// ChargeRequest describes a billing-key charge. The payment id is supplied by
// the caller on the request path, not in the body.
type ChargeRequest struct {
	BillingKey string
	OrderName  string
	Amount     int64
	Currency   string
	CustomerID string
}

// ScheduleRequest describes a deferred billing-key charge.
type ScheduleRequest struct {
	ChargeRequest
	TimeToPay time.Time
}

// Schedule is one gateway-side deferred charge instruction.
type Schedule struct {
	ID         string    `json:"id"`
	PaymentID  string    `json:"paymentId"`
	BillingKey string    `json:"billingKey"`
	OrderName  string    `json:"orderName"`
	Amount     Amount    `json:"amount"`
	TimeToPay  time.Time `json:"timeToPay"`
	Status     string    `json:"status"`
}

// ScheduleFilter narrows GetPaymentSchedules to one billing key and time
// window.
type ScheduleFilter struct {
	BillingKey string
	From       time.Time
	Until      time.Time
}

type CardCredential struct {
	Number                            string `json:"number"`
	ExpiryYear                        string `json:"expiryYear"`
	ExpiryMonth                       string `json:"expiryMonth"`
	BirthOrBusinessRegistrationNumber string `json:"birthOrBusinessRegistrationNumber,omitempty"`
	PasswordTwoDigits                 string `json:"passwordTwoDigits,omitempty"`
}

type IssueBillingKeyRequest struct {
	CustomerID string
	Card       *CardCredential
}
