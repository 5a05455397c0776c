package portone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cfgpkg "github.com/fatflowers/magazine/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &cfgpkg.Config{PortOne: cfgpkg.PortOneConfig{
		APISecret:  "test-secret",
		BaseURL:    srv.URL,
		ChannelKey: "channel-key-1",
	}}
	c, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c, srv
}

func TestNew_RequiresAPISecret(t *testing.T) {
	_, err := New(&cfgpkg.Config{}, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestChargeBillingKey_RequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.ChargeBillingKey(context.Background(), "payment_1_abc", &ChargeRequest{
		BillingKey: "bk-1",
		OrderName:  "IT Magazine Monthly",
		Amount:     9900,
		Currency:   "KRW",
		CustomerID: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, "/payments/payment_1_abc/billing-key", gotPath)
	require.Equal(t, "PortOne test-secret", gotAuth)
	require.Equal(t, "bk-1", gotBody["billingKey"])
	require.Equal(t, "KRW", gotBody["currency"])
	require.Equal(t, float64(9900), gotBody["amount"].(map[string]any)["total"])
	require.Equal(t, "user-1", gotBody["customer"].(map[string]any)["id"])
}

func TestGetPayment_DecodesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/payments/payment_1_abc", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "payment_1_abc",
			"status": "PAID",
			"amount": {"total": 9900},
			"currency": "KRW",
			"billingKey": "bk-1",
			"orderName": "IT Magazine Monthly",
			"customer": {"id": "user-1"}
		}`))
	})

	p, err := c.GetPayment(context.Background(), "payment_1_abc")
	require.NoError(t, err)
	require.Equal(t, int64(9900), p.Amount.Total)
	require.Equal(t, "user-1", p.Customer.ID)
	require.True(t, p.Complete())
}

func TestGetPayment_ErrorCarriesStatusAndRawBody(t *testing.T) {
	const body = `{"type":"PAYMENT_NOT_FOUND","message":"no such payment"}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.GetPayment(context.Background(), "payment_missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "PAYMENT_NOT_FOUND", apiErr.Type)
	require.Equal(t, "no such payment", apiErr.Message)
	require.JSONEq(t, body, string(apiErr.Raw))

	details, ok := apiErr.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "no such payment", details["message"])
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	})

	_, err := c.GetPayment(context.Background(), "payment_1_abc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "upstream timeout", apiErr.Details())
}

func TestSchedulePayment_RequestShape(t *testing.T) {
	timeToPay := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/sched-1/schedule", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.SchedulePayment(context.Background(), "sched-1", &ScheduleRequest{
		ChargeRequest: ChargeRequest{
			BillingKey: "bk-1",
			OrderName:  "IT Magazine Monthly",
			Amount:     9900,
			Currency:   "KRW",
			CustomerID: "user-1",
		},
		TimeToPay: timeToPay,
	})
	require.NoError(t, err)
	require.Equal(t, timeToPay.Format(time.RFC3339), gotBody["timeToPay"])
	payment := gotBody["payment"].(map[string]any)
	require.Equal(t, "bk-1", payment["billingKey"])
}

func TestGetPaymentSchedules_QueryAndDecode(t *testing.T) {
	from := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	until := from.Add(48 * time.Hour)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payment-schedules", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "bk-1", q.Get("billingKey"))
		require.Equal(t, from.Format(time.RFC3339), q.Get("from"))
		require.Equal(t, until.Format(time.RFC3339), q.Get("until"))
		_, _ = w.Write([]byte(`{"items":[{"id":"gw-sched-1","paymentId":"sched-1","status":"SCHEDULED"}]}`))
	})

	items, err := c.GetPaymentSchedules(context.Background(), &ScheduleFilter{
		BillingKey: "bk-1",
		From:       from,
		Until:      until,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "gw-sched-1", items[0].ID)
	require.Equal(t, "sched-1", items[0].PaymentID)
}

func TestRevokePaymentSchedules_SendsIDs(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.RevokePaymentSchedules(context.Background(), []string{"gw-sched-1"}))
	require.Equal(t, []any{"gw-sched-1"}, gotBody["scheduleIds"])
}

func TestIssueBillingKey_ReturnsKey(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/billing-keys", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"billingKeyInfo":{"billingKey":"bk-issued"}}`))
	})

	key, err := c.IssueBillingKey(context.Background(), &IssueBillingKeyRequest{
		CustomerID: "user-1",
		Card:       &CardCredential{Number: "4111111111111111", ExpiryYear: "28", ExpiryMonth: "12"},
	})
	require.NoError(t, err)
	require.Equal(t, "bk-issued", key)
	require.Equal(t, "channel-key-1", gotBody["channelKey"])
}

func TestCancelPayment_DefaultReason(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/payment_1_abc/cancel", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.CancelPayment(context.Background(), "payment_1_abc", ""))
	require.NotEmpty(t, gotBody["reason"])
}
