package models

import (
	"testing"
	"time"

	"github.com/fatflowers/magazine/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestPayment_TableName(t *testing.T) {
	var m Payment
	require.Equal(t, "payment", m.TableName())
}

func TestPayment_ActiveAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{
		Status:     types.PaymentStatusPaid,
		StartAt:    start,
		EndAt:      start.Add(30 * 24 * time.Hour),
		EndGraceAt: start.Add(31 * 24 * time.Hour),
	}

	require.False(t, p.ActiveAt(start.Add(-time.Second)))
	require.True(t, p.ActiveAt(start))
	require.True(t, p.ActiveAt(start.Add(15*24*time.Hour)))
	// inside grace, past nominal expiry
	require.True(t, p.ActiveAt(p.EndAt.Add(time.Hour)))
	require.True(t, p.ActiveAt(p.EndGraceAt))
	require.False(t, p.ActiveAt(p.EndGraceAt.Add(time.Second)))
}

func TestPayment_ActiveAt_CancelRowNeverActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{
		Status:     types.PaymentStatusCancel,
		StartAt:    start,
		EndGraceAt: start.Add(31 * 24 * time.Hour),
	}
	require.False(t, p.ActiveAt(start.Add(time.Hour)))
}

func TestPayment_Reversal(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{
		ID:             "row-1",
		UserID:         "user-1",
		TransactionKey: "tx-1",
		Amount:         9900,
		Currency:       "KRW",
		Status:         types.PaymentStatusPaid,
		OrderName:      "IT Magazine Monthly",
		StartAt:        start,
		EndAt:          start.Add(30 * 24 * time.Hour),
		EndGraceAt:     start.Add(31 * 24 * time.Hour),
		NextScheduleAt: start.Add(31 * 24 * time.Hour),
		NextScheduleID: "sched-1",
	}

	rev := p.Reversal()
	require.Equal(t, types.PaymentStatusCancel, rev.Status)
	require.Equal(t, int64(-9900), rev.Amount)
	require.Equal(t, p.UserID, rev.UserID)
	require.Equal(t, p.TransactionKey, rev.TransactionKey)
	require.True(t, rev.StartAt.Equal(p.StartAt))
	require.True(t, rev.EndAt.Equal(p.EndAt))
	require.True(t, rev.EndGraceAt.Equal(p.EndGraceAt))
	require.Equal(t, p.NextScheduleID, rev.NextScheduleID)
	// new row, new identity
	require.Empty(t, rev.ID)
}

func TestPaymentNotificationLog_TableName(t *testing.T) {
	var m PaymentNotificationLog
	require.Equal(t, "payment_notification_log", m.TableName())
}
