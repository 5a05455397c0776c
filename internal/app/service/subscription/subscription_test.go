package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/fatflowers/magazine/internal/models"
	"github.com/fatflowers/magazine/pkg/tool"
	"github.com/fatflowers/magazine/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Payment{}))
	return NewService(db, zap.NewNop().Sugar())
}

func insertRow(t *testing.T, db *gorm.DB, userID, key string, status types.PaymentStatus, startAt, createdAt time.Time) {
	t.Helper()
	amount := int64(9900)
	if status == types.PaymentStatusCancel {
		amount = -amount
	}
	require.NoError(t, db.Create(&models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		TransactionKey: key,
		Amount:         amount,
		Currency:       "KRW",
		Status:         status,
		OrderName:      "IT Magazine Monthly",
		StartAt:        startAt,
		EndAt:          startAt.Add(30 * 24 * time.Hour),
		EndGraceAt:     startAt.Add(31 * 24 * time.Hour),
		NextScheduleAt: startAt.Add(31 * 24 * time.Hour),
		NextScheduleID: tool.ScheduleIDForPayment(key),
		CreatedAt:      createdAt,
	}).Error)
}

func TestStatus_NoRows(t *testing.T) {
	svc := newTestService(t)

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, st.Subscribed)
	require.Nil(t, st.TransactionKey)
}

func TestStatus_ActivePaidRow(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, now.Add(-24*time.Hour), now.Add(-24*time.Hour))

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, st.Subscribed)
	require.NotNil(t, st.TransactionKey)
	require.Equal(t, "tx-1", *st.TransactionKey)
}

func TestStatus_CancelledSubscription(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	startAt := now.Add(-24 * time.Hour)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, startAt, startAt)
	// reversal is newer, so it shadows the Paid row for the same key
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusCancel, startAt, now.Add(-time.Hour))

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, st.Subscribed)
}

func TestStatus_ExpiredWindow(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	startAt := now.Add(-40 * 24 * time.Hour)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, startAt, startAt)

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, st.Subscribed)
}

func TestStatus_WithinGracePeriod(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	// expired 12 hours ago, still inside the one day grace window
	startAt := now.Add(-30*24*time.Hour - 12*time.Hour)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, startAt, startAt)

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, st.Subscribed)
}

func TestStatus_ReplayedPaidRowsCollapse(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	startAt := now.Add(-24 * time.Hour)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, startAt, startAt)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, startAt, startAt.Add(time.Minute))

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, st.Subscribed)
	require.Equal(t, "tx-1", *st.TransactionKey)
}

func TestStatus_OtherUsersRowsIgnored(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	insertRow(t, svc.db, "user-2", "tx-1", types.PaymentStatusPaid, now.Add(-24*time.Hour), now.Add(-24*time.Hour))

	st, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, st.Subscribed)
}
