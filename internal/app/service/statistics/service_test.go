package statistics

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

func insertRow(t *testing.T, db *gorm.DB, userID, key string, status types.PaymentStatus, amount int64, startAt, createdAt time.Time) {
	t.Helper()
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

func TestRevenueSummary_DailyAggregation(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, 9900, day1, day1)
	insertRow(t, svc.db, "user-2", "tx-2", types.PaymentStatusPaid, 9900, day1, day1.Add(time.Hour))
	// user-2 cancelled the next day, amount comes back negated
	insertRow(t, svc.db, "user-2", "tx-2", types.PaymentStatusCancel, -9900, day1, day2)

	res, err := svc.RevenueSummary(context.Background(), &RevenueSummaryRequest{From: day1.Add(-time.Hour)})
	require.NoError(t, err)

	require.Len(t, res.Daily, 2)
	require.Equal(t, "2026-03-10", res.Daily[0].Date)
	require.Equal(t, int64(2), res.Daily[0].ChargeCount)
	require.Equal(t, int64(19800), res.Daily[0].GrossVolume)
	require.Equal(t, "2026-03-11", res.Daily[1].Date)
	require.Equal(t, int64(0), res.Daily[1].ChargeCount)
	require.Equal(t, int64(-9900), res.Daily[1].GrossVolume)

	require.Equal(t, int64(9900), res.TotalGrossVolume)
	// only user-1 still holds an active subscription
	require.Equal(t, int64(1), res.ActiveSubscribers)
}

func TestRevenueSummary_WindowBoundsExclusive(t *testing.T) {
	svc := newTestService(t)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	insertRow(t, svc.db, "user-1", "tx-1", types.PaymentStatusPaid, 9900, day, day)

	res, err := svc.RevenueSummary(context.Background(), &RevenueSummaryRequest{
		From:  day.Add(time.Hour),
		Until: day.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.Empty(t, res.Daily)
	require.Zero(t, res.TotalGrossVolume)
}

func TestRevenueSummary_NilRequest(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RevenueSummary(context.Background(), nil)
	require.Error(t, err)
}
