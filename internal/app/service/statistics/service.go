package statistics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatflowers/magazine/internal/models"
	"github.com/fatflowers/magazine/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service computes admin-facing revenue aggregates over the payment ledger.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	Now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, Now: time.Now}
}

type RevenueSummaryRequest struct {
	From  time.Time `json:"from"`
	Until time.Time `json:"until"`
}

type DailyRevenueItem struct {
	Date        string `json:"date"`
	ChargeCount int64  `json:"charge_count"`
	GrossVolume int64  `json:"gross_volume"`
}

type RevenueSummaryResponse struct {
	Daily             []*DailyRevenueItem `json:"daily"`
	TotalGrossVolume  int64               `json:"total_gross_volume"`
	ActiveSubscribers int64               `json:"active_subscribers"`
}

// RevenueSummary aggregates Paid rows per day in [from, until) and counts the
// users currently holding an active subscription. Cancel rows reduce gross
// volume through their negative amounts.
func (s *Service) RevenueSummary(ctx context.Context, req *RevenueSummaryRequest) (*RevenueSummaryResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	until := req.Until
	if until.IsZero() {
		until = s.Now()
	}

	var rows []*models.Payment
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if !req.From.IsZero() {
		q = q.Where("created_at >= ?", req.From)
	}
	if err := q.Where("created_at < ?", until).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger rows: %w", err)
	}

	byDay := lo.GroupBy(rows, func(p *models.Payment) string {
		return p.CreatedAt.UTC().Format("2006-01-02")
	})
	daily := make([]*DailyRevenueItem, 0, len(byDay))
	var totalVolume int64
	for day, items := range byDay {
		item := &DailyRevenueItem{Date: day}
		for _, p := range items {
			if p.Status == types.PaymentStatusPaid {
				item.ChargeCount++
			}
			item.GrossVolume += p.Amount
		}
		totalVolume += item.GrossVolume
		daily = append(daily, item)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	active, err := s.countActiveSubscribers(ctx)
	if err != nil {
		return nil, err
	}

	return &RevenueSummaryResponse{
		Daily:             daily,
		TotalGrossVolume:  totalVolume,
		ActiveSubscribers: active,
	}, nil
}

// countActiveSubscribers runs the active-subscription derivation across all
// users: newest row per transaction key, Paid status, window containing now.
func (s *Service) countActiveSubscribers(ctx context.Context) (int64, error) {
	var rows []*models.Payment
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to load ledger rows: %w", err)
	}

	now := s.Now()
	latestPerKey := lo.UniqBy(rows, func(p *models.Payment) string { return p.TransactionKey })
	active := lo.Filter(latestPerKey, func(p *models.Payment, _ int) bool { return p.ActiveAt(now) })
	users := lo.UniqBy(active, func(p *models.Payment) string { return p.UserID })
	return int64(len(users)), nil
}
