package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/magazine/internal/models"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status is what the presentation layer gates content on.
type Status struct {
	Subscribed     bool    `json:"subscribed"`
	TransactionKey *string `json:"transactionKey"`
}

// Service derives the current subscription state from the ledger. Read-only;
// it never writes.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	Now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, Now: time.Now}
}

// Status groups the user's ledger rows by transaction key, keeps the newest
// row per key, and counts the user as subscribed when any kept row is a Paid
// row whose coverage window (including grace) contains now. Duplicate Paid
// rows from replayed webhooks collapse in the dedupe step.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	var rows []*models.Payment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ledger records: %w", err)
	}

	// rows are newest first, so the first occurrence per key is the latest.
	latestPerKey := lo.UniqBy(rows, func(p *models.Payment) string { return p.TransactionKey })

	now := s.Now()
	active := lo.Filter(latestPerKey, func(p *models.Payment, _ int) bool { return p.ActiveAt(now) })
	if len(active) == 0 {
		return &Status{Subscribed: false}, nil
	}
	return &Status{Subscribed: true, TransactionKey: lo.ToPtr(active[0].TransactionKey)}, nil
}
