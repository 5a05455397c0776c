package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fatflowers/magazine/internal/models"
	"github.com/fatflowers/magazine/internal/platform/portone"
	"github.com/fatflowers/magazine/pkg/config"
	"github.com/fatflowers/magazine/pkg/logctx"
	"github.com/fatflowers/magazine/pkg/tool"
	"github.com/fatflowers/magazine/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// coveragePeriod is how long one charge pays for; gracePeriod extends
	// access past nominal expiry to absorb clock skew and late renewals.
	coveragePeriod = 30 * 24 * time.Hour
	gracePeriod    = 24 * time.Hour

	// renewalLeadGap separates expiry from the renewal charge day.
	renewalLeadGap = 24 * time.Hour
	// renewalHour is the local hour the renewal batch starts; the actual
	// charge time gets a random offset within the hour to spread load at the
	// gateway.
	renewalHour = 10

	// descheduleWindow widens the schedule lookup around NextScheduleAt on
	// cancellation.
	descheduleWindow = 24 * time.Hour
)

// Gateway is the subset of the payment gateway the engine depends on.
type Gateway interface {
	ChargeBillingKey(ctx context.Context, paymentID string, req *portone.ChargeRequest) error
	GetPayment(ctx context.Context, paymentID string) (*portone.Payment, error)
	SchedulePayment(ctx context.Context, scheduleID string, req *portone.ScheduleRequest) error
	GetPaymentSchedules(ctx context.Context, filter *portone.ScheduleFilter) ([]*portone.Schedule, error)
	RevokePaymentSchedules(ctx context.Context, scheduleIDs []string) error
	CancelPayment(ctx context.Context, paymentID string, reason string) error
}

// Service orchestrates the billing lifecycle across the gateway and the
// ledger: charge, record, schedule renewal, and the reverse on cancellation.
type Service struct {
	cfg *config.Config
	log *zap.SugaredLogger
	db  *gorm.DB
	gw  Gateway

	// Now and Jitter are injectable for tests. Jitter returns the offset
	// within the renewal hour, in [0, 60m).
	Now    func() time.Time
	Jitter func() time.Duration
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, gw Gateway) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		db:  db,
		gw:  gw,
		Now: time.Now,
		Jitter: func() time.Duration {
			return time.Duration(rand.Intn(60)) * time.Minute
		},
	}
}

type InitiateChargeRequest struct {
	BillingKey string `json:"billingKey" binding:"required"`
	OrderName  string `json:"orderName" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	CustomerID string `json:"-"`
}

// InitiateCharge requests an immediate charge against the billing key. The
// ledger is not touched here; the Paid row is appended when the gateway
// delivers the settlement webhook. Returns the generated payment id.
func (s *Service) InitiateCharge(ctx context.Context, req *InitiateChargeRequest) (string, error) {
	paymentID := tool.GeneratePaymentID()
	err := s.gw.ChargeBillingKey(ctx, paymentID, &portone.ChargeRequest{
		BillingKey: req.BillingKey,
		OrderName:  req.OrderName,
		Amount:     req.Amount,
		Currency:   s.cfg.Plan.Currency,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to charge billing key: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("charge_initiated", "payment_id", paymentID, "amount", req.Amount)
	return paymentID, nil
}

// ProcessPaid handles a settled charge: fetch the gateway record, append the
// Paid ledger row, then try to schedule the renewal. The ledger append is the
// point of no return; a failed schedule call is logged and swallowed because
// the paid state is already durable and a missed renewal is recoverable
// out of band.
func (s *Service) ProcessPaid(ctx context.Context, paymentID string) error {
	log := logctx.FromCtx(ctx, s.log)

	p, err := s.gw.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	if !p.Complete() {
		return ErrIncompletePayment
	}

	now := s.Now()
	endAt := now.Add(coveragePeriod)
	scheduleID := tool.ScheduleIDForPayment(paymentID)
	nextScheduleAt := s.renewalChargeAt(endAt)

	currency := p.Currency
	if currency == "" {
		currency = s.cfg.Plan.Currency
	}

	snapshot, _ := json.Marshal(p)
	rec := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UserID:         p.Customer.ID,
		TransactionKey: paymentID,
		Amount:         p.Amount.Total,
		Currency:       currency,
		Status:         types.PaymentStatusPaid,
		OrderName:      p.OrderName,
		StartAt:        now,
		EndAt:          endAt,
		EndGraceAt:     endAt.Add(gracePeriod),
		NextScheduleAt: nextScheduleAt,
		NextScheduleID: scheduleID,
		Extra:          datatypes.JSON(snapshot),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append paid record: %w", err)
	}
	log.Infow("paid_record_appended", "transaction_key", paymentID, "user_id", p.Customer.ID, "end_at", endAt)

	if err := s.gw.SchedulePayment(ctx, scheduleID, &portone.ScheduleRequest{
		ChargeRequest: portone.ChargeRequest{
			BillingKey: p.BillingKey,
			OrderName:  p.OrderName,
			Amount:     p.Amount.Total,
			Currency:   currency,
			CustomerID: p.Customer.ID,
		},
		TimeToPay: nextScheduleAt,
	}); err != nil {
		log.Warnw("renewal_schedule_failed", "transaction_key", paymentID, "schedule_id", scheduleID, "error", err.Error())
		return nil
	}
	log.Infow("renewal_scheduled", "transaction_key", paymentID, "schedule_id", scheduleID, "time_to_pay", nextScheduleAt)
	return nil
}

// renewalChargeAt places the next charge one day past expiry, at local 10:00
// plus the jitter offset.
func (s *Service) renewalChargeAt(endAt time.Time) time.Time {
	base := endAt.Add(renewalLeadGap)
	y, m, d := base.Date()
	at := time.Date(y, m, d, renewalHour, 0, 0, 0, base.Location())
	return at.Add(s.Jitter())
}

// Cancel is the user-initiated path: verify ownership, reverse the charge at
// the gateway, then run the shared reversal flow.
func (s *Service) Cancel(ctx context.Context, userID, transactionKey string) error {
	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("transaction_key = ? AND user_id = ?", transactionKey, userID).
		Count(&owned).Error; err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if owned == 0 {
		return ErrNotOwner
	}

	if err := s.gw.CancelPayment(ctx, transactionKey, ""); err != nil {
		return fmt.Errorf("failed to cancel payment at gateway: %w", err)
	}

	return s.ProcessCancelled(ctx, transactionKey)
}

// ProcessCancelled appends the reversal row for a cancelled charge and makes a
// best-effort attempt to revoke the pending renewal schedule. The reversal row
// is authoritative: any failure while descheduling is logged and swallowed, and
// a stray schedule that fires later is reconciled when its settlement webhook
// finds no matching active subscription.
func (s *Service) ProcessCancelled(ctx context.Context, paymentID string) error {
	log := logctx.FromCtx(ctx, s.log)

	p, err := s.gw.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	q := s.db.WithContext(ctx).Where("transaction_key = ?", paymentID)
	if p.Customer.ID != "" {
		q = q.Where("user_id = ?", p.Customer.ID)
	}
	var latest models.Payment
	err = q.Order("created_at DESC, id DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPaidRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load ledger record: %w", err)
	}
	if latest.Status != types.PaymentStatusPaid {
		// already reversed
		return ErrPaidRecordNotFound
	}

	rev := latest.Reversal()
	rev.ID = tool.GenerateUUIDV7()
	if err := s.db.WithContext(ctx).Create(rev).Error; err != nil {
		return fmt.Errorf("failed to append cancel record: %w", err)
	}
	log.Infow("cancel_record_appended", "transaction_key", paymentID, "user_id", latest.UserID, "amount", rev.Amount)

	s.descheduleRenewal(ctx, p.BillingKey, &latest)
	return nil
}

func (s *Service) descheduleRenewal(ctx context.Context, billingKey string, paid *models.Payment) {
	log := logctx.FromCtx(ctx, s.log)
	if paid.NextScheduleID == "" || billingKey == "" {
		return
	}

	items, err := s.gw.GetPaymentSchedules(ctx, &portone.ScheduleFilter{
		BillingKey: billingKey,
		From:       paid.NextScheduleAt.Add(-descheduleWindow),
		Until:      paid.NextScheduleAt.Add(descheduleWindow),
	})
	if err != nil {
		log.Warnw("renewal_deschedule_lookup_failed", "transaction_key", paid.TransactionKey, "error", err.Error())
		return
	}

	target, ok := lo.Find(items, func(it *portone.Schedule) bool {
		return it.PaymentID == paid.NextScheduleID
	})
	if !ok {
		log.Warnw("renewal_schedule_not_found", "transaction_key", paid.TransactionKey, "schedule_id", paid.NextScheduleID)
		return
	}

	if err := s.gw.RevokePaymentSchedules(ctx, []string{target.ID}); err != nil {
		log.Warnw("renewal_deschedule_failed", "transaction_key", paid.TransactionKey, "schedule_id", target.ID, "error", err.Error())
		return
	}
	log.Infow("renewal_descheduled", "transaction_key", paid.TransactionKey, "schedule_id", target.ID)
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Total int64             `json:"total"`
	Items []*models.Payment `json:"items"`
}

// ScanPayments implements paginated admin listing of ledger rows with filters.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
