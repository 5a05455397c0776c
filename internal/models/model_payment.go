package models

import (
	"time"

	"github.com/fatflowers/magazine/pkg/types"

	"gorm.io/datatypes"
)

// Payment is one row of the billing ledger. The table is append-only: a
// settled charge inserts a Paid row, a cancellation inserts a Cancel row with
// the amount negated and the window fields copied from the Paid row it
// reverses. Rows are never updated or deleted.
type Payment struct {
	ID     string `gorm:"column:id;primary_key;type:uuid;index:idx_user_id_id,priority:2,sort:desc" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_id_id,priority:1" json:"user_id"`
	// TransactionKey is the gateway payment id. A Paid row and its reversal
	// share the same key.
	TransactionKey string              `gorm:"column:transaction_key;type:varchar(128);not null;index" json:"transaction_key"`
	Amount         int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency       string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status         types.PaymentStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	OrderName      string              `gorm:"column:order_name;type:varchar(255)" json:"order_name"`
	// StartAt..EndAt is the paid coverage window; EndGraceAt extends it by one
	// day so access survives clock skew and late renewals.
	StartAt    time.Time `gorm:"column:start_at;not null" json:"start_at"`
	EndAt      time.Time `gorm:"column:end_at;not null" json:"end_at"`
	EndGraceAt time.Time `gorm:"column:end_grace_at;not null" json:"end_grace_at"`
	// NextScheduleAt is when the renewal charge is due at the gateway.
	NextScheduleAt time.Time `gorm:"column:next_schedule_at;not null" json:"next_schedule_at"`
	// NextScheduleID is derived from TransactionKey, never stored-and-looked-up
	// elsewhere; see tool.ScheduleIDForPayment.
	NextScheduleID string `gorm:"column:next_schedule_id;type:varchar(64);not null" json:"next_schedule_id"`
	// Extra stores the raw gateway payment snapshot on Paid rows; nil on
	// reversal rows.
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// ActiveAt reports whether this row grants access at the given instant.
func (p *Payment) ActiveAt(now time.Time) bool {
	if p == nil || p.Status != types.PaymentStatusPaid {
		return false
	}
	return !now.Before(p.StartAt) && !now.After(p.EndGraceAt)
}

// Reversal builds the Cancel row undoing this Paid row. Window fields are
// copied verbatim, the amount is negated.
func (p *Payment) Reversal() *Payment {
	if p == nil {
		return nil
	}
	return &Payment{
		UserID:         p.UserID,
		TransactionKey: p.TransactionKey,
		Amount:         -p.Amount,
		Currency:       p.Currency,
		Status:         types.PaymentStatusCancel,
		OrderName:      p.OrderName,
		StartAt:        p.StartAt,
		EndAt:          p.EndAt,
		EndGraceAt:     p.EndGraceAt,
		NextScheduleAt: p.NextScheduleAt,
		NextScheduleID: p.NextScheduleID,
	}
}
