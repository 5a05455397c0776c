package notification_log

import (
	"context"

	"github.com/fatflowers/magazine/internal/models"
	"github.com/fatflowers/magazine/pkg/logctx"
	"github.com/fatflowers/magazine/pkg/tool"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment notification log. Nil input is
// ignored; persistence failures are logged but never surface to the webhook
// response.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	go func() {
		if log == nil {
			return
		}
		if log.ID == "" {
			log.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
		}
	}()
}

// Module exposes the notification log service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
