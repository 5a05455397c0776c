package app

import (
	"time"

	"github.com/fatflowers/magazine/internal/app/api/server"
	"github.com/fatflowers/magazine/internal/app/service/billing"
	notificationlog "github.com/fatflowers/magazine/internal/app/service/notification_log"
	"github.com/fatflowers/magazine/internal/app/service/statistics"
	"github.com/fatflowers/magazine/internal/app/service/subscription"
	"github.com/fatflowers/magazine/internal/platform/db"
	"github.com/fatflowers/magazine/internal/platform/portone"
	"github.com/fatflowers/magazine/pkg/config"
	"github.com/fatflowers/magazine/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Invoke(func(c *config.Config) error { return c.Validate() }),
	db.Module,
	portone.Module,
	server.Module,
	billing.Module,
	subscription.Module,
	statistics.Module,
	notificationlog.Module,
)
