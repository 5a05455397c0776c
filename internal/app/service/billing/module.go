package billing

import (
	"github.com/fatflowers/magazine/internal/platform/portone"

	"go.uber.org/fx"
)

// Module exposes the billing engine via Fx.
var Module = fx.Options(
	fx.Provide(func(c *portone.Client) Gateway { return c }),
	fx.Provide(NewService),
)
