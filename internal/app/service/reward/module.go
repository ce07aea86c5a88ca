package reward

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/cashback"
	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/platform/commerce"
	"github.com/fatflowers/roulette/pkg/config"
)

func newApplier(cfg *config.Config, client *commerce.Client, ledger *cashback.Ledger, email *notification.EmailSender, log *zap.SugaredLogger) *Applier {
	return NewApplier(client, ledger, email, OptionsFromConfig(cfg.Wheel.Coupon), log)
}

var Module = fx.Options(
	fx.Provide(newApplier),
)
