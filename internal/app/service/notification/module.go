package notification

import (
	"go.uber.org/fx"

	"github.com/fatflowers/roulette/pkg/config"
)

// Senders groups the concrete senders built from configuration.
type Senders struct {
	fx.Out

	Email *EmailSender
	SMS   *SMSSender
}

func newSenders(cfg *config.Config) Senders {
	return Senders{
		Email: NewEmailSender(cfg.SMTP, cfg.Wheel.SiteName),
		SMS:   NewSMSSender(cfg.SMS, nil),
	}
}

var Module = fx.Options(
	fx.Provide(newSenders),
)
