package birthday

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/metrics"
)

func newScheduler(cfg *config.Config, profiles *ProfileStore, calendar *CalendarStore, markers kv.Store,
	email *notification.EmailSender, sms *notification.SMSSender, m *metrics.Business, log *zap.SugaredLogger) *Scheduler {
	sender := notification.ForChannel(cfg.Birthday.DeliveryChannel, email, sms)
	return NewScheduler(cfg.Birthday, profiles, calendar, markers, sender, email, m, log.Named("birthday"))
}

var Module = fx.Options(
	fx.Provide(NewProfileStore, NewCalendarStore, newScheduler),
)
