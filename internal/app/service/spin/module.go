package spin

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/eligibility"
	"github.com/fatflowers/roulette/internal/app/service/reward"
	"github.com/fatflowers/roulette/internal/platform/commerce"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/metrics"
)

type params struct {
	fx.In

	Cfg      *config.Config
	Catalog  *catalog.Store
	Applier  *reward.Applier
	Commerce *commerce.Client
	Profiles *birthday.ProfileStore
	Locks    kv.Store
	Metrics  *metrics.Business
	Log      *zap.SugaredLogger
}

func newService(p params) (*Service, error) {
	rules, err := eligibility.RulesFromConfig(p.Cfg.Wheel.Targeting)
	if err != nil {
		return nil, err
	}
	return NewService(Deps{
		Catalog:   p.Catalog,
		Applier:   p.Applier,
		Directory: p.Commerce,
		History:   p.Commerce,
		Coupons:   p.Commerce,
		Birthdays: p.Profiles,
		Locks:     p.Locks,
		Metrics:   p.Metrics,
		Log:       p.Log,
	}, Options{
		Rules:          rules,
		SerializeSpins: p.Cfg.Wheel.SerializeSpins,
		Location:       p.Cfg.Birthday.Location(),
	}), nil
}

var Module = fx.Options(
	fx.Provide(newService),
)
