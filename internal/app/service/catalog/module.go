package catalog

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func seedOnStart(lc fx.Lifecycle, s *Store, log *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := s.SeedDefaults(ctx); err != nil {
				log.Warnw("seed reward sectors failed", "err", err)
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Invoke(seedOnStart),
)
