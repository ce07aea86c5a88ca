package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/roulette/internal/app/api/server"
	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/cashback"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/app/service/reward"
	"github.com/fatflowers/roulette/internal/app/service/spin"
	"github.com/fatflowers/roulette/internal/app/service/statistics"
	"github.com/fatflowers/roulette/internal/platform/commerce"
	"github.com/fatflowers/roulette/internal/platform/db"
	"github.com/fatflowers/roulette/internal/platform/jobs"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/logger"
	"github.com/fatflowers/roulette/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	kv.Module,
	metrics.Module,
	commerce.Module,
	notification.Module,
	cashback.Module,
	catalog.Module,
	reward.Module,
	birthday.Module,
	spin.Module,
	statistics.Module,
	jobs.Module,
	server.Module,
)
