package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/docs"
	"github.com/fatflowers/roulette/internal/app/api/handlers"
	mw "github.com/fatflowers/roulette/internal/app/api/middleware"
	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/cashback"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/spin"
	"github.com/fatflowers/roulette/internal/app/service/statistics"
	"github.com/fatflowers/roulette/internal/platform/jobs"
	cfgpkg "github.com/fatflowers/roulette/pkg/config"
	metrics "github.com/fatflowers/roulette/pkg/metrics"
)

type routeParams struct {
	fx.In

	Lc        fx.Lifecycle
	Log       *zap.SugaredLogger
	Cfg       *cfgpkg.Config
	Engine    *gin.Engine
	Catalog   *catalog.Store
	Ledger    *cashback.Ledger
	Spin      *spin.Service
	Profiles  *birthday.ProfileStore
	Scheduler *birthday.Scheduler
	Jobs      *jobs.Runner
	Stats     *statistics.Service
}

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	r.Use(mw.CORSMiddleware(cfg.CORS.AllowedOrigins))
	return r
}

func registerRoutes(p routeParams) {
	r, log, cfg := p.Engine, p.Log, p.Cfg

	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{Logger: log})
		prom.Use(r)
		serve(p.Lc, log, "metrics", cfg.MetricsAddr, prom.Router())
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())

	handlers.RegisterPublicWheelRoutes(apiV1.Group("/wheel"), p.Catalog)

	wheel := apiV1.Group("/wheel")
	wheel.Use(mw.AuthRequired(cfg.Auth.JWTSecret, log))
	limiter := mw.NewRateLimiter(cfg.RateLimit.SpinsPerMinute)
	handlers.RegisterWheelRoutes(wheel, p.Spin, p.Profiles, limiter.Middleware())
	handlers.RegisterCashbackRoutes(wheel, p.Ledger)

	admin := apiV1.Group("/admin")
	admin.Use(mw.AuthRequired(cfg.Auth.JWTSecret, log), mw.AdminRequired(cfg.Auth.AdminRole))
	handlers.RegisterAdminWheelRoutes(admin, p.Catalog)
	handlers.RegisterAdminBirthdayRoutes(admin, p.Profiles, p.Scheduler, p.Jobs)
	handlers.RegisterAdminStatisticsRoutes(admin, p.Stats)
}

func serve(lc fx.Lifecycle, log *zap.SugaredLogger, name, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting "+name+" server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("%s server error: %v", name, err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping " + name + " server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	serve(lc, log, "HTTP", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), r)
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
