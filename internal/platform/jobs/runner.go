package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/pkg/config"
)

// Runner drives the birthday scheduler. With redis configured ticks come from
// an asynq periodic task; otherwise an in-process ticker calls Tick directly.
type Runner struct {
	target   BirthdayRunner
	interval time.Duration
	log      *zap.SugaredLogger

	client    *asynq.Client
	server    *asynq.Server
	scheduler *asynq.Scheduler

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRunner(lc fx.Lifecycle, cfg *config.Config, target *birthday.Scheduler, log *zap.SugaredLogger) *Runner {
	r := newRunner(cfg, target, log.Named("jobs"))
	lc.Append(fx.Hook{OnStart: r.Start, OnStop: r.Stop})
	return r
}

func newRunner(cfg *config.Config, target BirthdayRunner, log *zap.SugaredLogger) *Runner {
	interval := cfg.Birthday.TickInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	r := &Runner{target: target, interval: interval, log: log}
	if cfg.Redis.Addr == "" {
		return r
	}
	opt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	r.client = asynq.NewClient(opt)
	r.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{queueName: 1},
		Logger:      log,
	})
	r.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: cfg.Birthday.Location(),
		Logger:   log,
	})
	return r
}

func (r *Runner) Start(ctx context.Context) error {
	if r.scheduler == nil {
		r.stop = make(chan struct{})
		r.wg.Add(1)
		go r.loop()
		r.log.Infow("birthday ticks running in process", "interval", r.interval)
		return nil
	}
	if err := r.server.Start(NewMux(r.target, r.log)); err != nil {
		return fmt.Errorf("start job server: %w", err)
	}
	spec := "@every " + r.interval.String()
	if _, err := r.scheduler.Register(spec, NewTickTask(r.interval)); err != nil {
		return fmt.Errorf("register birthday tick: %w", err)
	}
	if err := r.scheduler.Start(); err != nil {
		return fmt.Errorf("start job scheduler: %w", err)
	}
	r.log.Infow("birthday ticks scheduled", "spec", spec)
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	if r.scheduler == nil {
		if r.stop != nil {
			close(r.stop)
			r.wg.Wait()
		}
		return nil
	}
	r.scheduler.Shutdown()
	r.server.Shutdown()
	return r.client.Close()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.tick()
	for {
		select {
		case <-r.stop:
			return
		case <-t.C:
			r.tick()
		}
	}
}

func (r *Runner) tick() {
	if _, err := r.target.Tick(context.Background()); err != nil {
		r.log.Warnw("birthday tick finished with errors", "err", err)
	}
}

// RequestRefresh queues a year-ahead rebuild. Without a job queue it runs
// inline. queued reports which path was taken.
func (r *Runner) RequestRefresh(ctx context.Context, force bool) (queued bool, err error) {
	if r.client == nil {
		_, err := r.target.RefreshYearAhead(ctx, force)
		return false, err
	}
	task, err := NewRefreshTask(force)
	if err != nil {
		return false, err
	}
	info, err := r.client.EnqueueContext(ctx, task)
	if err != nil {
		return false, fmt.Errorf("enqueue refresh: %w", err)
	}
	r.log.Infow("year ahead refresh queued", "task_id", info.ID, "force", force)
	return true, nil
}

var Module = fx.Options(
	fx.Provide(NewRunner),
)
