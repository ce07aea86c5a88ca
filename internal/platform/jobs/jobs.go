package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/birthday"
)

const (
	TypeBirthdayTick    = "birthday:tick"
	TypeBirthdayRefresh = "birthday:refresh"

	queueName   = "birthday"
	taskTimeout = 5 * time.Minute
)

// BirthdayRunner is the scheduler surface the job handlers drive.
type BirthdayRunner interface {
	Tick(ctx context.Context) (*birthday.TickReport, error)
	RefreshYearAhead(ctx context.Context, force bool) (bool, error)
}

type RefreshPayload struct {
	Force bool `json:"force"`
}

func NewRefreshTask(force bool) (*asynq.Task, error) {
	b, err := json.Marshal(RefreshPayload{Force: force})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBirthdayRefresh, b, asynq.MaxRetry(0), asynq.Queue(queueName), asynq.Timeout(taskTimeout)), nil
}

func NewTickTask(interval time.Duration) *asynq.Task {
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Queue(queueName), asynq.Timeout(taskTimeout)}
	if interval > time.Second {
		opts = append(opts, asynq.Unique(interval-time.Second))
	}
	return asynq.NewTask(TypeBirthdayTick, nil, opts...)
}

// NewMux routes birthday tasks. Failures are not retried; the next tick
// picks up whatever the last one left undone.
func NewMux(r BirthdayRunner, log *zap.SugaredLogger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBirthdayTick, handleTick(r, log))
	mux.HandleFunc(TypeBirthdayRefresh, handleRefresh(r, log))
	return mux
}

func handleTick(r BirthdayRunner, log *zap.SugaredLogger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if _, err := r.Tick(ctx); err != nil {
			log.Warnw("birthday tick finished with errors", "err", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}

func handleRefresh(r BirthdayRunner, log *zap.SugaredLogger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p RefreshPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &p); err != nil {
				return fmt.Errorf("decode refresh payload: %w: %w", err, asynq.SkipRetry)
			}
		}
		built, err := r.RefreshYearAhead(ctx, p.Force)
		if err != nil {
			log.Warnw("year ahead refresh failed", "force", p.Force, "err", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Infow("year ahead refresh done", "force", p.Force, "built", built)
		return nil
	}
}
