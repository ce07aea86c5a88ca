package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/types"
)

type StatisticType string

const (
	// Daily spins and wins, wins labelled by reward type
	StatisticTypeDailySpinCount StatisticType = "daily_spin_count"
	StatisticTypeDailyWinCount  StatisticType = "daily_win_count"

	// Grants, labelled by status
	StatisticTypeGrantStatusCount StatisticType = "grant_status_count"
)

// filterFields apply to spin_log based statistics only.
var filterFields = []string{"user_id", "sector_id", "reward_type", "created_at"}

var statisticTypes = []StatisticType{StatisticTypeDailySpinCount, StatisticTypeDailyWinCount, StatisticTypeGrantStatusCount}

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	Filters   types.FilterSet `json:"filters"`
	DataItems []*DataItem     `json:"data_items"`
}

type ResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// dayExpr renders a timestamp column as YYYY-MM-DD on both postgres and mysql.
const dayExpr = "CAST(DATE(created_at) AS CHAR(10))"

func (s *Service) spinLogs(ctx context.Context, req *Request) *gorm.DB {
	q := s.db.WithContext(ctx).Table((models.SpinLog{}).TableName())
	if len(req.Filters) > 0 {
		q = q.Where(clause.Where{Exprs: []clause.Expression{req.Filters}})
	}
	return q
}

func (s *Service) getDailySpinCount(ctx context.Context, req *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.spinLogs(ctx, req).
		Select(dayExpr + " AS date, count(*) AS value").
		Group(dayExpr).
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyWinCount(ctx context.Context, req *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.spinLogs(ctx, req).
		Select(dayExpr+" AS date, reward_type AS label, count(*) AS value").
		Where("reward_type != ?", types.RewardTypeNoWin).
		Group(dayExpr).
		Group("reward_type").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getGrantStatusCount(ctx context.Context, _ *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserReward{}).TableName()).
		Select("status AS label, count(*) AS value").
		Group("status").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, req *Request, item *DataItem) ([]ResponseDataItem, error) {
	switch item.ID {
	case StatisticTypeDailySpinCount:
		return s.getDailySpinCount(ctx, req)
	case StatisticTypeDailyWinCount:
		return s.getDailyWinCount(ctx, req)
	case StatisticTypeGrantStatusCount:
		return s.getGrantStatusCount(ctx, req)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", item.ID)
	}
}

// Validate rejects unknown items and filters on columns outside spin_log.
// grant_status_count ignores filters.
func (r *Request) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("data_items required")
	}
	for _, item := range r.DataItems {
		if item == nil {
			return fmt.Errorf("nil data item")
		}
		if !lo.Contains(statisticTypes, item.ID) {
			return fmt.Errorf("invalid data item id: %s", item.ID)
		}
	}
	return r.Filters.Validate(filterFields)
}

// GetStatistic computes every requested item concurrently; the first error
// fails the whole request.
func (s *Service) GetStatistic(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[StatisticType][]ResponseDataItem, len(req.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range req.DataItems {
		g.Go(func() error {
			res, err := s.getStatistic(gctx, req, item)
			if err != nil {
				return err
			}
			mu.Lock()
			results[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Response{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
