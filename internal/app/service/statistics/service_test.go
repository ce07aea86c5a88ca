package statistics

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/roulette/pkg/types"
)

func dryRun(t *testing.T) (*Service, func() []string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		stmt []string
	)
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		mu.Lock()
		defer mu.Unlock()
		stmt = append(stmt, tx.Statement.SQL.String())
	}))
	return New(db), func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), stmt...)
	}
}

func TestRequestValidate(t *testing.T) {
	require.Error(t, (*Request)(nil).Validate())
	require.Error(t, (&Request{}).Validate())
	require.Error(t, (&Request{DataItems: []*DataItem{{ID: "daily_gmv"}}}).Validate())
	require.Error(t, (&Request{
		DataItems: []*DataItem{{ID: StatisticTypeDailySpinCount}},
		Filters:   types.FilterSet{{Field: "coupon_code", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
	}).Validate())
	require.NoError(t, (&Request{DataItems: []*DataItem{{ID: StatisticTypeGrantStatusCount}}}).Validate())
}

func TestGetStatistic_AllItems(t *testing.T) {
	s, captured := dryRun(t)
	res, err := s.GetStatistic(context.Background(), &Request{
		Filters: types.FilterSet{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u1"}}},
		DataItems: []*DataItem{
			{ID: StatisticTypeDailySpinCount},
			{ID: StatisticTypeDailyWinCount},
			{ID: StatisticTypeGrantStatusCount},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.DataItems, 3)

	all := strings.Join(captured(), "\n")
	require.Contains(t, all, `FROM "spin_log"`)
	require.Contains(t, all, "reward_type != $")
	require.Contains(t, all, `FROM "user_reward"`)
	require.Contains(t, all, "GROUP BY")
}

func TestGetStatistic_ReturnsEveryItem(t *testing.T) {
	s, _ := dryRun(t)
	req := &Request{DataItems: []*DataItem{
		{ID: StatisticTypeDailySpinCount},
		{ID: StatisticTypeDailyWinCount},
		{ID: StatisticTypeGrantStatusCount},
	}}
	for i := 0; i < 500; i++ {
		res, err := s.GetStatistic(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, res.DataItems, 3, "call %d", i)
	}
}
