package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/types"
)

func TestValidateSector(t *testing.T) {
	cases := []struct {
		name    string
		sector  *models.RewardSector
		wantErr bool
	}{
		{name: "nil", sector: nil, wantErr: true},
		{name: "missing name", sector: &models.RewardSector{Type: types.RewardTypeCoupon}, wantErr: true},
		{name: "unknown type", sector: &models.RewardSector{Name: "x", Type: "jackpot"}, wantErr: true},
		{name: "negative weight", sector: &models.RewardSector{Name: "x", Type: types.RewardTypeNoWin, Probability: -1}, wantErr: true},
		{name: "negative cap", sector: &models.RewardSector{Name: "x", Type: types.RewardTypeNoWin, MaxWinsPerUser: -1}, wantErr: true},
		{name: "bad discount type", sector: &models.RewardSector{Name: "x", Type: types.RewardTypeCoupon, CouponDiscountType: "bogo"}, wantErr: true},
		{name: "ok", sector: &models.RewardSector{Name: "x", Type: types.RewardTypeCoupon, Probability: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSector(tc.sector)
			if tc.wantErr {
				require.True(t, errors.Is(err, ErrInvalidSector))
				return
			}
			require.NoError(t, err)
			require.Equal(t, types.CouponDiscountTypePercent, tc.sector.CouponDiscountType)
		})
	}
}

func TestValidateSector_NormalizesLegacyShipping(t *testing.T) {
	s := &models.RewardSector{Name: "Ship", Type: "shipping"}
	require.NoError(t, ValidateSector(s))
	require.Equal(t, types.RewardTypeFreeShipping, s.Type)
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, defaultListLimit, clampLimit(0))
	require.Equal(t, defaultListLimit, clampLimit(-3))
	require.Equal(t, 5, clampLimit(5))
	require.Equal(t, maxListLimit, clampLimit(10_000))
}

func dryRunStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStore(db, zap.NewNop().Sugar()), db
}

func TestScanSpinLogs_RejectsUnknownColumns(t *testing.T) {
	s, _ := dryRunStore(t)
	ctx := context.Background()

	_, err := s.ScanSpinLogs(ctx, &ScanSpinLogsRequest{Filters: types.FilterSet{{Field: "password", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}}})
	require.Error(t, err)

	_, err = s.ScanSpinLogs(ctx, &ScanSpinLogsRequest{SortBy: "id; drop table spin_log"})
	require.Error(t, err)

	_, err = s.ScanSpinLogs(ctx, nil)
	require.Error(t, err)
}

func TestScanSpinLogs_DryRun(t *testing.T) {
	s, _ := dryRunStore(t)
	res, err := s.ScanSpinLogs(context.Background(), &ScanSpinLogsRequest{
		Filters: types.FilterSet{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u1"}}},
		Size:    1000,
	})
	require.NoError(t, err)
	require.Empty(t, res.Items)
}
