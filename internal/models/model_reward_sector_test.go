package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/roulette/pkg/types"
)

func TestTableNames(t *testing.T) {
	require.Equal(t, "reward_sector", RewardSector{}.TableName())
	require.Equal(t, "spin_log", SpinLog{}.TableName())
	require.Equal(t, "user_reward", UserReward{}.TableName())
	require.Equal(t, "birthday_profile", BirthdayProfile{}.TableName())
	require.Equal(t, "birthday_calendar", BirthdayCalendarDay{}.TableName())
	require.Equal(t, "cashback_balance", CashbackBalance{}.TableName())
	require.Equal(t, "cashback_transaction", CashbackTransaction{}.TableName())
}

func TestRewardSector_CouponDefaults(t *testing.T) {
	var s RewardSector
	require.Equal(t, types.CouponDiscountTypePercent, s.DiscountType())
	require.Equal(t, 1, s.UsageLimit())
	require.Equal(t, 20, s.ExpiryDays(20))

	s = RewardSector{CouponDiscountType: types.CouponDiscountTypeFixedCart, CouponUsageLimit: 3, CouponExpiryDays: 7}
	require.Equal(t, types.CouponDiscountTypeFixedCart, s.DiscountType())
	require.Equal(t, 3, s.UsageLimit())
	require.Equal(t, 7, s.ExpiryDays(20))
}

func TestDefaultRewardSectors(t *testing.T) {
	sectors := DefaultRewardSectors()
	require.Len(t, sectors, 5)
	total := 0
	for _, s := range sectors {
		require.True(t, s.Type.Valid())
		require.True(t, s.IsActive)
		total += s.Probability
	}
	require.Equal(t, 100, total)
}

func TestUserReward_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.False(t, (&UserReward{}).IsExpired(now))
	require.True(t, (&UserReward{ExpiresAt: &past}).IsExpired(now))
	require.False(t, (&UserReward{ExpiresAt: &future}).IsExpired(now))
}
