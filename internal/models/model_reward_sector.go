package models

import (
	"time"

	"github.com/fatflowers/roulette/pkg/types"
)

// RewardSector 转盘奖励扇区
type RewardSector struct {
	ID    uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name  string           `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Type  types.RewardType `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Value string           `gorm:"column:value;type:varchar(255);not null" json:"value"`
	// Probability 权重，不要求总和为100
	Probability int    `gorm:"column:probability;not null" json:"probability"`
	Color       string `gorm:"column:color;type:varchar(16);not null" json:"color"`
	TextColor   string `gorm:"column:text_color;type:varchar(16);not null" json:"text_color"`
	IsActive    bool   `gorm:"column:is_active;not null;index:idx_sector_active_sort,priority:1" json:"is_active"`
	SortOrder   int    `gorm:"column:sort_order;not null;index:idx_sector_active_sort,priority:2" json:"sort_order"`
	// MaxWinsPerUser 每个用户最多中奖次数，0 表示不限
	MaxWinsPerUser     int                      `gorm:"column:max_wins_per_user;not null" json:"max_wins_per_user"`
	CouponDiscountType types.CouponDiscountType `gorm:"column:coupon_discount_type;type:varchar(32);not null" json:"coupon_discount_type"`
	// CouponExpiryDays 0 时使用全局配置
	CouponExpiryDays int `gorm:"column:coupon_expiry_days;not null" json:"coupon_expiry_days"`
	// CouponUsageLimit 0 时按 1 次处理
	CouponUsageLimit int       `gorm:"column:coupon_usage_limit;not null" json:"coupon_usage_limit"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (RewardSector) TableName() string {
	return "reward_sector"
}

func (s *RewardSector) DiscountType() types.CouponDiscountType {
	if s == nil || s.CouponDiscountType == "" {
		return types.CouponDiscountTypePercent
	}
	return s.CouponDiscountType
}

func (s *RewardSector) UsageLimit() int {
	if s == nil || s.CouponUsageLimit <= 0 {
		return 1
	}
	return s.CouponUsageLimit
}

// ExpiryDays returns the sector override or fallback when none is set.
func (s *RewardSector) ExpiryDays(fallback int) int {
	if s == nil || s.CouponExpiryDays <= 0 {
		return fallback
	}
	return s.CouponExpiryDays
}

// DefaultRewardSectors is the catalog installed into an empty table.
func DefaultRewardSectors() []*RewardSector {
	return []*RewardSector{
		{Name: "10% Discount", Type: types.RewardTypeCoupon, Value: "10", Probability: 20, Color: "#FF6B6B", TextColor: "#FFFFFF", IsActive: true, SortOrder: 1},
		{Name: "Try again", Type: types.RewardTypeNoWin, Value: "0", Probability: 40, Color: "#4ECDC4", TextColor: "#FFFFFF", IsActive: true, SortOrder: 2},
		{Name: "Free Shipping", Type: types.RewardTypeFreeShipping, Value: "0", Probability: 15, Color: "#FFE66D", TextColor: "#333333", IsActive: true, SortOrder: 3},
		{Name: "5% Cashback", Type: types.RewardTypeCashback, Value: "5", Probability: 20, Color: "#1A535C", TextColor: "#FFFFFF", IsActive: true, SortOrder: 4},
		{Name: "Secret Gift", Type: types.RewardTypeProduct, Value: "0", Probability: 5, Color: "#FF9F1C", TextColor: "#FFFFFF", IsActive: true, SortOrder: 5},
	}
}
