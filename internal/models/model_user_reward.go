package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/roulette/pkg/types"
)

// UserReward 用户获得的奖励
type UserReward struct {
	ID          string           `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID      string           `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_reward_user_created,priority:1" json:"user_id"`
	SpinLogID   string           `gorm:"column:spin_log_id;type:varchar(36);not null;index" json:"spin_log_id"`
	SectorID    uint64           `gorm:"column:sector_id;not null" json:"sector_id"`
	RewardType  types.RewardType `gorm:"column:reward_type;type:varchar(32);not null" json:"reward_type"`
	RewardName  string           `gorm:"column:reward_name;type:varchar(255);not null" json:"reward_name"`
	RewardValue string           `gorm:"column:reward_value;type:varchar(255);not null" json:"reward_value"`
	// CouponID/CouponCode 外部商城优惠券
	CouponID   string     `gorm:"column:coupon_id;type:varchar(64)" json:"coupon_id,omitempty"`
	CouponCode string     `gorm:"column:coupon_code;type:varchar(64)" json:"coupon_code,omitempty"`
	ExpiresAt  *time.Time `gorm:"column:expires_at;default:null" json:"expires_at"`
	// Status 展示时惰性刷新
	Status    types.UserRewardStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Meta      datatypes.JSONMap      `gorm:"column:meta" json:"meta"`
	CreatedAt time.Time              `gorm:"column:created_at;index:idx_user_reward_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (UserReward) TableName() string {
	return "user_reward"
}

// IsExpired reports whether the reward has an expiry before now.
func (r *UserReward) IsExpired(now time.Time) bool {
	return r != nil && r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}
