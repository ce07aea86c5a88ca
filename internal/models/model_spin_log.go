package models

import (
	"time"

	"github.com/fatflowers/roulette/pkg/types"
)

// SpinLog 抽奖记录，写入后不再修改
type SpinLog struct {
	ID       string `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID   string `gorm:"column:user_id;type:varchar(64);not null;index:idx_spin_log_user_sector,priority:1" json:"user_id"`
	SectorID uint64 `gorm:"column:sector_id;not null;index:idx_spin_log_user_sector,priority:2" json:"sector_id"`
	// RewardName/RewardType/RewardValue 中奖时扇区快照
	RewardName  string           `gorm:"column:reward_name;type:varchar(255);not null" json:"reward_name"`
	RewardType  types.RewardType `gorm:"column:reward_type;type:varchar(32);not null" json:"reward_type"`
	RewardValue string           `gorm:"column:reward_value;type:varchar(255);not null" json:"reward_value"`
	SourceIP    string           `gorm:"column:source_ip;type:varchar(64);not null" json:"source_ip"`
	CreatedAt   time.Time        `gorm:"column:created_at;index" json:"created_at"`
}

func (SpinLog) TableName() string {
	return "spin_log"
}
