package models

import (
	"time"

	"gorm.io/datatypes"
)

type BirthdayCalendarEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// BirthdayCalendarDay 未来365天生日缓存，只保存有生日的日期
type BirthdayCalendarDay struct {
	Date      string                                       `gorm:"column:date;primaryKey;type:varchar(10)" json:"date"`
	Items     datatypes.JSONType[[]BirthdayCalendarEntry] `gorm:"column:items" json:"items"`
	BuiltFor  string                                       `gorm:"column:built_for;type:varchar(10);not null" json:"built_for"`
	UpdatedAt time.Time                                    `json:"updated_at"`
}

func (BirthdayCalendarDay) TableName() string {
	return "birthday_calendar"
}
