package models

import (
	"time"
)

// BirthdayProfile 用户生日资料及当天的调度标记
type BirthdayProfile struct {
	UserID string `gorm:"column:user_id;primaryKey;type:varchar(64)" json:"user_id"`
	Name   string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Email  string `gorm:"column:email;type:varchar(255);not null" json:"email"`
	Phone  string `gorm:"column:phone;type:varchar(32);not null" json:"phone"`
	// BirthdayDate 用户填写的完整日期
	BirthdayDate *time.Time `gorm:"column:birthday_date;type:date;default:null" json:"birthday_date"`
	// MonthDay "MM-DD"，始终与 BirthdayDate 一致
	MonthDay *string `gorm:"column:month_day;type:varchar(5);default:null;index" json:"month_day"`
	// 以下日期均为 "YYYY-MM-DD"
	EligibleDate  *string   `gorm:"column:eligible_date;type:varchar(10);default:null" json:"eligible_date"`
	QueueDate     *string   `gorm:"column:queue_date;type:varchar(10);default:null;index" json:"queue_date"`
	EmailSentDate *string   `gorm:"column:email_sent_date;type:varchar(10);default:null" json:"email_sent_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (BirthdayProfile) TableName() string {
	return "birthday_profile"
}
