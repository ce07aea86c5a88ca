package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashbackBalance 用户返现余额
type CashbackBalance struct {
	UserID    string          `gorm:"column:user_id;primaryKey;type:varchar(64)" json:"user_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (CashbackBalance) TableName() string {
	return "cashback_balance"
}

type CashbackTransactionType string

const (
	CashbackTransactionCredit CashbackTransactionType = "credit"
	CashbackTransactionDebit  CashbackTransactionType = "debit"
)

// CashbackTransaction 返现流水
type CashbackTransaction struct {
	ID           string                  `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	UserID       string                  `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	OrderID      string                  `gorm:"column:order_id;type:varchar(64);not null" json:"order_id"`
	Type         CashbackTransactionType `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Amount       decimal.Decimal         `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal         `gorm:"column:balance_after;type:decimal(20,2);not null" json:"balance_after"`
	Description  string                  `gorm:"column:description;type:varchar(255);not null" json:"description"`
	CreatedAt    time.Time               `json:"created_at"`
}

func (CashbackTransaction) TableName() string {
	return "cashback_transaction"
}
