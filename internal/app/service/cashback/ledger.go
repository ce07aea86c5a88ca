package cashback

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/tool"
)

var ErrInvalidAmount = errors.New("cashback amount must be positive")

// Ledger keeps one balance row per user plus an append-only transaction log.
type Ledger struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewLedger(db *gorm.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Credit adds amount to the user's balance and records the transaction in the
// same database transaction.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (*models.CashbackTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var out *models.CashbackTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CashbackBalance{UserID: userID, Balance: decimal.Zero}).Error; err != nil {
			return fmt.Errorf("init balance: %w", err)
		}
		var bal models.CashbackBalance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&bal).Error; err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		bal.Balance = bal.Balance.Add(amount)
		if err := tx.Model(&models.CashbackBalance{}).Where("user_id = ?", userID).Update("balance", bal.Balance).Error; err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		out = &models.CashbackTransaction{
			ID:           tool.GenerateUUIDV7(),
			UserID:       userID,
			Type:         models.CashbackTransactionCredit,
			Amount:       amount,
			BalanceAfter: bal.Balance,
			Description:  description,
		}
		if err := tx.Create(out).Error; err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit cashback for %s: %w", userID, err)
	}
	logctx.FromCtx(ctx, l.log).Infow("cashback credited", "user_id", userID, "amount", amount.String(), "balance", out.BalanceAfter.String())
	return out, nil
}

func (l *Ledger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var bal models.CashbackBalance
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return bal.Balance, nil
}

func (l *Ledger) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.CashbackTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var rows []*models.CashbackTransaction
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list cashback transactions: %w", err)
	}
	return rows, nil
}

var Module = fx.Options(
	fx.Provide(NewLedger),
)
