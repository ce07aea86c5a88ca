package birthday

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/internal/platform/kv"
)

const (
	todayFoundKey = "birthday:today_found"
	markerTTL     = 48 * time.Hour
)

// TodayFound is the observability snapshot of the latest dispatch pass.
type TodayFound struct {
	Date      string                         `json:"date"`
	UpdatedAt time.Time                      `json:"updated_at"`
	Items     []models.BirthdayCalendarEntry `json:"items"`
}

// CalendarStore keeps the year-ahead rows in the database and the today
// snapshot in the key value store.
type CalendarStore struct {
	db *gorm.DB
	kv kv.Store
}

func NewCalendarStore(db *gorm.DB, store kv.Store) *CalendarStore {
	return &CalendarStore{db: db, kv: store}
}

// ReplaceYearAhead swaps the whole cache for days in one transaction.
func (c *CalendarStore) ReplaceYearAhead(ctx context.Context, builtFor string, days []*models.BirthdayCalendarDay) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.BirthdayCalendarDay{}).Error; err != nil {
			return fmt.Errorf("failed to clear year ahead cache: %w", err)
		}
		if len(days) == 0 {
			return nil
		}
		for _, d := range days {
			d.BuiltFor = builtFor
		}
		if err := tx.CreateInBatches(days, 100).Error; err != nil {
			return fmt.Errorf("failed to store year ahead cache: %w", err)
		}
		return nil
	})
}

func (c *CalendarStore) ListYearAhead(ctx context.Context) ([]*models.BirthdayCalendarDay, error) {
	var rows []*models.BirthdayCalendarDay
	if err := c.db.WithContext(ctx).Order("date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list year ahead cache: %w", err)
	}
	return rows, nil
}

func (c *CalendarStore) SaveTodayFound(ctx context.Context, snap *TodayFound) error {
	return kv.PutJSON(ctx, c.kv, todayFoundKey, snap, markerTTL)
}

// GetTodayFound returns nil when no tick has written a snapshot yet.
func (c *CalendarStore) GetTodayFound(ctx context.Context) (*TodayFound, error) {
	var snap TodayFound
	ok, err := kv.GetJSON(ctx, c.kv, todayFoundKey, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}
