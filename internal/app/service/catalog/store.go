package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/tool"
	"github.com/fatflowers/roulette/pkg/types"
)

var (
	ErrSectorNotFound = errors.New("sector not found")
	ErrInvalidSector  = errors.New("invalid sector")
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// spinLogFilterFields are the columns admins may filter spin logs on.
var spinLogFilterFields = []string{"user_id", "sector_id", "reward_type", "source_ip", "created_at"}

// Store persists sectors, spin logs and grant records.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) ListActiveSectors(ctx context.Context) ([]*models.RewardSector, error) {
	var rows []*models.RewardSector
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active sectors: %w", err)
	}
	return rows, nil
}

func (s *Store) ListAllSectors(ctx context.Context) ([]*models.RewardSector, error) {
	var rows []*models.RewardSector
	if err := s.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	return rows, nil
}

func (s *Store) GetSector(ctx context.Context, id uint64) (*models.RewardSector, error) {
	var row models.RewardSector
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectorNotFound
		}
		return nil, fmt.Errorf("failed to get sector %d: %w", id, err)
	}
	return &row, nil
}

func (s *Store) AddSector(ctx context.Context, sector *models.RewardSector) error {
	if err := ValidateSector(sector); err != nil {
		return err
	}
	sector.ID = 0
	if err := s.db.WithContext(ctx).Create(sector).Error; err != nil {
		return fmt.Errorf("failed to create sector: %w", err)
	}
	return nil
}

func (s *Store) UpdateSector(ctx context.Context, sector *models.RewardSector) error {
	if err := ValidateSector(sector); err != nil {
		return err
	}
	if sector.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidSector)
	}
	res := s.db.WithContext(ctx).Model(&models.RewardSector{ID: sector.ID}).Select("*").Omit("id", "created_at").Updates(sector)
	if res.Error != nil {
		return fmt.Errorf("failed to update sector %d: %w", sector.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSectorNotFound
	}
	return nil
}

// DeleteSector removes the sector; its spin logs and grants stay for history.
func (s *Store) DeleteSector(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.RewardSector{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete sector %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSectorNotFound
	}
	return nil
}

// SeedDefaults installs the default catalog when the table is empty.
func (s *Store) SeedDefaults(ctx context.Context) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.RewardSector{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to count sectors: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.db.WithContext(ctx).Create(models.DefaultRewardSectors()).Error; err != nil {
		return false, fmt.Errorf("failed to seed sectors: %w", err)
	}
	s.log.Infow("seeded default reward sectors")
	return true, nil
}

func (s *Store) CountUserWins(ctx context.Context, userID string, sectorID uint64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.SpinLog{}).
		Where("user_id = ? AND sector_id = ?", userID, sectorID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count wins: %w", err)
	}
	return n, nil
}

func (s *Store) CreateSpinLog(ctx context.Context, entry *models.SpinLog) error {
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create spin log: %w", err)
	}
	return nil
}

type ScanSpinLogsRequest struct {
	Filters   types.FilterSet `json:"filters"`
	From      int             `json:"from"`
	Size      int             `json:"size"`
	SortBy    string          `json:"sort_by"`
	SortOrder string          `json:"sort_order"`
}

type ScanSpinLogsResponse struct {
	Items []*models.SpinLog `json:"items"`
	Total int64             `json:"total"`
}

// ScanSpinLogs is the admin listing with filters and paging.
func (s *Store) ScanSpinLogs(ctx context.Context, req *ScanSpinLogsRequest) (*ScanSpinLogsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Filters.Validate(spinLogFilterFields); err != nil {
		return nil, err
	}
	if req.SortBy != "" && !lo.Contains(spinLogFilterFields, req.SortBy) {
		return nil, fmt.Errorf("sort_by %q is not allowed", req.SortBy)
	}
	req.Size = clampLimit(req.Size)
	req.From = max(req.From, 0)

	tx := s.db.WithContext(ctx).Model(&models.SpinLog{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{req.Filters}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count spin logs: %w", err)
	}

	sortBy := lo.Ternary(req.SortBy == "", "created_at", req.SortBy)
	var rows []*models.SpinLog
	q := tx.Limit(req.Size).Offset(req.From).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list spin logs: %w", err)
	}
	return &ScanSpinLogsResponse{Items: rows, Total: total}, nil
}

func (s *Store) AddUserReward(ctx context.Context, r *models.UserReward) (string, error) {
	if r.ID == "" {
		r.ID = tool.GenerateUUIDV7()
	}
	if r.Status == "" {
		r.Status = types.UserRewardStatusActive
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return "", fmt.Errorf("failed to create user reward: %w", err)
	}
	return r.ID, nil
}

func (s *Store) ListUserRewards(ctx context.Context, userID string, limit int) ([]*models.UserReward, error) {
	var rows []*models.UserReward
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(clampLimit(limit)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user rewards: %w", err)
	}
	return rows, nil
}

func (s *Store) ListRecentRewards(ctx context.Context, limit int) ([]*models.UserReward, error) {
	var rows []*models.UserReward
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(clampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent rewards: %w", err)
	}
	return rows, nil
}

func (s *Store) UpdateUserRewardStatus(ctx context.Context, id string, status types.UserRewardStatus) error {
	err := s.db.WithContext(ctx).Model(&models.UserReward{}).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update user reward %s: %w", id, err)
	}
	return nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

// ValidateSector normalizes the type and rejects definitions the wheel cannot use.
func ValidateSector(s *models.RewardSector) error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSector)
	}
	s.Type = s.Type.Normalize()
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSector)
	case !s.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSector, s.Type)
	case s.Probability < 0:
		return fmt.Errorf("%w: probability must be >= 0", ErrInvalidSector)
	case s.MaxWinsPerUser < 0:
		return fmt.Errorf("%w: max_wins_per_user must be >= 0", ErrInvalidSector)
	case s.CouponDiscountType != "" && s.CouponDiscountType != types.CouponDiscountTypePercent && s.CouponDiscountType != types.CouponDiscountTypeFixedCart:
		return fmt.Errorf("%w: unknown coupon discount type %q", ErrInvalidSector, s.CouponDiscountType)
	}
	if s.CouponDiscountType == "" {
		s.CouponDiscountType = types.CouponDiscountTypePercent
	}
	return nil
}
