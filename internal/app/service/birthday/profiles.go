package birthday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/roulette/internal/models"
)

var ErrProfileNotFound = errors.New("birthday profile not found")

// Contact is the snapshot used to address invitations.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// ProfileStore keeps birthday profiles and the per-day markers on them.
type ProfileStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewProfileStore(db *gorm.DB, log *zap.SugaredLogger) *ProfileStore {
	return &ProfileStore{db: db, log: log}
}

// SetBirthday upserts the profile. month_day always follows date; a nil date
// clears both. Empty contact fields leave stored values untouched.
func (s *ProfileStore) SetBirthday(ctx context.Context, userID string, date *time.Time, contact Contact) error {
	if userID == "" {
		return errors.New("missing user id")
	}
	p := &models.BirthdayProfile{
		UserID: userID,
		Name:   contact.Name,
		Email:  contact.Email,
		Phone:  contact.Phone,
	}
	if date != nil {
		d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		md := MonthDay(d)
		p.BirthdayDate, p.MonthDay = &d, &md
	}

	cols := []string{"birthday_date", "month_day", "updated_at"}
	if contact.Name != "" {
		cols = append(cols, "name")
	}
	if contact.Email != "" {
		cols = append(cols, "email")
	}
	if contact.Phone != "" {
		cols = append(cols, "phone")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to save birthday: %w", err)
	}
	return nil
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*models.BirthdayProfile, error) {
	var p models.BirthdayProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get birthday profile: %w", err)
	}
	return &p, nil
}

// ListBirthdays returns every profile with a birthday set.
func (s *ProfileStore) ListBirthdays(ctx context.Context) ([]*models.BirthdayProfile, error) {
	var rows []*models.BirthdayProfile
	err := s.db.WithContext(ctx).Where("month_day IS NOT NULL").Order("user_id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list birthdays: %w", err)
	}
	return rows, nil
}

func (s *ProfileStore) FindUserIDsByMonthDay(ctx context.Context, monthDays ...string) ([]string, error) {
	if len(monthDays) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.BirthdayProfile{}).
		Where("month_day IN ?", monthDays).Order("user_id").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find users by month day: %w", err)
	}
	return ids, nil
}

func (s *ProfileStore) FindUserIDsByQueueDate(ctx context.Context, date string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.BirthdayProfile{}).
		Where("queue_date = ?", date).Order("user_id").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find users by queue date: %w", err)
	}
	return ids, nil
}

func (s *ProfileStore) GetProfiles(ctx context.Context, userIDs []string) ([]*models.BirthdayProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []*models.BirthdayProfile
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("user_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get birthday profiles: %w", err)
	}
	return rows, nil
}

func (s *ProfileStore) SetQueueDate(ctx context.Context, date string, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&models.BirthdayProfile{}).
		Where("user_id IN ?", userIDs).Update("queue_date", date).Error
	if err != nil {
		return fmt.Errorf("failed to set queue date: %w", err)
	}
	return nil
}

func (s *ProfileStore) setMarker(ctx context.Context, userID, column string, value any) error {
	err := s.db.WithContext(ctx).Model(&models.BirthdayProfile{}).
		Where("user_id = ?", userID).Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

func (s *ProfileStore) getMarker(ctx context.Context, userID, column string) (string, error) {
	var vals []*string
	err := s.db.WithContext(ctx).Model(&models.BirthdayProfile{}).
		Where("user_id = ?", userID).Limit(1).Pluck(column, &vals).Error
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", column, err)
	}
	if len(vals) == 0 {
		return "", nil
	}
	return lo.FromPtr(vals[0]), nil
}

func (s *ProfileStore) SetEligibleDate(ctx context.Context, userID, date string) error {
	return s.setMarker(ctx, userID, "eligible_date", date)
}

func (s *ProfileStore) ClearEligibleDate(ctx context.Context, userID string) error {
	return s.setMarker(ctx, userID, "eligible_date", gorm.Expr("NULL"))
}

// GetEligibleDate returns "" when unset or when the user has no profile.
func (s *ProfileStore) GetEligibleDate(ctx context.Context, userID string) (string, error) {
	return s.getMarker(ctx, userID, "eligible_date")
}

func (s *ProfileStore) GetEmailSentDate(ctx context.Context, userID string) (string, error) {
	return s.getMarker(ctx, userID, "email_sent_date")
}

func (s *ProfileStore) SetEmailSentDate(ctx context.Context, userID, date string) error {
	return s.setMarker(ctx, userID, "email_sent_date", date)
}
