package birthday

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/metrics"
)

const (
	lookaheadDays = 365

	yearCacheMarker = "birthday:yearcache:"
	preparedMarker  = "birthday:prepared:"
	dispatchMarker  = "birthday:dispatch:"

	testUserName = "Test User"
)

type Profiles interface {
	ListBirthdays(ctx context.Context) ([]*models.BirthdayProfile, error)
	FindUserIDsByMonthDay(ctx context.Context, monthDays ...string) ([]string, error)
	FindUserIDsByQueueDate(ctx context.Context, date string) ([]string, error)
	GetProfiles(ctx context.Context, userIDs []string) ([]*models.BirthdayProfile, error)
	SetQueueDate(ctx context.Context, date string, userIDs ...string) error
	SetEligibleDate(ctx context.Context, userID, date string) error
	GetEmailSentDate(ctx context.Context, userID string) (string, error)
	SetEmailSentDate(ctx context.Context, userID, date string) error
}

type Calendar interface {
	ReplaceYearAhead(ctx context.Context, builtFor string, days []*models.BirthdayCalendarDay) error
	ListYearAhead(ctx context.Context) ([]*models.BirthdayCalendarDay, error)
	SaveTodayFound(ctx context.Context, snap *TodayFound) error
	GetTodayFound(ctx context.Context) (*TodayFound, error)
}

// TickReport summarises one scheduler pass.
type TickReport struct {
	Date          string `json:"date"`
	Disabled      bool   `json:"disabled"`
	Built         bool   `json:"built"`
	Staged        int    `json:"staged"`
	OutsideWindow bool   `json:"outside_window"`
	Recipients    int    `json:"recipients"`
	Dispatched    int    `json:"dispatched"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
}

type Scheduler struct {
	cfg      config.BirthdayConfig
	loc      *time.Location
	profiles Profiles
	calendar Calendar
	markers  kv.Store
	sender   notification.Sender
	email    notification.Sender
	metrics  *metrics.Business
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewScheduler wires the scheduler; sender delivers invitations on the
// configured channel and email is used for test sends.
func NewScheduler(cfg config.BirthdayConfig, profiles Profiles, calendar Calendar, markers kv.Store, sender, email notification.Sender, m *metrics.Business, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		loc:      cfg.Location(),
		profiles: profiles,
		calendar: calendar,
		markers:  markers,
		sender:   sender,
		email:    email,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (s *Scheduler) localNow() time.Time {
	return s.now().In(s.loc)
}

// Tick runs one idempotent pass. Every step is guarded by a per-day marker
// so overlapping or repeated ticks do not repeat work.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	now := s.localNow()
	report := &TickReport{Date: now.Format(dateLayout)}
	if !s.cfg.Enabled {
		report.Disabled = true
		return report, nil
	}
	start := time.Now()
	defer s.metrics.ObserveTick(start)

	var errs []error
	built, err := s.refreshYearAhead(ctx, now, false)
	if err != nil {
		errs = append(errs, err)
	}
	report.Built = built

	staged, err := s.stageTomorrow(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	report.Staged = staged

	if s.cfg.SendWindowEnabled {
		in, err := InWindow(now, s.cfg.SendWindowStart, s.cfg.SendWindowEnd)
		if err != nil {
			s.log.Warnw("invalid send window, treating as always open", "start", s.cfg.SendWindowStart, "end", s.cfg.SendWindowEnd, "err", err)
		}
		if !in {
			report.OutsideWindow = true
			s.logReport(report)
			return report, errors.Join(errs...)
		}
	}

	if err := s.dispatchToday(ctx, now, report); err != nil {
		errs = append(errs, err)
	}
	s.logReport(report)
	return report, errors.Join(errs...)
}

func (s *Scheduler) logReport(r *TickReport) {
	s.log.Infow("birthday_tick",
		"date", r.Date,
		"built", r.Built,
		"staged", r.Staged,
		"outside_window", r.OutsideWindow,
		"recipients", r.Recipients,
		"dispatched", r.Dispatched,
		"skipped", r.Skipped,
		"failed", r.Failed,
	)
}

// RefreshYearAhead rebuilds the lookahead cache. Without force it is a no-op
// once the cache has been built today.
func (s *Scheduler) RefreshYearAhead(ctx context.Context, force bool) (bool, error) {
	return s.refreshYearAhead(ctx, s.localNow(), force)
}

func (s *Scheduler) refreshYearAhead(ctx context.Context, now time.Time, force bool) (bool, error) {
	today := now.Format(dateLayout)
	key := yearCacheMarker + today
	if force {
		if err := s.markers.Set(ctx, key, today, markerTTL); err != nil {
			return false, fmt.Errorf("mark year ahead cache: %w", err)
		}
	} else {
		ok, err := s.markers.SetNX(ctx, key, today, markerTTL)
		if err != nil {
			return false, fmt.Errorf("mark year ahead cache: %w", err)
		}
		if !ok {
			return false, nil
		}
	}

	if err := s.buildYearAhead(ctx, now); err != nil {
		_ = s.markers.Del(ctx, key)
		return false, err
	}
	return true, nil
}

func (s *Scheduler) buildYearAhead(ctx context.Context, now time.Time) error {
	rows, err := s.profiles.ListBirthdays(ctx)
	if err != nil {
		return err
	}
	byKey := lo.GroupBy(rows, func(p *models.BirthdayProfile) string { return lo.FromPtr(p.MonthDay) })

	days := make([]*models.BirthdayCalendarDay, 0, len(byKey))
	for i := 0; i < lookaheadDays; i++ {
		day := now.AddDate(0, 0, i)
		var items []models.BirthdayCalendarEntry
		for _, k := range matchKeys(day) {
			for _, p := range byKey[k] {
				items = append(items, entryOf(p))
			}
		}
		if len(items) == 0 {
			continue
		}
		days = append(days, &models.BirthdayCalendarDay{
			Date:  day.Format(dateLayout),
			Items: datatypes.NewJSONType(items),
		})
	}
	return s.calendar.ReplaceYearAhead(ctx, now.Format(dateLayout), days)
}

func (s *Scheduler) stageTomorrow(ctx context.Context, now time.Time) (int, error) {
	tomorrow := now.AddDate(0, 0, 1)
	date := tomorrow.Format(dateLayout)
	key := preparedMarker + date
	ok, err := s.markers.SetNX(ctx, key, now.Format(dateLayout), markerTTL)
	if err != nil {
		return 0, fmt.Errorf("mark staging: %w", err)
	}
	if !ok {
		return 0, nil
	}

	ids, err := s.profiles.FindUserIDsByMonthDay(ctx, matchKeys(tomorrow)...)
	if err == nil {
		err = s.profiles.SetQueueDate(ctx, date, ids...)
	}
	if err != nil {
		_ = s.markers.Del(ctx, key)
		return 0, err
	}
	return len(ids), nil
}

func (s *Scheduler) dispatchToday(ctx context.Context, now time.Time, report *TickReport) error {
	today := now.Format(dateLayout)
	queued, err := s.profiles.FindUserIDsByQueueDate(ctx, today)
	if err != nil {
		return err
	}
	live, err := s.profiles.FindUserIDsByMonthDay(ctx, matchKeys(now)...)
	if err != nil {
		return err
	}
	recipients, err := s.profiles.GetProfiles(ctx, lo.Uniq(append(queued, live...)))
	if err != nil {
		return err
	}
	report.Recipients = len(recipients)

	for _, p := range recipients {
		switch s.dispatchOne(ctx, p, today) {
		case dispatchSent:
			report.Dispatched++
		case dispatchSkipped:
			report.Skipped++
		case dispatchFailed:
			report.Failed++
		}
	}

	snap := &TodayFound{
		Date:      today,
		UpdatedAt: s.now(),
		Items:     lo.Map(recipients, func(p *models.BirthdayProfile, _ int) models.BirthdayCalendarEntry { return entryOf(p) }),
	}
	if err := s.calendar.SaveTodayFound(ctx, snap); err != nil {
		s.log.Warnw("save today found snapshot failed", "err", err)
	}
	return nil
}

type dispatchOutcome int

const (
	dispatchSkipped dispatchOutcome = iota
	dispatchSent
	dispatchFailed
)

func (s *Scheduler) dispatchOne(ctx context.Context, p *models.BirthdayProfile, today string) dispatchOutcome {
	lg := s.log.With("user_id", p.UserID, "channel", s.sender.Channel())

	sent, err := s.profiles.GetEmailSentDate(ctx, p.UserID)
	if err != nil {
		lg.Warnw("read sent marker failed", "err", err)
		return dispatchFailed
	}
	if sent == today {
		return dispatchSkipped
	}

	key := dispatchMarker + today + ":" + p.UserID
	claimed, err := s.markers.SetNX(ctx, key, today, markerTTL)
	if err != nil {
		lg.Warnw("claim dispatch failed", "err", err)
		return dispatchFailed
	}
	if !claimed {
		return dispatchSkipped
	}

	if err := s.sender.Send(ctx, s.invitation(p, s.cfg.SiteURL)); err != nil {
		_ = s.markers.Del(ctx, key)
		lg.Warnw("birthday invitation failed", "err", err)
		s.metrics.ObserveDispatch(s.sender.Channel(), "failed")
		return dispatchFailed
	}
	s.metrics.ObserveDispatch(s.sender.Channel(), "sent")

	if err := s.profiles.SetEligibleDate(ctx, p.UserID, today); err != nil {
		// not marked sent, so a later tick grants the spin again
		_ = s.markers.Del(ctx, key)
		lg.Errorw("grant birthday spin failed", "err", err)
		return dispatchFailed
	}
	if err := s.profiles.SetEmailSentDate(ctx, p.UserID, today); err != nil {
		lg.Errorw("mark invitation sent failed", "err", err)
	}
	return dispatchSent
}

func (s *Scheduler) invitation(p *models.BirthdayProfile, siteURL string) notification.Message {
	vars := notification.Vars{UserName: lo.CoalesceOrEmpty(p.Name, p.Email), SiteURL: siteURL}
	return notification.Message{
		To:      p.Email,
		Phone:   p.Phone,
		Subject: notification.RenderText(s.cfg.EmailSubject, vars),
		HTML:    notification.RenderHTML(s.cfg.EmailContent, vars),
		Text:    notification.RenderText(s.cfg.SMSContent, vars),
	}
}

// SendTest mails the invitation template to email with a marked subject and
// a test link.
func (s *Scheduler) SendTest(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("missing email")
	}
	if s.email == nil {
		return notification.ErrNotConfigured
	}
	msg := s.invitation(&models.BirthdayProfile{Name: testUserName, Email: email}, testSiteURL(s.cfg.SiteURL))
	msg.Subject = "[TEST] " + msg.Subject
	return s.email.Send(ctx, msg)
}

func testSiteURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("wrr_test", "1")
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Scheduler) YearAhead(ctx context.Context) ([]*models.BirthdayCalendarDay, error) {
	return s.calendar.ListYearAhead(ctx)
}

func (s *Scheduler) TodayFound(ctx context.Context) (*TodayFound, error) {
	return s.calendar.GetTodayFound(ctx)
}

func entryOf(p *models.BirthdayProfile) models.BirthdayCalendarEntry {
	return models.BirthdayCalendarEntry{UserID: p.UserID, Name: p.Name, Email: p.Email}
}
