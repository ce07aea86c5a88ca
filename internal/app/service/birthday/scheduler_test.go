package birthday

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/config"
)

type fakeProfiles struct {
	mu        sync.Mutex
	rows      map[string]*models.BirthdayProfile
	queueSets int
	// eligibleErr fails SetEligibleDate when set.
	eligibleErr error
}

func newFakeProfiles(rows ...*models.BirthdayProfile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]*models.BirthdayProfile{}}
	for _, r := range rows {
		f.rows[r.UserID] = r
	}
	return f
}

func profile(id, date string) *models.BirthdayProfile {
	d, _ := time.Parse(dateLayout, date)
	md := MonthDay(d)
	return &models.BirthdayProfile{UserID: id, Name: "User " + id, Email: id + "@example.com", Phone: "+1555" + id, BirthdayDate: &d, MonthDay: &md}
}

func (f *fakeProfiles) sorted() []*models.BirthdayProfile {
	out := lo.Values(f.rows)
	slices.SortFunc(out, func(a, b *models.BirthdayProfile) int { return strings.Compare(a.UserID, b.UserID) })
	return out
}

func (f *fakeProfiles) ListBirthdays(context.Context) ([]*models.BirthdayProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.sorted(), func(p *models.BirthdayProfile, _ int) bool { return p.MonthDay != nil }), nil
}

func (f *fakeProfiles) FindUserIDsByMonthDay(_ context.Context, keys ...string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, p := range f.sorted() {
		if p.MonthDay != nil && lo.Contains(keys, *p.MonthDay) {
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

func (f *fakeProfiles) FindUserIDsByQueueDate(_ context.Context, date string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, p := range f.sorted() {
		if lo.FromPtr(p.QueueDate) == date {
			ids = append(ids, p.UserID)
		}
	}
	return ids, nil
}

func (f *fakeProfiles) GetProfiles(_ context.Context, ids []string) ([]*models.BirthdayProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.sorted(), func(p *models.BirthdayProfile, _ int) bool { return lo.Contains(ids, p.UserID) }), nil
}

func (f *fakeProfiles) SetQueueDate(_ context.Context, date string, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	f.queueSets++
	for _, id := range ids {
		f.rows[id].QueueDate = lo.ToPtr(date)
	}
	return nil
}

func (f *fakeProfiles) SetEligibleDate(_ context.Context, id, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eligibleErr != nil {
		return f.eligibleErr
	}
	f.rows[id].EligibleDate = lo.ToPtr(date)
	return nil
}

func (f *fakeProfiles) GetEmailSentDate(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.FromPtr(f.rows[id].EmailSentDate), nil
}

func (f *fakeProfiles) SetEmailSentDate(_ context.Context, id, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].EmailSentDate = lo.ToPtr(date)
	return nil
}

type fakeCalendar struct {
	mu       sync.Mutex
	replaces int
	builtFor string
	days     []*models.BirthdayCalendarDay
	today    *TodayFound
}

func (f *fakeCalendar) ReplaceYearAhead(_ context.Context, builtFor string, days []*models.BirthdayCalendarDay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	f.builtFor, f.days = builtFor, days
	return nil
}

func (f *fakeCalendar) ListYearAhead(context.Context) ([]*models.BirthdayCalendarDay, error) {
	return f.days, nil
}

func (f *fakeCalendar) SaveTodayFound(_ context.Context, snap *TodayFound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.today = snap
	return nil
}

func (f *fakeCalendar) GetTodayFound(context.Context) (*TodayFound, error) { return f.today, nil }

type fakeSender struct {
	mu     sync.Mutex
	failTo map[string]bool
	sent   []notification.Message
}

func (f *fakeSender) Channel() string { return "email" }

func (f *fakeSender) Send(_ context.Context, msg notification.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[msg.To] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

var tickNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func testConfig() config.BirthdayConfig {
	return config.BirthdayConfig{
		Enabled:         true,
		Timezone:        "UTC",
		SendWindowStart: "09:00",
		SendWindowEnd:   "21:00",
		EmailSubject:    config.DefaultEmailSubject,
		EmailContent:    config.DefaultEmailContent,
		SMSContent:      config.DefaultSMSContent,
		SiteURL:         "https://shop.example.com/",
	}
}

func newTestScheduler(cfg config.BirthdayConfig, p *fakeProfiles, sender *fakeSender) (*Scheduler, *fakeCalendar, *kv.Memory) {
	cal := &fakeCalendar{}
	markers := kv.NewMemory()
	s := NewScheduler(cfg, p, cal, markers, sender, sender, nil, zap.NewNop().Sugar())
	s.now = func() time.Time { return tickNow }
	return s, cal, markers
}

func TestTick_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	sender := &fakeSender{}
	s, cal, _ := newTestScheduler(cfg, newFakeProfiles(profile("1", "1990-04-10")), sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, r.Disabled)
	require.Zero(t, cal.replaces)
	require.Empty(t, sender.sent)
}

func TestTick_DispatchesOncePerDay(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"), profile("2", "1985-07-01"))
	sender := &fakeSender{}
	s, cal, _ := newTestScheduler(testConfig(), p, sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, r.Built)
	require.Equal(t, 1, r.Dispatched)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "1@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].HTML, "User 1")
	require.Contains(t, sender.sent[0].HTML, "https://shop.example.com/")
	require.Equal(t, "2026-04-10", lo.FromPtr(p.rows["1"].EligibleDate))
	require.Equal(t, "2026-04-10", lo.FromPtr(p.rows["1"].EmailSentDate))
	require.NotNil(t, cal.today)
	require.Len(t, cal.today.Items, 1)

	r, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, r.Built)
	require.Zero(t, r.Dispatched)
	require.Equal(t, 1, r.Skipped)
	require.Len(t, sender.sent, 1)
	require.Equal(t, 1, cal.replaces)
}

func TestTick_SentMarkerSkipsWithoutClaim(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"))
	p.rows["1"].EmailSentDate = lo.ToPtr("2026-04-10")
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(testConfig(), p, sender)

	for i := 0; i < 2; i++ {
		r, err := s.Tick(context.Background())
		require.NoError(t, err)
		require.Zero(t, r.Dispatched)
	}
	require.Empty(t, sender.sent)
}

func TestTick_StagesTomorrowOnce(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-11"), profile("2", "2001-04-11"))
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(testConfig(), p, sender)

	for i := 0; i < 100; i++ {
		_, err := s.Tick(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 1, p.queueSets)
	require.Equal(t, "2026-04-11", lo.FromPtr(p.rows["1"].QueueDate))
	require.Equal(t, "2026-04-11", lo.FromPtr(p.rows["2"].QueueDate))
	require.Empty(t, sender.sent)
}

func TestTick_QueuedRecipientIsDispatched(t *testing.T) {
	// birthday moved after staging; the queue still delivers today
	p := newFakeProfiles(profile("1", "1990-05-01"))
	p.rows["1"].QueueDate = lo.ToPtr("2026-04-10")
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(testConfig(), p, sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Recipients)
	require.Len(t, sender.sent, 1)
}

func TestTick_OutsideWindow(t *testing.T) {
	cfg := testConfig()
	cfg.SendWindowEnabled = true
	cfg.SendWindowStart, cfg.SendWindowEnd = "18:00", "21:00"
	p := newFakeProfiles(profile("1", "1990-04-10"), profile("2", "1990-04-11"))
	sender := &fakeSender{}
	s, cal, _ := newTestScheduler(cfg, p, sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, r.OutsideWindow)
	require.True(t, r.Built)
	require.Equal(t, 1, r.Staged)
	require.Empty(t, sender.sent)
	require.Nil(t, cal.today)
}

func TestTick_MalformedWindowIsOpen(t *testing.T) {
	cfg := testConfig()
	cfg.SendWindowEnabled = true
	cfg.SendWindowStart = "noon"
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(cfg, newFakeProfiles(profile("1", "1990-04-10")), sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, r.OutsideWindow)
	require.Len(t, sender.sent, 1)
}

func TestTick_FailureIsIsolatedAndRetried(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"), profile("2", "1992-04-10"))
	sender := &fakeSender{failTo: map[string]bool{"1@example.com": true}}
	s, _, markers := newTestScheduler(testConfig(), p, sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Failed)
	require.Equal(t, 1, r.Dispatched)
	require.Nil(t, p.rows["1"].EmailSentDate)
	require.Nil(t, p.rows["1"].EligibleDate)
	_, held, err := markers.Get(context.Background(), dispatchMarker+"2026-04-10:1")
	require.NoError(t, err)
	require.False(t, held)

	sender.failTo = nil
	r, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Dispatched)
	require.Equal(t, 1, r.Skipped)
	require.Equal(t, "2026-04-10", lo.FromPtr(p.rows["1"].EmailSentDate))
}

func TestTick_EligibilityFailureIsRetried(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"))
	p.eligibleErr = errors.New("db down")
	sender := &fakeSender{}
	s, _, markers := newTestScheduler(testConfig(), p, sender)

	r, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Failed)
	require.Zero(t, r.Dispatched)
	require.Nil(t, p.rows["1"].EmailSentDate)
	_, held, err := markers.Get(context.Background(), dispatchMarker+"2026-04-10:1")
	require.NoError(t, err)
	require.False(t, held)

	p.eligibleErr = nil
	r, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Dispatched)
	require.Equal(t, "2026-04-10", lo.FromPtr(p.rows["1"].EligibleDate))
	require.Equal(t, "2026-04-10", lo.FromPtr(p.rows["1"].EmailSentDate))
}

func TestTick_ConcurrentTicksDispatchOnce(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"))
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(testConfig(), p, sender)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Tick(context.Background())
		}()
	}
	wg.Wait()
	require.Len(t, sender.sent, 1)
}

func TestRefreshYearAhead(t *testing.T) {
	p := newFakeProfiles(profile("1", "1990-04-10"), profile("2", "1996-02-29"), profile("3", "1980-04-09"))
	s, cal, _ := newTestScheduler(testConfig(), p, &fakeSender{})

	built, err := s.RefreshYearAhead(context.Background(), false)
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, "2026-04-10", cal.builtFor)

	dates := lo.Map(cal.days, func(d *models.BirthdayCalendarDay, _ int) string { return d.Date })
	// 2027 is not a leap year, so the 02-29 birthday lands on 02-28
	require.Equal(t, []string{"2026-04-10", "2027-02-28", "2027-04-09"}, dates)
	require.Equal(t, "2", cal.days[1].Items.Data()[0].UserID)

	built, err = s.RefreshYearAhead(context.Background(), false)
	require.NoError(t, err)
	require.False(t, built)

	built, err = s.RefreshYearAhead(context.Background(), true)
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, 2, cal.replaces)
}

func TestSendTest(t *testing.T) {
	sender := &fakeSender{}
	s, _, _ := newTestScheduler(testConfig(), newFakeProfiles(), sender)

	require.Error(t, s.SendTest(context.Background(), ""))
	require.NoError(t, s.SendTest(context.Background(), "admin@example.com"))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "admin@example.com", msg.To)
	require.True(t, strings.HasPrefix(msg.Subject, "[TEST] "))
	require.Contains(t, msg.HTML, "Test User")
	require.Contains(t, msg.HTML, "wrr_test=1")
}
