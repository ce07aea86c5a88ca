package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/eligibility"
	"github.com/fatflowers/roulette/internal/app/service/reward"
	"github.com/fatflowers/roulette/internal/app/service/selector"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/internal/platform/commerce"
	"github.com/fatflowers/roulette/internal/platform/kv"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/metrics"
	"github.com/fatflowers/roulette/pkg/types"
)

var (
	ErrUnauthorized        = errors.New("please login to spin")
	ErrNotEligible         = errors.New("not eligible")
	ErrNoRewardsConfigured = errors.New("no rewards available")
	ErrAllRewardsExhausted = errors.New("all rewards exhausted")
	ErrSpinInProgress      = errors.New("spin already in progress")
)

const (
	dateLayout  = "2006-01-02"
	lockTTL     = 30 * time.Second
	lockPrefix  = "wheel:spin:lock:"
	rewardsPage = 20
)

type Catalog interface {
	ListActiveSectors(ctx context.Context) ([]*models.RewardSector, error)
	CountUserWins(ctx context.Context, userID string, sectorID uint64) (int64, error)
	CreateSpinLog(ctx context.Context, entry *models.SpinLog) error
	AddUserReward(ctx context.Context, r *models.UserReward) (string, error)
	ListUserRewards(ctx context.Context, userID string, limit int) ([]*models.UserReward, error)
	UpdateUserRewardStatus(ctx context.Context, id string, status types.UserRewardStatus) error
}

type Applier interface {
	Apply(ctx context.Context, sector *models.RewardSector, user reward.User) reward.Grant
}

type UserDirectory interface {
	GetCustomer(ctx context.Context, userID string) (*commerce.Customer, error)
}

type PurchaseHistory interface {
	GetLifetimeSpend(ctx context.Context, userID string) (decimal.Decimal, error)
	GetOrderCount(ctx context.Context, userID string) (int, error)
}

type CouponUsage interface {
	GetCouponUsage(ctx context.Context, couponID string) (commerce.CouponUsage, error)
}

// BirthdayMarkers is the part of the birthday profile store a spin touches.
type BirthdayMarkers interface {
	GetEligibleDate(ctx context.Context, userID string) (string, error)
	ClearEligibleDate(ctx context.Context, userID string) error
}

// Request is one authenticated spin. Roles, Name and Email come from the
// token and are used when no user directory answers.
type Request struct {
	UserID string
	IP     string
	Roles  []string
	Name   string
	Email  string
}

type RewardSnapshot struct {
	Type       types.RewardType `json:"type"`
	Name       string           `json:"name"`
	Value      string           `json:"value"`
	CouponCode string           `json:"coupon_code,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	Delivered  bool             `json:"delivered"`
}

type Result struct {
	SectorID     uint64          `json:"sector_id"`
	Message      string          `json:"message"`
	Reward       *RewardSnapshot `json:"reward"`
	SpinLogID    string          `json:"spin_log_id"`
	BirthdaySpin bool            `json:"birthday_spin"`
}

type Status struct {
	Today            string `json:"today"`
	Eligible         bool   `json:"eligible"`
	BirthdayEligible bool   `json:"birthday_eligible"`
	Reason           string `json:"reason"`
}

type Deps struct {
	Catalog   Catalog
	Applier   Applier
	Directory UserDirectory
	History   PurchaseHistory
	Coupons   CouponUsage
	Birthdays BirthdayMarkers
	Locks     kv.Store
	Metrics   *metrics.Business
	Rand      selector.Rand
	Log       *zap.SugaredLogger
}

type Options struct {
	Rules          eligibility.Rules
	SerializeSpins bool
	Location       *time.Location
}

type Service struct {
	Deps
	opts Options
	now  func() time.Time
}

func NewService(deps Deps, opts Options) *Service {
	if deps.Rand == nil {
		deps.Rand = selector.Default()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{Deps: deps, opts: opts, now: time.Now}
}

func (s *Service) today() string {
	return s.now().In(s.opts.Location).Format(dateLayout)
}

// Spin runs one request end to end: eligibility, cap filtering, selection,
// grant, log and birthday bookkeeping.
func (s *Service) Spin(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == "" {
		s.Metrics.ObserveSpin("unauthorized", "")
		return nil, ErrUnauthorized
	}
	lg := logctx.FromCtx(ctx, s.Log).With("user_id", req.UserID)

	if s.opts.SerializeSpins && s.Locks != nil {
		unlock, err := kv.TryLock(ctx, s.Locks, lockPrefix+req.UserID, lockTTL)
		switch {
		case errors.Is(err, kv.ErrLockHeld):
			s.Metrics.ObserveSpin("in_progress", "")
			return nil, ErrSpinInProgress
		case err != nil:
			lg.Warnw("spin lock unavailable, continuing unserialized", "err", err)
		default:
			defer unlock(context.WithoutCancel(ctx))
		}
	}

	user, subject := s.buildSubject(ctx, lg, req)
	decision := eligibility.Evaluate(subject, s.opts.Rules)
	if !decision.Allowed {
		lg.Infow("spin rejected", "reason", decision.Reason)
		s.Metrics.ObserveSpin("not_eligible", "")
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, decision.Reason)
	}

	candidates, err := s.candidates(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNoRewardsConfigured) || errors.Is(err, ErrAllRewardsExhausted) {
			s.Metrics.ObserveSpin(resultLabel(err), "")
		}
		return nil, err
	}

	entries := lo.Map(candidates, func(sec *models.RewardSector, _ int) selector.Entry {
		return selector.Entry{ID: sec.ID, Weight: sec.Probability}
	})
	winnerID, err := selector.Pick(entries, s.Rand)
	if err != nil {
		s.Metrics.ObserveSpin("exhausted", "")
		return nil, ErrAllRewardsExhausted
	}
	sector, _ := lo.Find(candidates, func(sec *models.RewardSector) bool { return sec.ID == winnerID })

	grant := s.Applier.Apply(ctx, sector, user)

	entry := &models.SpinLog{
		UserID:      req.UserID,
		SectorID:    sector.ID,
		RewardName:  sector.Name,
		RewardType:  sector.Type.Normalize(),
		RewardValue: sector.Value,
		SourceIP:    req.IP,
	}
	if err := s.Catalog.CreateSpinLog(ctx, entry); err != nil {
		lg.Errorw("spin log write failed", "sector_id", sector.ID, "err", err)
		return nil, err
	}

	if grant.Record != nil {
		grant.Record.SpinLogID = entry.ID
		if _, err := s.Catalog.AddUserReward(ctx, grant.Record); err != nil {
			lg.Errorw("grant record write failed", "spin_log_id", entry.ID, "err", err)
		}
	}

	if decision.BirthdayOverride && s.Birthdays != nil {
		if err := s.Birthdays.ClearEligibleDate(ctx, req.UserID); err != nil {
			lg.Warnw("clear birthday eligibility failed", "err", err)
		}
	}

	result := "win"
	switch {
	case !grant.Delivered:
		result = "failed"
	case !sector.Type.IsWin():
		result = "no_win"
	}
	s.Metrics.ObserveSpin(result, string(entry.RewardType))
	lg.Infow("spin resolved", "sector_id", sector.ID, "reward_type", entry.RewardType, "result", result, "birthday", decision.BirthdayOverride)

	res := &Result{
		SectorID:     sector.ID,
		Message:      grant.Message,
		SpinLogID:    entry.ID,
		BirthdaySpin: decision.BirthdayOverride,
		Reward: &RewardSnapshot{
			Type:      entry.RewardType,
			Name:      sector.Name,
			Value:     sector.Value,
			Delivered: grant.Delivered,
		},
	}
	if grant.Record != nil {
		res.Reward.CouponCode = grant.Record.CouponCode
		res.Reward.ExpiresAt = grant.Record.ExpiresAt
	}
	return res, nil
}

// candidates returns active, weighted sectors the user has not capped out on.
func (s *Service) candidates(ctx context.Context, userID string) ([]*models.RewardSector, error) {
	active, err := s.Catalog.ListActiveSectors(ctx)
	if err != nil {
		return nil, err
	}
	active = lo.Filter(active, func(sec *models.RewardSector, _ int) bool { return sec.Probability > 0 })
	if len(active) == 0 {
		return nil, ErrNoRewardsConfigured
	}

	out := make([]*models.RewardSector, 0, len(active))
	for _, sec := range active {
		if sec.MaxWinsPerUser > 0 {
			wins, err := s.Catalog.CountUserWins(ctx, userID, sec.ID)
			if err != nil {
				return nil, err
			}
			if wins >= int64(sec.MaxWinsPerUser) {
				continue
			}
		}
		out = append(out, sec)
	}
	if len(out) == 0 {
		return nil, ErrAllRewardsExhausted
	}
	return out, nil
}

func (s *Service) buildSubject(ctx context.Context, lg *zap.SugaredLogger, req Request) (reward.User, eligibility.Subject) {
	user := reward.User{ID: req.UserID, Name: req.Name, Email: req.Email}
	subject := eligibility.Subject{Today: s.today(), Roles: req.Roles}

	if s.Birthdays != nil {
		d, err := s.Birthdays.GetEligibleDate(ctx, req.UserID)
		if err != nil {
			lg.Warnw("read birthday eligibility failed", "err", err)
		}
		subject.EligibleDate = d
	}

	if s.Directory != nil {
		cust, err := s.Directory.GetCustomer(ctx, req.UserID)
		if err != nil {
			if !errors.Is(err, commerce.ErrNotConfigured) {
				lg.Warnw("customer lookup failed", "err", err)
			}
		} else if cust != nil {
			user.Name = lo.CoalesceOrEmpty(cust.Name, user.Name)
			user.Email = lo.CoalesceOrEmpty(cust.Email, user.Email)
			if len(cust.Roles) > 0 {
				subject.Roles = cust.Roles
			}
		}
	}

	if subject.EligibleDate == subject.Today || !s.needsPurchaseData() {
		return user, subject
	}
	spend, err := s.History.GetLifetimeSpend(ctx, req.UserID)
	if err != nil {
		s.logHistoryErr(lg, err)
		return user, subject
	}
	orders, err := s.History.GetOrderCount(ctx, req.UserID)
	if err != nil {
		s.logHistoryErr(lg, err)
		return user, subject
	}
	subject.LifetimeSpend, subject.OrderCount, subject.HasPurchaseData = spend, orders, true
	return user, subject
}

func (s *Service) needsPurchaseData() bool {
	r := s.opts.Rules
	return s.History != nil && (r.MinSpent.IsPositive() || r.MinOrders > 0 || r.Rule != nil)
}

func (s *Service) logHistoryErr(lg *zap.SugaredLogger, err error) {
	if !errors.Is(err, commerce.ErrNotConfigured) {
		lg.Warnw("purchase history lookup failed", "err", err)
	}
}

// Status reports whether the user could spin right now.
func (s *Service) Status(ctx context.Context, req Request) (*Status, error) {
	if req.UserID == "" {
		return nil, ErrUnauthorized
	}
	lg := logctx.FromCtx(ctx, s.Log).With("user_id", req.UserID)
	_, subject := s.buildSubject(ctx, lg, req)
	d := eligibility.Evaluate(subject, s.opts.Rules)
	return &Status{Today: subject.Today, Eligible: d.Allowed, BirthdayEligible: d.BirthdayOverride, Reason: d.Reason}, nil
}

// ListUserRewards returns the user's grants, refreshing active ones: a coupon
// used up to its limit becomes used, a past expiry becomes expired.
func (s *Service) ListUserRewards(ctx context.Context, userID string, limit int) ([]*models.UserReward, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if limit <= 0 {
		limit = rewardsPage
	}
	rows, err := s.Catalog.ListUserRewards(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.Log).With("user_id", userID)
	now := s.now()
	for _, r := range rows {
		if r.Status != types.UserRewardStatusActive {
			continue
		}
		next := s.refreshStatus(ctx, lg, r, now)
		if next == r.Status {
			continue
		}
		if err := s.Catalog.UpdateUserRewardStatus(ctx, r.ID, next); err != nil {
			lg.Warnw("persist reward status failed", "reward_id", r.ID, "err", err)
		}
		r.Status = next
	}
	return rows, nil
}

func (s *Service) refreshStatus(ctx context.Context, lg *zap.SugaredLogger, r *models.UserReward, now time.Time) types.UserRewardStatus {
	if r.CouponID != "" && s.Coupons != nil {
		usage, err := s.Coupons.GetCouponUsage(ctx, r.CouponID)
		switch {
		case err == nil && usage.Exhausted():
			return types.UserRewardStatusUsed
		case err != nil && !errors.Is(err, commerce.ErrNotConfigured) && !errors.Is(err, commerce.ErrNotFound):
			lg.Warnw("coupon usage lookup failed", "coupon_id", r.CouponID, "err", err)
		}
	}
	if r.IsExpired(now) {
		return types.UserRewardStatusExpired
	}
	return r.Status
}

func resultLabel(err error) string {
	if errors.Is(err, ErrNoRewardsConfigured) {
		return "no_rewards"
	}
	return "exhausted"
}
