package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/roulette/internal/app/service/notification"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/internal/platform/commerce"
	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/tool"
	"github.com/fatflowers/roulette/pkg/types"
)

const (
	MessageNoWin    = "Better luck next time!"
	MessageDegraded = "We could not issue your reward right now. Please contact support."

	cashbackDescription = "Won in Reward Roulette"
	winEmailSubject     = "Congratulations! You won a prize"
)

var (
	errInvalidValue = errors.New("invalid reward value")
	// coupons are restricted to the winner's email; without one the code would be open
	errNoRestriction = errors.New("user has no email to restrict the coupon to")
)

type CouponProvider interface {
	CreateRestrictedCoupon(ctx context.Context, req commerce.RestrictedCouponRequest) (string, error)
	CreateFreeShippingCoupon(ctx context.Context, req commerce.FreeShippingCouponRequest) (string, error)
}

type CashbackLedger interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description string) (*models.CashbackTransaction, error)
}

type User struct {
	ID    string
	Name  string
	Email string
}

// Grant is the outcome of applying a sector. Record is nil for no_win and is
// returned unsaved.
type Grant struct {
	Message   string
	Delivered bool
	Record    *models.UserReward
}

type Options struct {
	CodePrefix         string
	ShippingCodePrefix string
	CodeLength         int
	ExpiryDays         int
}

func OptionsFromConfig(cfg config.CouponConfig) Options {
	return Options{
		CodePrefix:         cfg.CodePrefix,
		ShippingCodePrefix: cfg.ShippingCodePrefix,
		CodeLength:         cfg.CodeLength,
		ExpiryDays:         cfg.ExpiryDays,
	}
}

type Applier struct {
	coupons CouponProvider
	ledger  CashbackLedger
	mailer  notification.Sender
	opts    Options
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewApplier(coupons CouponProvider, ledger CashbackLedger, mailer notification.Sender, opts Options, log *zap.SugaredLogger) *Applier {
	if opts.ExpiryDays <= 0 {
		opts.ExpiryDays = 20
	}
	return &Applier{coupons: coupons, ledger: ledger, mailer: mailer, opts: opts, now: time.Now, log: log}
}

// Apply turns a winning sector into a grant. Provider failures never produce
// a success message; the record is marked failed instead.
func (a *Applier) Apply(ctx context.Context, sector *models.RewardSector, user User) Grant {
	lg := logctx.FromCtx(ctx, a.log).With("user_id", user.ID, "sector_id", sector.ID)

	rt := sector.Type.Normalize()
	if rt == types.RewardTypeNoWin {
		return Grant{Message: MessageNoWin, Delivered: true}
	}

	rec := &models.UserReward{
		ID:          tool.GenerateUUIDV7(),
		UserID:      user.ID,
		SectorID:    sector.ID,
		RewardType:  rt,
		RewardName:  sector.Name,
		RewardValue: sector.Value,
		Status:      types.UserRewardStatusActive,
		Meta:        datatypes.JSONMap{},
	}

	var (
		msg string
		err error
	)
	switch rt {
	case types.RewardTypeCoupon:
		msg, err = a.applyCoupon(ctx, sector, user, rec)
	case types.RewardTypeFreeShipping:
		msg, err = a.applyFreeShipping(ctx, sector, user, rec)
	case types.RewardTypeCashback:
		msg, err = a.applyCashback(ctx, sector, user, rec)
	case types.RewardTypeProduct:
		rec.Meta["product_id"] = sector.Value
		msg = fmt.Sprintf("You won %s", sector.Name)
	default:
		err = fmt.Errorf("unsupported reward type %q", sector.Type)
	}

	if err != nil {
		lg.Errorw("reward issuance failed", "reward_type", rt, "err", err)
		rec.Status = types.UserRewardStatusFailed
		rec.Meta["error"] = err.Error()
		return Grant{Message: MessageDegraded, Delivered: false, Record: rec}
	}

	if rec.CouponCode != "" {
		a.sendWinEmail(ctx, lg, user, msg)
	}
	return Grant{Message: msg, Delivered: true, Record: rec}
}

func (a *Applier) expiry(sector *models.RewardSector) time.Time {
	return a.now().AddDate(0, 0, sector.ExpiryDays(a.opts.ExpiryDays))
}

func (a *Applier) applyCoupon(ctx context.Context, sector *models.RewardSector, user User, rec *models.UserReward) (string, error) {
	amount, err := decimal.NewFromString(sector.Value)
	if err != nil || !amount.IsPositive() {
		return "", fmt.Errorf("%w %q for coupon", errInvalidValue, sector.Value)
	}
	if a.coupons == nil {
		return "", commerce.ErrNotConfigured
	}
	if user.Email == "" {
		return "", errNoRestriction
	}
	code := tool.GenerateCouponCode(a.opts.CodePrefix, a.opts.CodeLength)
	expires := a.expiry(sector)
	id, err := a.coupons.CreateRestrictedCoupon(ctx, commerce.RestrictedCouponRequest{
		Code:             code,
		Amount:           amount,
		DiscountType:     sector.DiscountType(),
		UsageLimit:       sector.UsageLimit(),
		EmailRestriction: user.Email,
		ExpiresAt:        &expires,
	})
	if err != nil {
		return "", err
	}
	rec.CouponID, rec.CouponCode, rec.ExpiresAt = id, code, &expires
	rec.Meta["discount_type"] = string(sector.DiscountType())
	rec.Meta["usage_limit"] = sector.UsageLimit()

	if sector.DiscountType() == types.CouponDiscountTypePercent {
		return fmt.Sprintf("You won a %s%% coupon: %s", amount.String(), code), nil
	}
	return fmt.Sprintf("You won a %s coupon: %s", amount.String(), code), nil
}

func (a *Applier) applyFreeShipping(ctx context.Context, sector *models.RewardSector, user User, rec *models.UserReward) (string, error) {
	if a.coupons == nil {
		return "", commerce.ErrNotConfigured
	}
	if user.Email == "" {
		return "", errNoRestriction
	}
	code := tool.GenerateCouponCode(a.opts.ShippingCodePrefix, a.opts.CodeLength)
	expires := a.expiry(sector)
	id, err := a.coupons.CreateFreeShippingCoupon(ctx, commerce.FreeShippingCouponRequest{
		Code:             code,
		UsageLimit:       1,
		EmailRestriction: user.Email,
		ExpiresAt:        &expires,
	})
	if err != nil {
		return "", err
	}
	rec.CouponID, rec.CouponCode, rec.ExpiresAt = id, code, &expires
	rec.Meta["usage_limit"] = 1
	return fmt.Sprintf("You won Free Shipping! Code: %s", code), nil
}

func (a *Applier) applyCashback(ctx context.Context, sector *models.RewardSector, user User, rec *models.UserReward) (string, error) {
	amount, err := decimal.NewFromString(sector.Value)
	if err != nil || !amount.IsPositive() {
		return "", fmt.Errorf("%w %q for cashback", errInvalidValue, sector.Value)
	}
	if a.ledger == nil {
		return "", errors.New("cashback ledger not configured")
	}
	tx, err := a.ledger.Credit(ctx, user.ID, amount, cashbackDescription)
	if err != nil {
		return "", err
	}
	if tx != nil {
		rec.Meta["transaction_id"] = tx.ID
		rec.Meta["balance_after"] = tx.BalanceAfter.String()
	}
	return fmt.Sprintf("You won %s Cashback!", amount.String()), nil
}

func (a *Applier) sendWinEmail(ctx context.Context, lg *zap.SugaredLogger, user User, msg string) {
	if a.mailer == nil || user.Email == "" {
		return
	}
	err := a.mailer.Send(ctx, notification.Message{
		To:      user.Email,
		Subject: winEmailSubject,
		HTML:    "<p>" + notification.StripTags(msg) + "</p>",
		Text:    msg,
	})
	if err != nil {
		lg.Warnw("win email failed", "channel", a.mailer.Channel(), "err", err)
	}
}
