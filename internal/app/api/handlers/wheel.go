package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	mw "github.com/fatflowers/roulette/internal/app/api/middleware"
	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/spin"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/response"
	"github.com/fatflowers/roulette/pkg/types"
)

const dateLayout = "2006-01-02"

type SpinService interface {
	Spin(ctx context.Context, req spin.Request) (*spin.Result, error)
	Status(ctx context.Context, req spin.Request) (*spin.Status, error)
	ListUserRewards(ctx context.Context, userID string, limit int) ([]*models.UserReward, error)
}

type ActiveSectorLister interface {
	ListActiveSectors(ctx context.Context) ([]*models.RewardSector, error)
}

type CashbackReader interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.CashbackTransaction, error)
}

type CashbackSummary struct {
	Balance      decimal.Decimal               `json:"balance"`
	Transactions []*models.CashbackTransaction `json:"transactions"`
}

type BirthdayProfiles interface {
	GetProfile(ctx context.Context, userID string) (*models.BirthdayProfile, error)
	SetBirthday(ctx context.Context, userID string, date *time.Time, contact birthday.Contact) error
}

// MyBirthday is empty when no birthday is on file.
type MyBirthday struct {
	BirthdayDate string `json:"birthday_date"`
	MonthDay     string `json:"month_day"`
}

// SectorView is what the storefront needs to draw the wheel; weights stay private.
type SectorView struct {
	ID        uint64           `json:"id"`
	Name      string           `json:"name"`
	Type      types.RewardType `json:"type"`
	Color     string           `json:"color"`
	TextColor string           `json:"text_color"`
	SortOrder int              `json:"sort_order"`
}

func toSectorView(s *models.RewardSector, _ int) *SectorView {
	return &SectorView{ID: s.ID, Name: s.Name, Type: s.Type.Normalize(), Color: s.Color, TextColor: s.TextColor, SortOrder: s.SortOrder}
}

type SetBirthdayRequest struct {
	// BirthdayDate is "YYYY-MM-DD"; empty clears it.
	BirthdayDate string `json:"birthday_date"`
	Phone        string `json:"phone"`
}

func spinRequest(c *gin.Context) spin.Request {
	id, _ := mw.IdentityFrom(c)
	if id == nil {
		return spin.Request{IP: c.ClientIP()}
	}
	return spin.Request{UserID: id.UserID, IP: c.ClientIP(), Roles: id.Roles, Name: id.Name, Email: id.Email}
}

// spinErrorCode maps orchestrator errors onto the envelope codes.
func spinErrorCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, spin.ErrUnauthorized):
		return response.APIResponseCodeUnauthorized
	case errors.Is(err, spin.ErrNotEligible):
		return response.APIResponseCodeNotEligible
	case errors.Is(err, spin.ErrNoRewardsConfigured):
		return response.APIResponseCodeNoRewardsConfigured
	case errors.Is(err, spin.ErrAllRewardsExhausted):
		return response.APIResponseCodeRewardsExhausted
	case errors.Is(err, spin.ErrSpinInProgress):
		return response.APIResponseCodeSpinInProgress
	default:
		return response.APIResponseCodeError
	}
}

func parseLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// @Summary      List wheel sectors
// @Description  Returns the active sectors in display order.
// @Tags         Wheel
// @Produce      json
// @Success      200  {object}  handlers.RespSectors
// @Router       /api/v1/wheel/sectors [get]
func ApiListSectors(store ActiveSectorLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := store.ListActiveSectors(c.Request.Context())
		if err != nil {
			logctx.FromGin(c, zap.S()).Errorw("list sectors failed", "err", err)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(lo.Map(rows, toSectorView)))
	}
}

// @Summary      Spin the wheel
// @Description  Resolves one spin for the caller. Failures carry a reason in message.
// @Tags         Wheel
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSpin
// @Router       /api/v1/wheel/spin [post]
func ApiSpin(svc SpinService) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Spin(c.Request.Context(), spinRequest(c))
		if err != nil {
			code := spinErrorCode(err)
			if code == response.APIResponseCodeError {
				logctx.FromGin(c, zap.S()).Errorw("spin failed", "err", err)
				c.JSON(http.StatusOK, response.ErrorT[any](code, nil))
				return
			}
			c.JSON(http.StatusOK, response.ErrorMsgT[any](code, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Spin status
// @Description  Reports whether the caller may spin today and whether a birthday spin is waiting.
// @Tags         Wheel
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSpinStatus
// @Router       /api/v1/wheel/status [get]
func ApiSpinStatus(svc SpinService) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Status(c.Request.Context(), spinRequest(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](spinErrorCode(err), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	}
}

// @Summary      My rewards
// @Description  Lists the caller's grants with refreshed status.
// @Tags         Wheel
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query  int  false  "max rows (default 20)"
// @Success      200  {object}  handlers.RespUserRewards
// @Router       /api/v1/wheel/rewards [get]
func ApiMyRewards(svc SpinService) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := spinRequest(c)
		rows, err := svc.ListUserRewards(c.Request.Context(), req.UserID, parseLimit(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](spinErrorCode(err), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      My cashback
// @Description  Current cashback balance and the latest ledger entries.
// @Tags         Wheel
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query  int  false  "max rows (default 20)"
// @Success      200  {object}  handlers.RespCashback
// @Router       /api/v1/wheel/cashback [get]
func ApiMyCashback(ledger CashbackReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := mw.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		ctx := c.Request.Context()
		bal, err := ledger.Balance(ctx, id.UserID)
		if err != nil {
			logctx.FromGin(c, zap.S()).Errorw("read cashback balance failed", "err", err)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		rows, err := ledger.ListTransactions(ctx, id.UserID, parseLimit(c))
		if err != nil {
			logctx.FromGin(c, zap.S()).Errorw("list cashback transactions failed", "err", err)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&CashbackSummary{Balance: bal, Transactions: rows}))
	}
}

// @Summary      Get my birthday
// @Tags         Wheel
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespMyBirthday
// @Router       /api/v1/wheel/birthday [get]
func ApiGetMyBirthday(profiles BirthdayProfiles) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := mw.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		p, err := profiles.GetProfile(c.Request.Context(), id.UserID)
		if errors.Is(err, birthday.ErrProfileNotFound) {
			c.JSON(http.StatusOK, response.OKT(&MyBirthday{}))
			return
		}
		if err != nil {
			logctx.FromGin(c, zap.S()).Errorw("get birthday failed", "err", err)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		out := &MyBirthday{MonthDay: lo.FromPtr(p.MonthDay)}
		if p.BirthdayDate != nil {
			out.BirthdayDate = p.BirthdayDate.Format(dateLayout)
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// @Summary      Set my birthday
// @Tags         Wheel
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SetBirthdayRequest true "birthday"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/wheel/birthday [put]
func ApiSetMyBirthday(profiles BirthdayProfiles) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := mw.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		var req SetBirthdayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		date, err := parseBirthday(req.BirthdayDate)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, "birthday_date must be YYYY-MM-DD", nil))
			return
		}
		contact := birthday.Contact{Name: id.Name, Email: id.Email, Phone: req.Phone}
		if err := profiles.SetBirthday(c.Request.Context(), id.UserID, date, contact); err != nil {
			logctx.FromGin(c, zap.S()).Errorw("set birthday failed", "err", err)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// parseBirthday accepts "" (clear) or a past date.
func parseBirthday(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	if d.After(time.Now()) {
		return nil, errors.New("birthday in the future")
	}
	return &d, nil
}

func RegisterPublicWheelRoutes(r gin.IRouter, store ActiveSectorLister) {
	r.GET("/sectors", ApiListSectors(store))
}

func RegisterWheelRoutes(r gin.IRouter, svc SpinService, profiles BirthdayProfiles, spinLimit gin.HandlerFunc) {
	r.POST("/spin", spinLimit, ApiSpin(svc))
	r.GET("/status", ApiSpinStatus(svc))
	r.GET("/rewards", ApiMyRewards(svc))
	r.GET("/birthday", ApiGetMyBirthday(profiles))
	r.PUT("/birthday", ApiSetMyBirthday(profiles))
}

func RegisterCashbackRoutes(r gin.IRouter, ledger CashbackReader) {
	r.GET("/cashback", ApiMyCashback(ledger))
}
