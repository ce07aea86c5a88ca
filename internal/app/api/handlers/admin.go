package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/statistics"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/response"
)

type SectorAdmin interface {
	ListAllSectors(ctx context.Context) ([]*models.RewardSector, error)
	GetSector(ctx context.Context, id uint64) (*models.RewardSector, error)
	AddSector(ctx context.Context, sector *models.RewardSector) error
	UpdateSector(ctx context.Context, sector *models.RewardSector) error
	DeleteSector(ctx context.Context, id uint64) error
	ScanSpinLogs(ctx context.Context, req *catalog.ScanSpinLogsRequest) (*catalog.ScanSpinLogsResponse, error)
	ListRecentRewards(ctx context.Context, limit int) ([]*models.UserReward, error)
}

type BirthdayAdmin interface {
	YearAhead(ctx context.Context) ([]*models.BirthdayCalendarDay, error)
	TodayFound(ctx context.Context) (*birthday.TodayFound, error)
	SendTest(ctx context.Context, email string) error
}

type RefreshRequester interface {
	RequestRefresh(ctx context.Context, force bool) (bool, error)
}

func sectorErrorCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, catalog.ErrInvalidSector):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, catalog.ErrSectorNotFound):
		return response.APIResponseCodeNotFound
	default:
		return response.APIResponseCodeError
	}
}

func sectorID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, "invalid sector id", nil))
		return 0, false
	}
	return id, true
}

// @Summary      List sectors (Admin)
// @Description  Returns every sector including inactive ones.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespAdminSectors
// @Router       /api/v1/admin/sectors [get]
func ApiAdminListSectors(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := store.ListAllSectors(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Create sector (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.RewardSector true "sector"
// @Success      200  {object}  handlers.RespAdminSector
// @Router       /api/v1/admin/sectors [post]
func ApiAdminCreateSector(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sector models.RewardSector
		if err := c.ShouldBindJSON(&sector); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		if err := store.AddSector(c.Request.Context(), &sector); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](sectorErrorCode(err), err.Error(), nil))
			return
		}
		logctx.FromGin(c, zap.S()).Infow("sector created", "sector_id", sector.ID)
		c.JSON(http.StatusOK, response.OKT(&sector))
	}
}

// @Summary      Update sector (Admin)
// @Description  Fields missing from the body keep their stored values.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int                 true "sector id"
// @Param        request body  models.RewardSector true "sector"
// @Success      200  {object}  handlers.RespAdminSector
// @Router       /api/v1/admin/sectors/{id} [put]
func ApiAdminUpdateSector(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sectorID(c)
		if !ok {
			return
		}
		sector, err := store.GetSector(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](sectorErrorCode(err), err.Error(), nil))
			return
		}
		if err := c.ShouldBindJSON(sector); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		sector.ID = id
		if err := store.UpdateSector(c.Request.Context(), sector); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](sectorErrorCode(err), err.Error(), nil))
			return
		}
		logctx.FromGin(c, zap.S()).Infow("sector updated", "sector_id", id)
		c.JSON(http.StatusOK, response.OKT(sector))
	}
}

// @Summary      Delete sector (Admin)
// @Description  Removes a sector; its spin logs and grants are kept.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "sector id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/sectors/{id} [delete]
func ApiAdminDeleteSector(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sectorID(c)
		if !ok {
			return
		}
		if err := store.DeleteSector(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](sectorErrorCode(err), err.Error(), nil))
			return
		}
		logctx.FromGin(c, zap.S()).Infow("sector deleted", "sector_id", id)
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      List spin logs (Admin)
// @Description  Retrieves a paginated and filterable list of spins.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body catalog.ScanSpinLogsRequest true "filters, pagination and sorting"
// @Success      200  {object}  handlers.RespSpinLogs
// @Router       /api/v1/admin/spin_logs [post]
func ApiAdminListSpinLogs(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.ScanSpinLogsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		res, err := store.ScanSpinLogs(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Recent rewards (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query  int  false  "max rows (default 20)"
// @Success      200  {object}  handlers.RespUserRewards
// @Router       /api/v1/admin/rewards/recent [get]
func ApiAdminRecentRewards(store SectorAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := store.ListRecentRewards(c.Request.Context(), parseLimit(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterAdminWheelRoutes(r gin.IRouter, store SectorAdmin) {
	r.GET("/sectors", ApiAdminListSectors(store))
	r.POST("/sectors", ApiAdminCreateSector(store))
	r.PUT("/sectors/:id", ApiAdminUpdateSector(store))
	r.DELETE("/sectors/:id", ApiAdminDeleteSector(store))
	r.POST("/spin_logs", ApiAdminListSpinLogs(store))
	r.GET("/rewards/recent", ApiAdminRecentRewards(store))
}

type StatisticsService interface {
	GetStatistic(ctx context.Context, req *statistics.Request) (*statistics.Response, error)
}

// @Summary      Wheel statistics (Admin)
// @Description  Daily spin and win counts plus grant totals by status.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.Request true "data items and spin_log filters"
// @Success      200  {object}  handlers.RespStatistics
// @Router       /api/v1/admin/statistics [post]
func ApiAdminStatistics(svc StatisticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminStatisticsRoutes(r gin.IRouter, svc StatisticsService) {
	r.POST("/statistics", ApiAdminStatistics(svc))
}
