package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/response"
)

type AdminSetBirthdayRequest struct {
	BirthdayDate string `json:"birthday_date"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

type TestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type RefreshResult struct {
	// Queued is false when the rebuild ran inline.
	Queued bool `json:"queued"`
}

// @Summary      Set a user's birthday (Admin)
// @Description  Saves the birthday and forces a year-ahead refresh.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                  true "user id"
// @Param        request  body  AdminSetBirthdayRequest true "birthday"
// @Success      200  {object}  handlers.RespRefresh
// @Router       /api/v1/admin/users/{id}/birthday [put]
func ApiAdminSetBirthday(profiles BirthdayProfiles, refresher RefreshRequester) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		var req AdminSetBirthdayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		date, err := parseBirthday(req.BirthdayDate)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, "birthday_date must be YYYY-MM-DD", nil))
			return
		}
		contact := birthday.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone}
		if err := profiles.SetBirthday(c.Request.Context(), userID, date, contact); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		queued, err := refresher.RequestRefresh(c.Request.Context(), true)
		if err != nil {
			// the birthday is saved; the next daily rebuild picks it up
			logctx.FromGin(c, zap.S()).Warnw("year ahead refresh failed", "target_user", userID, "err", err)
		}
		c.JSON(http.StatusOK, response.OKT(&RefreshResult{Queued: queued}))
	}
}

// @Summary      Refresh year-ahead cache (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespRefresh
// @Router       /api/v1/admin/birthday/refresh [post]
func ApiAdminRefreshBirthdays(refresher RefreshRequester) gin.HandlerFunc {
	return func(c *gin.Context) {
		queued, err := refresher.RequestRefresh(c.Request.Context(), true)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&RefreshResult{Queued: queued}))
	}
}

// @Summary      Year-ahead birthdays (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespYearAhead
// @Router       /api/v1/admin/birthday/year_ahead [get]
func ApiAdminYearAhead(svc BirthdayAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.YearAhead(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Today's birthday recipients (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespTodayFound
// @Router       /api/v1/admin/birthday/today_found [get]
func ApiAdminTodayFound(svc BirthdayAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.TodayFound(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Send a test invitation (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body TestEmailRequest true "recipient"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/birthday/test_email [post]
func ApiAdminTestEmail(svc BirthdayAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TestEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeBadRequest, err.Error(), nil))
			return
		}
		if err := svc.SendTest(c.Request.Context(), req.Email); err != nil {
			c.JSON(http.StatusOK, response.ErrorMsgT[any](response.APIResponseCodeError, err.Error(), nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminBirthdayRoutes(r gin.IRouter, profiles BirthdayProfiles, svc BirthdayAdmin, refresher RefreshRequester) {
	r.PUT("/users/:id/birthday", ApiAdminSetBirthday(profiles, refresher))
	r.POST("/birthday/refresh", ApiAdminRefreshBirthdays(refresher))
	r.GET("/birthday/year_ahead", ApiAdminYearAhead(svc))
	r.GET("/birthday/today_found", ApiAdminTodayFound(svc))
	r.POST("/birthday/test_email", ApiAdminTestEmail(svc))
}
