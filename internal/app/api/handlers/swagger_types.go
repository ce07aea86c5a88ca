package handlers

import (
	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/spin"
	"github.com/fatflowers/roulette/internal/app/service/statistics"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespSectors wraps the public wheel layout.
type RespSectors struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []SectorView             `json:"data"`
}

type RespSpin struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    spin.Result              `json:"data"`
}

type RespSpinStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    spin.Status              `json:"data"`
}

type RespUserRewards struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.UserReward      `json:"data"`
}

type RespAdminSectors struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.RewardSector    `json:"data"`
}

type RespAdminSector struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.RewardSector      `json:"data"`
}

type RespSpinLogs struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    catalog.ScanSpinLogsResponse `json:"data"`
}

type RespRefresh struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    RefreshResult            `json:"data"`
}

type RespYearAhead struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    []models.BirthdayCalendarDay `json:"data"`
}

type RespTodayFound struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    birthday.TodayFound      `json:"data"`
}

type RespStatistics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Response      `json:"data"`
}

type RespCashback struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    CashbackSummary          `json:"data"`
}

type RespMyBirthday struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    MyBirthday               `json:"data"`
}
