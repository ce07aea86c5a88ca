package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mw "github.com/fatflowers/roulette/internal/app/api/middleware"
	"github.com/fatflowers/roulette/internal/app/service/birthday"
	"github.com/fatflowers/roulette/internal/app/service/catalog"
	"github.com/fatflowers/roulette/internal/app/service/spin"
	"github.com/fatflowers/roulette/internal/app/service/statistics"
	"github.com/fatflowers/roulette/internal/models"
	"github.com/fatflowers/roulette/pkg/response"
	"github.com/fatflowers/roulette/pkg/types"
)

const testSecret = "handler-secret"

type envelope struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    json.RawMessage          `json:"data"`
}

type fakeSpin struct {
	err     error
	lastReq spin.Request
}

func (f *fakeSpin) Spin(_ context.Context, req spin.Request) (*spin.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &spin.Result{SectorID: 3, Message: "You won Free Shipping! Code: SHIP1", SpinLogID: "log-1"}, nil
}

func (f *fakeSpin) Status(_ context.Context, req spin.Request) (*spin.Status, error) {
	return &spin.Status{Today: "2026-04-10", Eligible: true}, nil
}

func (f *fakeSpin) ListUserRewards(_ context.Context, userID string, limit int) ([]*models.UserReward, error) {
	return []*models.UserReward{{ID: "r1", UserID: userID}}, nil
}

type fakeSectors struct {
	rows    []*models.RewardSector
	addErr  error
	deleted []uint64
	scanReq *catalog.ScanSpinLogsRequest
}

func (f *fakeSectors) ListActiveSectors(context.Context) ([]*models.RewardSector, error) {
	return f.rows, nil
}

func (f *fakeSectors) ListAllSectors(context.Context) ([]*models.RewardSector, error) {
	return f.rows, nil
}

func (f *fakeSectors) GetSector(_ context.Context, id uint64) (*models.RewardSector, error) {
	for _, r := range f.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, catalog.ErrSectorNotFound
}

func (f *fakeSectors) AddSector(_ context.Context, s *models.RewardSector) error {
	if f.addErr != nil {
		return f.addErr
	}
	s.ID = uint64(len(f.rows) + 1)
	f.rows = append(f.rows, s)
	return nil
}

func (f *fakeSectors) UpdateSector(_ context.Context, s *models.RewardSector) error {
	for _, r := range f.rows {
		if r.ID == s.ID {
			*r = *s
			return nil
		}
	}
	return catalog.ErrSectorNotFound
}

func (f *fakeSectors) DeleteSector(_ context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSectors) ScanSpinLogs(_ context.Context, req *catalog.ScanSpinLogsRequest) (*catalog.ScanSpinLogsResponse, error) {
	f.scanReq = req
	return &catalog.ScanSpinLogsResponse{Total: 0}, nil
}

func (f *fakeSectors) ListRecentRewards(context.Context, int) ([]*models.UserReward, error) {
	return nil, nil
}

type fakeProfiles struct {
	userID  string
	date    *time.Time
	contact birthday.Contact
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*models.BirthdayProfile, error) {
	if f.date == nil || f.userID != userID {
		return nil, birthday.ErrProfileNotFound
	}
	md := birthday.MonthDay(*f.date)
	return &models.BirthdayProfile{UserID: userID, BirthdayDate: f.date, MonthDay: &md}, nil
}

func (f *fakeProfiles) SetBirthday(_ context.Context, userID string, date *time.Time, contact birthday.Contact) error {
	f.userID, f.date, f.contact = userID, date, contact
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RequestRefresh(context.Context, bool) (bool, error) {
	f.calls++
	return f.err == nil, f.err
}

type fakeBirthdayAdmin struct {
	testTo string
}

func (f *fakeBirthdayAdmin) YearAhead(context.Context) ([]*models.BirthdayCalendarDay, error) {
	return nil, nil
}

func (f *fakeBirthdayAdmin) TodayFound(context.Context) (*birthday.TodayFound, error) {
	return &birthday.TodayFound{Date: "2026-04-10"}, nil
}

func (f *fakeBirthdayAdmin) SendTest(_ context.Context, email string) error {
	f.testTo = email
	return nil
}

func token(t *testing.T, sub string, roles ...string) string {
	t.Helper()
	claims := mw.Claims{Roles: roles, Name: "Ana", Email: "ana@example.com", StandardClaims: jwt.StandardClaims{Subject: sub}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func call(r http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func wheelEngine(svc SpinService, sectors *fakeSectors, profiles BirthdayProfiles) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPublicWheelRoutes(r.Group("/wheel"), sectors)
	g := r.Group("/wheel")
	g.Use(mw.AuthRequired(testSecret, zap.NewNop().Sugar()))
	RegisterWheelRoutes(g, svc, profiles, func(c *gin.Context) { c.Next() })
	return r
}

func TestListSectors_HidesWeights(t *testing.T) {
	sectors := &fakeSectors{rows: []*models.RewardSector{{ID: 1, Name: "10% OFF", Type: types.RewardTypeCoupon, Probability: 70, Color: "#fff"}}}
	r := wheelEngine(&fakeSpin{}, sectors, &fakeProfiles{})

	env := decode(t, call(r, http.MethodGet, "/wheel/sectors", "", ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Contains(t, string(env.Data), `"10% OFF"`)
	require.NotContains(t, string(env.Data), "probability")
}

func TestSpin_PassesIdentity(t *testing.T) {
	svc := &fakeSpin{}
	r := wheelEngine(svc, &fakeSectors{}, &fakeProfiles{})

	env := decode(t, call(r, http.MethodPost, "/wheel/spin", token(t, "u1"), ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "u1", svc.lastReq.UserID)
	require.Equal(t, "ana@example.com", svc.lastReq.Email)

	var res spin.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, "log-1", res.SpinLogID)
}

func TestSpin_ErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code response.APIResponseCode
	}{
		{fmt.Errorf("%w: not a member", spin.ErrNotEligible), response.APIResponseCodeNotEligible},
		{spin.ErrNoRewardsConfigured, response.APIResponseCodeNoRewardsConfigured},
		{spin.ErrAllRewardsExhausted, response.APIResponseCodeRewardsExhausted},
		{spin.ErrSpinInProgress, response.APIResponseCodeSpinInProgress},
		{errors.New("db down"), response.APIResponseCodeError},
	}
	for _, tc := range cases {
		r := wheelEngine(&fakeSpin{err: tc.err}, &fakeSectors{}, &fakeProfiles{})
		env := decode(t, call(r, http.MethodPost, "/wheel/spin", token(t, "u1"), ""))
		require.Equal(t, tc.code, env.Code, tc.err.Error())
	}

	r := wheelEngine(&fakeSpin{err: fmt.Errorf("%w: not a member", spin.ErrNotEligible)}, &fakeSectors{}, &fakeProfiles{})
	env := decode(t, call(r, http.MethodPost, "/wheel/spin", token(t, "u1"), ""))
	require.Contains(t, env.Message, "not a member")

	r = wheelEngine(&fakeSpin{err: errors.New("dsn=secret")}, &fakeSectors{}, &fakeProfiles{})
	env = decode(t, call(r, http.MethodPost, "/wheel/spin", token(t, "u1"), ""))
	require.NotContains(t, env.Message, "secret")
}

func TestSpin_RequiresToken(t *testing.T) {
	r := wheelEngine(&fakeSpin{}, &fakeSectors{}, &fakeProfiles{})
	w := call(r, http.MethodPost, "/wheel/spin", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetMyBirthday(t *testing.T) {
	profiles := &fakeProfiles{}
	r := wheelEngine(&fakeSpin{}, &fakeSectors{}, profiles)

	env := decode(t, call(r, http.MethodPut, "/wheel/birthday", token(t, "u1"), `{"birthday_date":"1990-04-10","phone":"+100"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "u1", profiles.userID)
	require.Equal(t, "1990-04-10", profiles.date.Format(dateLayout))
	require.Equal(t, "+100", profiles.contact.Phone)
	require.Equal(t, "ana@example.com", profiles.contact.Email)

	env = decode(t, call(r, http.MethodPut, "/wheel/birthday", token(t, "u1"), `{"birthday_date":"04/10/1990"}`))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	future := time.Now().AddDate(1, 0, 0).Format(dateLayout)
	env = decode(t, call(r, http.MethodPut, "/wheel/birthday", token(t, "u1"), `{"birthday_date":"`+future+`"}`))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	env = decode(t, call(r, http.MethodPut, "/wheel/birthday", token(t, "u1"), `{"birthday_date":""}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Nil(t, profiles.date)
}

func TestGetMyBirthday(t *testing.T) {
	profiles := &fakeProfiles{}
	r := wheelEngine(&fakeSpin{}, &fakeSectors{}, profiles)

	env := decode(t, call(r, http.MethodGet, "/wheel/birthday", token(t, "u1"), ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.JSONEq(t, `{"birthday_date":"","month_day":""}`, string(env.Data))

	env = decode(t, call(r, http.MethodPut, "/wheel/birthday", token(t, "u1"), `{"birthday_date":"1990-04-10"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	env = decode(t, call(r, http.MethodGet, "/wheel/birthday", token(t, "u1"), ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.JSONEq(t, `{"birthday_date":"1990-04-10","month_day":"04-10"}`, string(env.Data))
}

func adminEngine(sectors *fakeSectors, profiles BirthdayProfiles, bday BirthdayAdmin, ref RefreshRequester) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/admin")
	g.Use(mw.AuthRequired(testSecret, zap.NewNop().Sugar()), mw.AdminRequired("administrator"))
	RegisterAdminWheelRoutes(g, sectors)
	RegisterAdminBirthdayRoutes(g, profiles, bday, ref)
	return r
}

func TestAdmin_RequiresRole(t *testing.T) {
	r := adminEngine(&fakeSectors{}, &fakeProfiles{}, &fakeBirthdayAdmin{}, &fakeRefresher{})
	w := call(r, http.MethodGet, "/admin/sectors", token(t, "u1", "customer"), "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdmin_SectorCRUD(t *testing.T) {
	sectors := &fakeSectors{}
	r := adminEngine(sectors, &fakeProfiles{}, &fakeBirthdayAdmin{}, &fakeRefresher{})
	tok := token(t, "admin", "administrator")

	env := decode(t, call(r, http.MethodPost, "/admin/sectors", tok, `{"name":"5 OFF","type":"coupon","value":"5","probability":10}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Len(t, sectors.rows, 1)

	env = decode(t, call(r, http.MethodPut, "/admin/sectors/1", tok, `{"name":"6 OFF","type":"coupon","value":"6"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "6 OFF", sectors.rows[0].Name)
	require.Equal(t, 10, sectors.rows[0].Probability)

	env = decode(t, call(r, http.MethodPut, "/admin/sectors/99", tok, `{"name":"x","type":"coupon"}`))
	require.Equal(t, response.APIResponseCodeNotFound, env.Code)

	env = decode(t, call(r, http.MethodDelete, "/admin/sectors/abc", tok, ""))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	env = decode(t, call(r, http.MethodDelete, "/admin/sectors/1", tok, ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, []uint64{1}, sectors.deleted)

	sectors.addErr = fmt.Errorf("%w: name required", catalog.ErrInvalidSector)
	env = decode(t, call(r, http.MethodPost, "/admin/sectors", tok, `{"type":"coupon"}`))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
	require.Contains(t, env.Message, "name required")
}

func TestAdmin_ScanSpinLogs(t *testing.T) {
	sectors := &fakeSectors{}
	r := adminEngine(sectors, &fakeProfiles{}, &fakeBirthdayAdmin{}, &fakeRefresher{})
	body := `{"filters":[{"field":"user_id","operator":"eq","values":["u1"]}],"from":0,"size":10}`
	env := decode(t, call(r, http.MethodPost, "/admin/spin_logs", token(t, "admin", "administrator"), body))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.NotNil(t, sectors.scanReq)
	require.Equal(t, 10, sectors.scanReq.Size)
	require.Len(t, sectors.scanReq.Filters, 1)
}

func TestAdmin_SetBirthdayForcesRefresh(t *testing.T) {
	profiles := &fakeProfiles{}
	ref := &fakeRefresher{}
	r := adminEngine(&fakeSectors{}, profiles, &fakeBirthdayAdmin{}, ref)

	env := decode(t, call(r, http.MethodPut, "/admin/users/u7/birthday", token(t, "admin", "administrator"), `{"birthday_date":"1988-02-29","email":"u7@example.com"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "u7", profiles.userID)
	require.Equal(t, "u7@example.com", profiles.contact.Email)
	require.Equal(t, 1, ref.calls)
	require.JSONEq(t, `{"queued":true}`, string(env.Data))
}

func TestAdmin_SetBirthdayRefreshFailureStillSaves(t *testing.T) {
	profiles := &fakeProfiles{}
	ref := &fakeRefresher{err: errors.New("redis down")}
	r := adminEngine(&fakeSectors{}, profiles, &fakeBirthdayAdmin{}, ref)

	env := decode(t, call(r, http.MethodPut, "/admin/users/u7/birthday", token(t, "admin", "administrator"), `{"birthday_date":"1988-02-29"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "u7", profiles.userID)
}

func TestAdmin_BirthdayTools(t *testing.T) {
	bday := &fakeBirthdayAdmin{}
	r := adminEngine(&fakeSectors{}, &fakeProfiles{}, bday, &fakeRefresher{})
	tok := token(t, "admin", "administrator")

	env := decode(t, call(r, http.MethodGet, "/admin/birthday/today_found", tok, ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Contains(t, string(env.Data), "2026-04-10")

	env = decode(t, call(r, http.MethodPost, "/admin/birthday/test_email", tok, `{"email":"not-an-email"}`))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)

	env = decode(t, call(r, http.MethodPost, "/admin/birthday/test_email", tok, `{"email":"qa@example.com"}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "qa@example.com", bday.testTo)

	env = decode(t, call(r, http.MethodPost, "/admin/birthday/refresh", tok, ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
}

type fakeStats struct{ req *statistics.Request }

func (f *fakeStats) GetStatistic(_ context.Context, req *statistics.Request) (*statistics.Response, error) {
	f.req = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &statistics.Response{DataItems: map[statistics.StatisticType][]statistics.ResponseDataItem{
		statistics.StatisticTypeDailySpinCount: {{Date: "2026-04-10", Value: 3}},
	}}, nil
}

func TestAdmin_Statistics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	stats := &fakeStats{}
	RegisterAdminStatisticsRoutes(r.Group("/admin"), stats)

	env := decode(t, call(r, http.MethodPost, "/admin/statistics", "", `{"data_items":[{"id":"daily_spin_count"}]}`))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Contains(t, string(env.Data), `"daily_spin_count"`)

	env = decode(t, call(r, http.MethodPost, "/admin/statistics", "", `{"data_items":[{"id":"daily_gmv"}]}`))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

type fakeLedger struct {
	userID string
	limit  int
	err    error
}

func (f *fakeLedger) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	f.userID = userID
	return decimal.RequireFromString("12.50"), f.err
}

func (f *fakeLedger) ListTransactions(_ context.Context, userID string, limit int) ([]*models.CashbackTransaction, error) {
	f.limit = limit
	return []*models.CashbackTransaction{{ID: "t1", UserID: userID, Type: models.CashbackTransactionCredit, Amount: decimal.RequireFromString("2.50")}}, nil
}

func cashbackEngine(ledger CashbackReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/wheel")
	g.Use(mw.AuthRequired(testSecret, zap.NewNop().Sugar()))
	RegisterCashbackRoutes(g, ledger)
	return r
}

func TestMyCashback(t *testing.T) {
	ledger := &fakeLedger{}
	r := cashbackEngine(ledger)

	env := decode(t, call(r, http.MethodGet, "/wheel/cashback?limit=5", token(t, "u1"), ""))
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "u1", ledger.userID)
	require.Equal(t, 5, ledger.limit)

	var sum CashbackSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	require.True(t, sum.Balance.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, sum.Transactions, 1)
	require.Equal(t, "t1", sum.Transactions[0].ID)

	w := call(r, http.MethodGet, "/wheel/cashback", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMyCashback_StoreErrorIsHidden(t *testing.T) {
	r := cashbackEngine(&fakeLedger{err: errors.New("dsn=secret")})

	env := decode(t, call(r, http.MethodGet, "/wheel/cashback", token(t, "u1"), ""))
	require.Equal(t, response.APIResponseCodeError, env.Code)
	require.NotContains(t, env.Message, "secret")
}
