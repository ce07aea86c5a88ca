package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/logctx"
	"github.com/fatflowers/roulette/pkg/types"
)

var (
	ErrNotFound      = errors.New("commerce: not found")
	ErrNotConfigured = errors.New("commerce: not configured")
)

const (
	apiPrefix       = "/wp-json/wc/v3"
	expiresLayout   = "2006-01-02T15:04:05"
	ordersPageSize  = 100
	maxOrderPages   = 50
	maxErrorBodyLen = 4096
)

// paidStatuses are the order statuses counted as purchases.
var paidStatuses = []string{"completed", "processing"}

// Client talks to a WooCommerce REST v3 compatible shop API.
type Client struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func New(cfg config.CommerceConfig, httpClient *http.Client, log *zap.SugaredLogger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		key:        cfg.ConsumerKey,
		secret:     cfg.ConsumerSecret,
		httpClient: httpClient,
		log:        log,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type RestrictedCouponRequest struct {
	Code             string
	Amount           decimal.Decimal
	DiscountType     types.CouponDiscountType
	UsageLimit       int
	EmailRestriction string
	ExpiresAt        *time.Time
}

type FreeShippingCouponRequest struct {
	Code             string
	UsageLimit       int
	EmailRestriction string
	ExpiresAt        *time.Time
}

type CouponUsage struct {
	UsageLimit int `json:"usage_limit"`
	UsageCount int `json:"usage_count"`
}

// Exhausted reports whether a limited coupon has been used up.
func (u CouponUsage) Exhausted() bool {
	return u.UsageLimit > 0 && u.UsageCount >= u.UsageLimit
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
	Roles []string
}

type couponBody struct {
	Code              string   `json:"code"`
	DiscountType      string   `json:"discount_type"`
	Amount            string   `json:"amount"`
	IndividualUse     bool     `json:"individual_use"`
	UsageLimit        int      `json:"usage_limit,omitempty"`
	UsageLimitPerUser int      `json:"usage_limit_per_user,omitempty"`
	EmailRestrictions []string `json:"email_restrictions,omitempty"`
	FreeShipping      bool     `json:"free_shipping"`
	DateExpires       string   `json:"date_expires,omitempty"`
	Description       string   `json:"description,omitempty"`
}

type couponResponse struct {
	ID int64 `json:"id"`
	CouponUsage
}

type customerResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Billing   struct {
		Phone string `json:"phone"`
	} `json:"billing"`
}

type orderResponse struct {
	Total decimal.Decimal `json:"total"`
}

// CreateRestrictedCoupon issues a discount code bound to one email address.
func (c *Client) CreateRestrictedCoupon(ctx context.Context, req RestrictedCouponRequest) (string, error) {
	dt := req.DiscountType
	if dt == "" {
		dt = types.CouponDiscountTypePercent
	}
	body := couponBody{
		Code:         req.Code,
		DiscountType: string(dt),
		Amount:       req.Amount.String(),
		UsageLimit:   max(req.UsageLimit, 1),
		Description:  "Reward wheel prize",
	}
	if req.EmailRestriction != "" {
		body.EmailRestrictions = []string{req.EmailRestriction}
	}
	if req.ExpiresAt != nil {
		body.DateExpires = req.ExpiresAt.Format(expiresLayout)
	}
	return c.createCoupon(ctx, body)
}

// CreateFreeShippingCoupon issues a zero amount, individual use, free shipping code.
func (c *Client) CreateFreeShippingCoupon(ctx context.Context, req FreeShippingCouponRequest) (string, error) {
	body := couponBody{
		Code:          req.Code,
		DiscountType:  string(types.CouponDiscountTypeFixedCart),
		Amount:        "0",
		IndividualUse: true,
		UsageLimit:    max(req.UsageLimit, 1),
		FreeShipping:  true,
		Description:   "Reward wheel free shipping",
	}
	if req.EmailRestriction != "" {
		body.EmailRestrictions = []string{req.EmailRestriction}
	}
	if req.ExpiresAt != nil {
		body.DateExpires = req.ExpiresAt.Format(expiresLayout)
	}
	return c.createCoupon(ctx, body)
}

func (c *Client) createCoupon(ctx context.Context, body couponBody) (string, error) {
	var out couponResponse
	if err := c.do(ctx, http.MethodPost, "/coupons", nil, body, &out, nil); err != nil {
		return "", fmt.Errorf("create coupon %s: %w", body.Code, err)
	}
	if out.ID == 0 {
		return "", fmt.Errorf("create coupon %s: empty id in response", body.Code)
	}
	logctx.FromCtx(ctx, c.log).Infow("coupon created", "coupon_id", out.ID, "code", body.Code)
	return strconv.FormatInt(out.ID, 10), nil
}

func (c *Client) GetCouponUsage(ctx context.Context, couponID string) (CouponUsage, error) {
	var out couponResponse
	if err := c.do(ctx, http.MethodGet, "/coupons/"+url.PathEscape(couponID), nil, nil, &out, nil); err != nil {
		return CouponUsage{}, fmt.Errorf("get coupon %s: %w", couponID, err)
	}
	return out.CouponUsage, nil
}

func (c *Client) GetCustomer(ctx context.Context, userID string) (*Customer, error) {
	var out customerResponse
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(userID), nil, nil, &out, nil); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", userID, err)
	}
	name := strings.TrimSpace(out.FirstName + " " + out.LastName)
	if name == "" {
		name = out.Username
	}
	cust := &Customer{ID: userID, Name: name, Email: out.Email, Phone: out.Billing.Phone}
	if out.Role != "" {
		cust.Roles = []string{out.Role}
	}
	return cust, nil
}

// GetLifetimeSpend sums the totals of the user's paid orders.
func (c *Client) GetLifetimeSpend(ctx context.Context, userID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for page := 1; page <= maxOrderPages; page++ {
		var orders []orderResponse
		q := ordersQuery(userID, ordersPageSize, page)
		var hdr http.Header
		if err := c.do(ctx, http.MethodGet, "/orders", q, nil, &orders, &hdr); err != nil {
			return decimal.Zero, fmt.Errorf("list orders for %s: %w", userID, err)
		}
		for _, o := range orders {
			total = total.Add(o.Total)
		}
		pages, _ := strconv.Atoi(hdr.Get("X-WP-TotalPages"))
		if len(orders) < ordersPageSize || page >= pages {
			break
		}
	}
	return total, nil
}

// GetOrderCount reads the total from the X-WP-Total header of a one item page.
func (c *Client) GetOrderCount(ctx context.Context, userID string) (int, error) {
	var orders []orderResponse
	var hdr http.Header
	if err := c.do(ctx, http.MethodGet, "/orders", ordersQuery(userID, 1, 1), nil, &orders, &hdr); err != nil {
		return 0, fmt.Errorf("count orders for %s: %w", userID, err)
	}
	n, err := strconv.Atoi(hdr.Get("X-WP-Total"))
	if err != nil {
		return len(orders), nil
	}
	return n, nil
}

func ordersQuery(userID string, perPage, page int) url.Values {
	q := url.Values{}
	q.Set("customer", userID)
	for _, s := range paidStatuses {
		q.Add("status[]", s)
	}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, hdr *http.Header) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.SetBasicAuth(c.key, c.secret)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logctx.FromCtx(ctx, c.log).Debugw("commerce_call", "method", method, "path", path, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(msg, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: status %d: %s (%s)", method, path, resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if hdr != nil {
		*hdr = resp.Header
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func newClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return New(cfg.Commerce, nil, log)
}

var Module = fx.Options(
	fx.Provide(newClient),
)
