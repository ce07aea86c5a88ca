package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/types"
)

// SMSSender posts to a Twilio-compatible Messages endpoint.
type SMSSender struct {
	cfg        config.SMSConfig
	httpClient *http.Client
}

func NewSMSSender(cfg config.SMSConfig, httpClient *http.Client) *SMSSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SMSSender{cfg: cfg, httpClient: httpClient}
}

func (s *SMSSender) Channel() string { return string(types.DeliveryChannelSMS) }

type smsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	if msg.Phone == "" {
		return fmt.Errorf("sms: empty phone number")
	}
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}

	form := url.Values{}
	form.Set("To", msg.Phone)
	form.Set("From", s.cfg.From)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(s.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var se smsError
		if json.Unmarshal(body, &se) == nil && se.Message != "" {
			return fmt.Errorf("sms: gateway returned %d: %s (code %d)", resp.StatusCode, se.Message, se.Code)
		}
		return fmt.Errorf("sms: gateway returned %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
