package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/fatflowers/roulette/pkg/config"
	"github.com/fatflowers/roulette/pkg/types"
)

const (
	smtpDialTimeout = 5 * time.Second
	smtpDeadline    = 15 * time.Second
)

// EmailSender delivers HTML mail over SMTP with optional STARTTLS.
type EmailSender struct {
	cfg      config.SMTPConfig
	siteName string
}

func NewEmailSender(cfg config.SMTPConfig, siteName string) *EmailSender {
	return &EmailSender{cfg: cfg, siteName: siteName}
}

func (e *EmailSender) Channel() string { return string(types.DeliveryChannelEmail) }

func (e *EmailSender) Send(ctx context.Context, msg Message) error {
	if e.cfg.Host == "" || e.cfg.From == "" {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return fmt.Errorf("email: empty recipient")
	}
	body := e.buildMessage(msg, time.Now())
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	d := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(smtpDeadline)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("email: smtp handshake: %w", err)
	}
	defer c.Close()

	if e.cfg.TLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
				return fmt.Errorf("email: starttls: %w", err)
			}
		}
	}
	if e.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}
	if err := c.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("email: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("email: RCPT TO: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("email: DATA: %w", err)
	}
	if _, err := wc.Write(body); err != nil {
		_ = wc.Close()
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("email: close body: %w", err)
	}
	return c.Quit()
}

func (e *EmailSender) buildMessage(msg Message, now time.Time) []byte {
	fromName := e.cfg.FromName
	if fromName == "" {
		fromName = e.siteName
	}
	html := msg.HTML
	if html == "" {
		html = "<p>" + msg.Text + "</p>"
	}
	if e.siteName != "" {
		html += `<p style="color:#888;font-size:12px">Sent from ` + e.siteName + `</p>`
	}

	var b bytes.Buffer
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), e.cfg.From)},
		{"To", msg.To},
		{"Subject", mime.BEncoding.Encode("UTF-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.Bytes()
}
