package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/roulette/pkg/types"
)

var ErrNotConfigured = errors.New("notification channel not configured")

// Message carries both renditions; each sender picks the fields it needs.
type Message struct {
	To      string
	Phone   string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	Channel() string
}

// Composite tries every sender and succeeds when at least one does.
type Composite struct {
	senders []Sender
}

func NewComposite(senders ...Sender) *Composite {
	return &Composite{senders: senders}
}

func (c *Composite) Channel() string { return string(types.DeliveryChannelBoth) }

func (c *Composite) Send(ctx context.Context, msg Message) error {
	if len(c.senders) == 0 {
		return ErrNotConfigured
	}
	var errs []error
	delivered := false
	for _, s := range c.senders {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Channel(), err))
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return errors.Join(errs...)
}

// Senders returns the members, for per-channel reporting.
func (c *Composite) Senders() []Sender {
	return c.senders
}

// ForChannel resolves the configured delivery channel; unknown values send email.
func ForChannel(channel types.DeliveryChannel, email, sms Sender) Sender {
	switch channel {
	case types.DeliveryChannelSMS:
		return sms
	case types.DeliveryChannelBoth:
		return NewComposite(email, sms)
	default:
		return email
	}
}
