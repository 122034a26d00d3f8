package sms

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"techcafe/internal/domain"
)

// Config selects and configures the SMS provider.
type Config struct {
	Provider string
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
}

// NewSender creates a sender from config. Provider "melipayamak" calls the panel; "noop" or unknown only logs.
func NewSender(cfg Config, logger *slog.Logger) domain.SMSSender {
	switch cfg.Provider {
	case "melipayamak":
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		return NewMelipayamakSender(&http.Client{Timeout: timeout}, cfg.Endpoint, cfg.Username, cfg.Password, logger)
	case "noop", "":
		return &noopSender{logger: logger}
	default:
		logger.Warn("unknown sms provider, using noop", "provider", cfg.Provider)
		return &noopSender{logger: logger}
	}
}

type noopSender struct {
	logger *slog.Logger
}

func (n *noopSender) Send(ctx context.Context, phone string, templateID int, args []string) error {
	n.logger.InfoContext(ctx, "sms would be sent (noop)", "phone", phone, "template_id", templateID, "args", args)
	return nil
}
