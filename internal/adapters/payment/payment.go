package payment

import (
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v72"

	"techcafe/internal/domain"
)

// Config selects the payment provider.
type Config struct {
	Provider        string
	StripeSecretKey string
	StripeCurrency  string
}

// NewGateway returns the configured gateway. "sandbox" or empty selects the auto-approving gateway.
func NewGateway(cfg Config, logger *slog.Logger) (domain.PaymentGateway, error) {
	switch cfg.Provider {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("stripe payment provider requires STRIPE_SECRET_KEY")
		}
		return NewStripeGateway(stripe.GetBackend(stripe.APIBackend), cfg.StripeSecretKey, cfg.StripeCurrency, logger), nil
	case "sandbox", "":
		logger.Warn("using sandbox payment gateway, every payment is approved")
		return NewSandboxGateway(logger), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
