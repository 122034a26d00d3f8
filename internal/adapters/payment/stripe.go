package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"

	"techcafe/internal/domain"
)

type stripeGateway struct {
	sessions *session.Client
	currency string
	logger   *slog.Logger
}

// NewStripeGateway opens Checkout Sessions against the given backend.
// Pass stripe.GetBackend(stripe.APIBackend) in production.
func NewStripeGateway(backend stripe.Backend, secretKey, currency string, logger *slog.Logger) domain.PaymentGateway {
	if currency == "" {
		currency = "usd"
	}
	return &stripeGateway{
		sessions: &session.Client{B: backend, Key: secretKey},
		currency: strings.ToLower(currency),
		logger:   logger,
	}
}

func (g *stripeGateway) Name() string { return "stripe" }

func (g *stripeGateway) Begin(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	successURL, err := callbackWithCode(req.CallbackURL, "{CHECKOUT_SESSION_ID}")
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(successURL),
		ClientReferenceID:  stripe.String(req.RegistrationID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("registration_id", req.RegistrationID)
	if req.PayerMobile != "" {
		params.AddMetadata("payer_mobile", req.PayerMobile)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		g.logger.ErrorContext(ctx, "stripe checkout session failed", "registration_id", req.RegistrationID, "err", err)
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	g.logger.InfoContext(ctx, "stripe checkout session created", "session_id", s.ID, "registration_id", req.RegistrationID)
	return &domain.PaymentSession{TrackingCode: s.ID, RedirectURL: s.URL}, nil
}

func (g *stripeGateway) Verify(ctx context.Context, trackingCode string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.sessions.Get(trackingCode, params)
	if err != nil {
		return false, fmt.Errorf("stripe get session: %w", err)
	}
	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// Cancel expires an open checkout session. Stripe refuses to expire a completed one.
func (g *stripeGateway) Cancel(ctx context.Context, trackingCode string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.sessions.Expire(trackingCode, params); err != nil {
		return fmt.Errorf("stripe expire session: %w", err)
	}
	g.logger.InfoContext(ctx, "stripe checkout session expired", "session_id", trackingCode)
	return nil
}

// callbackWithCode appends tc=<code> to the callback URL. The code is left unescaped
// so that Stripe can substitute its template variable.
func callbackWithCode(callbackURL, code string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: invalid callback url %q", domain.ErrInvalidInput, callbackURL)
	}
	sep := "?"
	if u.RawQuery != "" {
		sep = "&"
	}
	return callbackURL + sep + "tc=" + code, nil
}
