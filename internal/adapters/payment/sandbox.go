package payment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"techcafe/internal/domain"
)

// sandboxGateway approves every payment. Its redirect points straight at the callback.
type sandboxGateway struct {
	logger *slog.Logger
}

func NewSandboxGateway(logger *slog.Logger) domain.PaymentGateway {
	return &sandboxGateway{logger: logger}
}

func (g *sandboxGateway) Name() string { return "sandbox" }

func (g *sandboxGateway) Begin(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	code := "sbx_" + uuid.NewString()
	redirect, err := callbackWithCode(req.CallbackURL, code)
	if err != nil {
		return nil, err
	}
	g.logger.InfoContext(ctx, "sandbox payment started", "tracking_code", code, "amount", req.Amount)
	return &domain.PaymentSession{TrackingCode: code, RedirectURL: redirect}, nil
}

func (g *sandboxGateway) Verify(ctx context.Context, trackingCode string) (bool, error) {
	return true, nil
}

func (g *sandboxGateway) Cancel(ctx context.Context, trackingCode string) error {
	g.logger.InfoContext(ctx, "sandbox payment cancelled", "tracking_code", trackingCode)
	return nil
}
