package queue

import (
	"context"
	"log/slog"

	"techcafe/internal/domain"
)

// SMSWorker delivers dequeued jobs through an SMS panel.
type SMSWorker struct {
	sender domain.SMSSender
	logger *slog.Logger
}

func NewSMSWorker(sender domain.SMSSender, logger *slog.Logger) *SMSWorker {
	return &SMSWorker{sender: sender, logger: logger}
}

// Handle sends one job. It matches the handler signature of Inline and RabbitMQ.Consume.
func (w *SMSWorker) Handle(ctx context.Context, job domain.SMSJob) error {
	if err := w.sender.Send(ctx, job.Phone, job.TemplateID, job.Args); err != nil {
		w.logger.WarnContext(ctx, "sms delivery failed", "template_id", job.TemplateID, "err", err)
		return err
	}
	return nil
}
