package services

import (
	"context"
	"fmt"

	"techcafe/internal/domain"
)

type notifier struct {
	queue domain.TaskQueue
}

// NewNotifier returns a Notifier that hands every message to queue.
func NewNotifier(queue domain.TaskQueue) domain.Notifier {
	return &notifier{queue: queue}
}

func (n *notifier) SendOTP(ctx context.Context, phone, code string) error {
	if err := n.queue.Enqueue(ctx, domain.SMSJob{Phone: phone, TemplateID: domain.SMSTemplateOTP, Args: []string{code}}); err != nil {
		return fmt.Errorf("enqueue otp sms: %w", err)
	}
	return nil
}

func (n *notifier) SendWelcome(ctx context.Context, phone, firstName string) error {
	if err := n.queue.Enqueue(ctx, domain.SMSJob{Phone: phone, TemplateID: domain.SMSTemplateWelcome, Args: []string{firstName}}); err != nil {
		return fmt.Errorf("enqueue welcome sms: %w", err)
	}
	return nil
}
