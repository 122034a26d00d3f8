package domain

import "context"

// SMS panel template body IDs.
const (
	SMSTemplateOTP     = 115131
	SMSTemplateWelcome = 115128
)

// SMSJob is one templated text message waiting to be delivered.
type SMSJob struct {
	Phone      string   `json:"phone"`
	TemplateID int      `json:"template_id"`
	Args       []string `json:"args"`
}

// SMSSender delivers a templated message through an SMS panel.
type SMSSender interface {
	Send(ctx context.Context, phone string, templateID int, args []string) error
}

// TaskQueue hands SMS jobs to a background worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, job SMSJob) error
}

// Notifier sends account notifications without waiting on delivery.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code string) error
	SendWelcome(ctx context.Context, phone, firstName string) error
}
