package domain

import (
	"context"
	"time"
)

// PaymentStatus is the lifecycle state of a PaymentRecord.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentRecord tracks one gateway transaction for a registration.
type PaymentRecord struct {
	ID             string        `json:"id"`
	RegistrationID string        `json:"registration_id"`
	TrackingCode   string        `json:"tracking_code"`
	Amount         int64         `json:"amount"`
	Status         PaymentStatus `json:"status"`
	Provider       string        `json:"provider"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// PaymentRequest is what the gateway needs to open a checkout.
type PaymentRequest struct {
	Amount         int64
	RegistrationID string
	Description    string
	CallbackURL    string
	PayerMobile    string
}

// PaymentSession is the gateway's answer: where to send the payer and how to find the payment later.
type PaymentSession struct {
	TrackingCode string
	RedirectURL  string
}

// PaymentGateway is the external payment collaborator.
type PaymentGateway interface {
	Name() string
	Begin(ctx context.Context, req PaymentRequest) (*PaymentSession, error)
	// Verify reports whether the payment behind trackingCode succeeded.
	Verify(ctx context.Context, trackingCode string) (bool, error)
	// Cancel closes an unpaid session so it can no longer be paid.
	Cancel(ctx context.Context, trackingCode string) error
}

// PaymentRepository defines storage operations for payment records.
type PaymentRepository interface {
	Create(ctx context.Context, p *PaymentRecord) error
	GetByID(ctx context.Context, id string) (*PaymentRecord, error)
	GetByTrackingCode(ctx context.Context, trackingCode string) (*PaymentRecord, error)
	UpdateStatus(ctx context.Context, id string, status PaymentStatus) error
}
