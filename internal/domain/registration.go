package domain

import (
	"context"
	"strings"
	"time"
)

// CancellationWindow is how long before a gathering a registration can no longer be cancelled.
const CancellationWindow = 48 * time.Hour

// Registration is a user's seat request for one gathering.
// swagger:model Registration
type Registration struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	GatheringID string    `json:"gathering_id"`
	DiscountID  *string   `json:"discount_id,omitempty"`
	PaymentID   *string   `json:"payment_id,omitempty"`
	Token       string    `json:"token"`
	IsPaid      bool      `json:"is_paid"`
	CheckIn     bool      `json:"check_in"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRegistration creates an unpaid, not checked-in registration. ID is typically set by the repository on create.
func NewRegistration(userID, gatheringID, token string, discountID *string, now time.Time) *Registration {
	return &Registration{
		UserID:      userID,
		GatheringID: gatheringID,
		DiscountID:  discountID,
		Token:       token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasTicket reports whether the holder may enter: the gathering is free or the seat is paid.
func (r *Registration) HasTicket(g *Gathering) bool {
	return g.IsFree() || r.IsPaid
}

// FinalPrice returns price reduced by percentage, with the reduction rounded down.
func FinalPrice(price int64, percentage int) int64 {
	if percentage <= 0 {
		return price
	}
	return price - price*int64(percentage)/100
}

// CheckInURL is the staff URL that admits the holder of token.
func CheckInURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/check-in/" + token
}

// RegistrationWithGathering bundles a registration with its gathering.
type RegistrationWithGathering struct {
	Registration *Registration `json:"registration"`
	Gathering    *Gathering    `json:"gathering"`
}

// PaymentResult is returned by InitiatePayment. When Paid is true no gateway was contacted.
type PaymentResult struct {
	Paid         bool   `json:"paid"`
	Amount       int64  `json:"amount"`
	TrackingCode string `json:"tracking_code,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// CreateWithinCapacity locks the gathering row, re-checks held, occupied and seat
	// count, and inserts reg in the same transaction.
	CreateWithinCapacity(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByToken(ctx context.Context, token string) (*Registration, error)
	GetByUserAndGathering(ctx context.Context, userID, gatheringID string) (*Registration, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Registration, error)
	ListByUserID(ctx context.Context, userID string) ([]*Registration, error)
	Delete(ctx context.Context, id string) error
	// MarkPaid flips is_paid once; it reports false when the row was already paid.
	MarkPaid(ctx context.Context, id string) (bool, error)
	// CheckIn flips check_in once; it reports false when the row was already checked in.
	CheckIn(ctx context.Context, id string) (bool, error)
	AttachPayment(ctx context.Context, id, paymentID string) error
}

// RegistrationService defines the registration engine.
type RegistrationService interface {
	CreateRegistration(ctx context.Context, userID, gatheringID, discountCode string) (*Registration, error)
	CancelRegistration(ctx context.Context, userID, registrationID string) error
	CheckIn(ctx context.Context, token string) (*Registration, error)
	InitiatePayment(ctx context.Context, userID, registrationID, callbackURL string) (*PaymentResult, error)
	HandlePaymentCallback(ctx context.Context, trackingCode string) (*Registration, error)
	ListMyRegistrations(ctx context.Context, userID string) ([]*RegistrationWithGathering, error)
	GetMyRegistration(ctx context.Context, userID, registrationID string) (*RegistrationWithGathering, error)
}
