package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateCode is returned when a discount code is already taken.
var ErrDuplicateCode = errors.New("discount code already exists")

// Discount is a percentage reduction bound to one gathering.
// swagger:model Discount
type Discount struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	GatheringID string    `json:"gathering_id"`
	Percentage  int       `json:"discount_percentage"`
	Active      bool      `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDiscount returns an active discount. ID is typically set by the repository on create.
func NewDiscount(gatheringID, code string, percentage int, now time.Time) *Discount {
	return &Discount{
		Code:        code,
		GatheringID: gatheringID,
		Percentage:  percentage,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AppliesTo reports whether the discount can be used for the given gathering.
func (d *Discount) AppliesTo(gatheringID string) bool {
	return d.Active && d.GatheringID == gatheringID
}

// DiscountLookup is the public view of an active discount code.
type DiscountLookup struct {
	Code       string           `json:"code"`
	Percentage int              `json:"discount_percentage"`
	Gathering  GatheringSummary `json:"gathering"`
}

// DiscountRepository defines the interface for discount storage.
type DiscountRepository interface {
	Create(ctx context.Context, d *Discount) error
	GetByID(ctx context.Context, id string) (*Discount, error)
	GetByCode(ctx context.Context, code string) (*Discount, error)
	ListByGatheringID(ctx context.Context, gatheringID string) ([]*Discount, error)
	SetActive(ctx context.Context, id string, active bool) (*Discount, error)
}

// DiscountService defines discount management and lookup.
type DiscountService interface {
	CreateDiscount(ctx context.Context, gatheringID, code string, percentage int) (*Discount, error)
	SetDiscountStatus(ctx context.Context, id string, active bool) (*Discount, error)
	ListDiscounts(ctx context.Context, gatheringID string) ([]*Discount, error)
	LookupActive(ctx context.Context, code string) (*DiscountLookup, error)
}
