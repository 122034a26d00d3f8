package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SnippetLength is the number of characters of the description shown in gathering lists.
const SnippetLength = 60

// Gathering represents an event attendees can register for.
// Price is expressed in minor currency units; zero means the gathering is free.
// swagger:model Gathering
type Gathering struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Address     string    `json:"address,omitempty"`
	Price       int64     `json:"price"`
	Link        string    `json:"link,omitempty"`
	Date        time.Time `json:"date"`
	MaxSeats    int       `json:"max_seats"`
	IsOnline    bool      `json:"is_online"`
	IsHeld      bool      `json:"is_held"`
	IsOccupied  bool      `json:"is_occupied"`
	Presenters  []string  `json:"presenters"`
	FilledSeats int       `json:"filled_seats"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsFree reports whether attendees register without paying.
func (g *Gathering) IsFree() bool {
	return g.Price == 0
}

// EmptySeats returns max_seats minus filled seats. It never goes below zero.
func (g *Gathering) EmptySeats() int {
	if n := g.MaxSeats - g.FilledSeats; n > 0 {
		return n
	}
	return 0
}

// IsFull reports whether no seat can be handed out.
func (g *Gathering) IsFull() bool {
	return g.IsOccupied || g.FilledSeats >= g.MaxSeats
}

// Snippet returns the first SnippetLength characters of the description.
func (g *Gathering) Snippet() string {
	if utf8.RuneCountInString(g.Description) <= SnippetLength {
		return g.Description
	}
	return string([]rune(g.Description)[:SnippetLength])
}

// Validate checks the gathering before it is written to storage.
// An online gathering must have a link and an in-person one must not.
func (g *Gathering) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if g.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if g.MaxSeats < 0 {
		return fmt.Errorf("%w: max_seats must not be negative", ErrInvalidInput)
	}
	if g.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	hasLink := strings.TrimSpace(g.Link) != ""
	if g.IsOnline && !hasLink {
		return fmt.Errorf("%w: online gathering requires a link", ErrInvalidInput)
	}
	if !g.IsOnline && hasLink {
		return fmt.Errorf("%w: link is only allowed for online gatherings", ErrInvalidInput)
	}
	return nil
}

// GatheringPatch carries optional changes to a gathering. Nil fields are left untouched.
type GatheringPatch struct {
	Title       *string
	Description *string
	PosterURL   *string
	Address     *string
	Price       *int64
	Link        *string
	Date        *time.Time
	MaxSeats    *int
	IsOnline    *bool
	IsHeld      *bool
	IsOccupied  *bool
}

// Apply copies the non-nil fields of p onto g.
func (p GatheringPatch) Apply(g *Gathering) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.PosterURL != nil {
		g.PosterURL = *p.PosterURL
	}
	if p.Address != nil {
		g.Address = *p.Address
	}
	if p.Price != nil {
		g.Price = *p.Price
	}
	if p.Link != nil {
		g.Link = *p.Link
	}
	if p.Date != nil {
		g.Date = *p.Date
	}
	if p.MaxSeats != nil {
		g.MaxSeats = *p.MaxSeats
	}
	if p.IsOnline != nil {
		g.IsOnline = *p.IsOnline
	}
	if p.IsHeld != nil {
		g.IsHeld = *p.IsHeld
	}
	if p.IsOccupied != nil {
		g.IsOccupied = *p.IsOccupied
	}
}

// Allowed values for GatheringListParams.Ordering.
var GatheringOrderings = map[string]string{
	"date":         "g.date ASC",
	"-date":        "g.date DESC",
	"is_held":      "g.is_held ASC",
	"-is_held":     "g.is_held DESC",
	"is_occupied":  "g.is_occupied ASC",
	"-is_occupied": "g.is_occupied DESC",
}

// GatheringListParams filters and orders the public gathering list.
type GatheringListParams struct {
	Search   string
	Ordering string
	PaginationParams
}

// GatheringUpdateResult reports what saving a gathering changed besides the row itself.
type GatheringUpdateResult struct {
	Gathering            *Gathering `json:"gathering"`
	PrunedRegistrations  int64      `json:"pruned_registrations"`
	DeactivatedDiscounts int64      `json:"deactivated_discounts"`
}

// GatheringSummary is the compact gathering shape embedded in other views.
type GatheringSummary struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Price int64     `json:"price"`
	Date  time.Time `json:"date"`
}

// Summary returns the compact view of g.
func (g *Gathering) Summary() GatheringSummary {
	return GatheringSummary{ID: g.ID, Title: g.Title, Price: g.Price, Date: g.Date}
}

// GatheringRepository defines the interface for gathering storage.
// Reads populate FilledSeats and Presenters.
type GatheringRepository interface {
	Create(ctx context.Context, g *Gathering) error
	GetByID(ctx context.Context, id string) (*Gathering, error)
	List(ctx context.Context, params GatheringListParams) ([]*Gathering, int, error)
	// Save writes every column of g. When g.IsHeld is true it also prunes unpaid
	// registrations of a priced gathering and deactivates its discounts, all in one transaction.
	Save(ctx context.Context, g *Gathering) (*GatheringUpdateResult, error)
	Delete(ctx context.Context, id string) error
	SetPresenters(ctx context.Context, id string, userIDs []string) error
}

// GatheringService defines catalog operations.
type GatheringService interface {
	CreateGathering(ctx context.Context, g *Gathering) (*Gathering, error)
	GetGathering(ctx context.Context, id string) (*Gathering, error)
	ListGatherings(ctx context.Context, params GatheringListParams) ([]*Gathering, int, error)
	UpdateGathering(ctx context.Context, id string, patch GatheringPatch) (*GatheringUpdateResult, error)
	DeleteGathering(ctx context.Context, id string) error
	SetPresenters(ctx context.Context, id string, userIDs []string) (*Gathering, error)
}
