package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"techcafe/internal/domain"
)

type discountService struct {
	discountRepo   domain.DiscountRepository
	gatheringRepo  domain.GatheringRepository
	contextTimeout time.Duration
}

func NewDiscountService(discountRepo domain.DiscountRepository, gatheringRepo domain.GatheringRepository, timeout time.Duration) domain.DiscountService {
	return &discountService{
		discountRepo:   discountRepo,
		gatheringRepo:  gatheringRepo,
		contextTimeout: timeout,
	}
}

func (s *discountService) CreateDiscount(ctx context.Context, gatheringID, code string, percentage int) (*domain.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: discount_percentage must be between 0 and 100", domain.ErrInvalidInput)
	}
	if _, err := s.gatheringRepo.GetByID(ctx, gatheringID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get gathering: %w", err)
	}

	d := domain.NewDiscount(gatheringID, code, percentage, time.Now())
	if err := s.discountRepo.Create(ctx, d); err != nil {
		if errors.Is(err, domain.ErrDuplicateCode) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create discount: %w", err)
	}
	return d, nil
}

func (s *discountService) SetDiscountStatus(ctx context.Context, id string, active bool) (*domain.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	d, err := s.discountRepo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("set discount status: %w", err)
	}
	return d, nil
}

func (s *discountService) ListDiscounts(ctx context.Context, gatheringID string) ([]*domain.Discount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	list, err := s.discountRepo.ListByGatheringID(ctx, gatheringID)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	if list == nil {
		list = []*domain.Discount{}
	}
	return list, nil
}

// LookupActive returns the public view of an active code. Inactive and unknown codes are not found.
func (s *discountService) LookupActive(ctx context.Context, code string) (*domain.DiscountLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	d, err := s.discountRepo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}
	if !d.Active {
		return nil, domain.ErrNotFound
	}
	g, err := s.gatheringRepo.GetByID(ctx, d.GatheringID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get gathering: %w", err)
	}
	return &domain.DiscountLookup{Code: d.Code, Percentage: d.Percentage, Gathering: g.Summary()}, nil
}
