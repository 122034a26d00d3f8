package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"techcafe/internal/domain"
)

type gatheringService struct {
	gatheringRepo  domain.GatheringRepository
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewGatheringService(gatheringRepo domain.GatheringRepository, logger *slog.Logger, timeout time.Duration) domain.GatheringService {
	return &gatheringService{
		gatheringRepo:  gatheringRepo,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *gatheringService) CreateGathering(ctx context.Context, g *domain.Gathering) (*domain.Gathering, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	if err := s.gatheringRepo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create gathering: %w", err)
	}
	if g.Presenters == nil {
		g.Presenters = []string{}
	}
	return g, nil
}

func (s *gatheringService) GetGathering(ctx context.Context, id string) (*domain.Gathering, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	g, err := s.gatheringRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get gathering: %w", err)
	}
	return g, nil
}

func (s *gatheringService) ListGatherings(ctx context.Context, params domain.GatheringListParams) ([]*domain.Gathering, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	params.PaginationParams = params.PaginationParams.Normalize()
	params.Search = strings.TrimSpace(params.Search)
	if _, ok := domain.GatheringOrderings[params.Ordering]; !ok {
		params.Ordering = ""
	}

	list, total, err := s.gatheringRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list gatherings: %w", err)
	}
	if list == nil {
		list = []*domain.Gathering{}
	}
	return list, total, nil
}

// UpdateGathering applies patch and saves. Marking a gathering held prunes its unpaid
// registrations (priced gatherings only) and deactivates its discounts in the same transaction.
func (s *gatheringService) UpdateGathering(ctx context.Context, id string, patch domain.GatheringPatch) (*domain.GatheringUpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	g, err := s.gatheringRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get gathering: %w", err)
	}
	patch.Apply(g)
	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.UpdatedAt = time.Now()

	res, err := s.gatheringRepo.Save(ctx, g)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("save gathering: %w", err)
	}
	if res.PrunedRegistrations > 0 || res.DeactivatedDiscounts > 0 {
		s.logger.InfoContext(ctx, "gathering held",
			"gathering_id", id,
			"pruned_registrations", res.PrunedRegistrations,
			"deactivated_discounts", res.DeactivatedDiscounts,
		)
	}
	return res, nil
}

func (s *gatheringService) DeleteGathering(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.gatheringRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete gathering: %w", err)
	}
	return nil
}

func (s *gatheringService) SetPresenters(ctx context.Context, id string, userIDs []string) (*domain.Gathering, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, uid := range userIDs {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		ids = append(ids, uid)
	}

	if err := s.gatheringRepo.SetPresenters(ctx, id, ids); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set presenters: %w", err)
	}
	return s.GetGathering(ctx, id)
}
