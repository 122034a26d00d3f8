package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techcafe/internal/domain"
)

func TestDiscountService_CreateDiscount(t *testing.T) {
	gatherings := newFakeGatheringRepo()
	g := gatherings.add(&domain.Gathering{Title: "Meetup", Price: 1000, Date: testNow, MaxSeats: 10})
	discounts := newFakeDiscountRepo()
	svc := NewDiscountService(discounts, gatherings, 5*time.Second)

	tests := []struct {
		name        string
		gatheringID string
		code        string
		percentage  int
		wantErr     error
	}{
		{name: "valid", gatheringID: g.ID, code: "SPRING", percentage: 25},
		{name: "boundary 100", gatheringID: g.ID, code: "FREE", percentage: 100},
		{name: "boundary 0", gatheringID: g.ID, code: "ZERO", percentage: 0},
		{name: "duplicate", gatheringID: g.ID, code: "SPRING", percentage: 10, wantErr: domain.ErrDuplicateCode},
		{name: "above 100", gatheringID: g.ID, code: "X", percentage: 101, wantErr: domain.ErrInvalidInput},
		{name: "negative", gatheringID: g.ID, code: "Y", percentage: -1, wantErr: domain.ErrInvalidInput},
		{name: "blank code", gatheringID: g.ID, code: "  ", percentage: 10, wantErr: domain.ErrInvalidInput},
		{name: "unknown gathering", gatheringID: "missing", code: "Z", percentage: 10, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.CreateDiscount(context.Background(), tt.gatheringID, tt.code, tt.percentage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Active)
			assert.Equal(t, tt.percentage, d.Percentage)
		})
	}

	list, err := svc.ListDiscounts(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestDiscountService_LookupActive(t *testing.T) {
	gatherings := newFakeGatheringRepo()
	g := gatherings.add(&domain.Gathering{Title: "Meetup", Price: 1000, Date: testNow, MaxSeats: 10})
	discounts := newFakeDiscountRepo()
	svc := NewDiscountService(discounts, gatherings, 5*time.Second)

	d, err := svc.CreateDiscount(context.Background(), g.ID, "HALF", 50)
	require.NoError(t, err)

	got, err := svc.LookupActive(context.Background(), "HALF")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Percentage)
	assert.Equal(t, g.ID, got.Gathering.ID)
	assert.Equal(t, int64(1000), got.Gathering.Price)

	off, err := svc.SetDiscountStatus(context.Background(), d.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Active)

	_, err = svc.LookupActive(context.Background(), "HALF")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.LookupActive(context.Background(), "NONE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.SetDiscountStatus(context.Background(), "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
