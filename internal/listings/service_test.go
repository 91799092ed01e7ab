package listings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

type stubFarmerCounter struct {
	adjustments []int
	err         error
}

func (s *stubFarmerCounter) AdjustActiveListings(ctx context.Context, id uuid.UUID, delta int) error {
	if s.err != nil {
		return s.err
	}
	s.adjustments = append(s.adjustments, delta)
	return nil
}

// failingSetStore breaks writes so the creation error branch can be observed.
type failingSetStore struct {
	*kv.Memory
}

func (f *failingSetStore) Set(ctx context.Context, key string, value any) error {
	return fmt.Errorf("store down")
}

func newTestService(t *testing.T) (Service, *Repository, *stubFarmerCounter) {
	t.Helper()
	repo := NewRepository(kv.NewMemory())
	counter := &stubFarmerCounter{}
	svc, err := NewService(repo, counter, config.ListingsConfig{DefaultQueryLimit: 20, MaxQueryLimit: 100})
	require.NoError(t, err)
	return svc, repo, counter
}

func createListing(t *testing.T, svc Service, owner uuid.UUID, input CreateListingInput) *Listing {
	t.Helper()
	listing, err := svc.Create(context.Background(), owner, "Test Farm", enums.RoleFarmer, input)
	require.NoError(t, err)
	return listing
}

func TestCreateRequiresFarmerRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), uuid.New(), "Buyer", enums.RoleConsumer, CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()

	cases := []struct {
		name  string
		input CreateListingInput
	}{
		{name: "missing name", input: CreateListingInput{Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5}},
		{name: "missing category", input: CreateListingInput{Name: "Apples", Price: decimal.NewFromInt(10), Quantity: 5}},
		{name: "zero price", input: CreateListingInput{Name: "Apples", Category: "fruit", Quantity: 5}},
		{name: "negative price", input: CreateListingInput{Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(-3), Quantity: 5}},
		{name: "zero quantity", input: CreateListingInput{Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, "Farm", enums.RoleFarmer, tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestCreateBumpsActiveListings(t *testing.T) {
	svc, _, counter := newTestService(t)
	listing := createListing(t, svc, uuid.New(), CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})
	require.Equal(t, enums.ListingStatusActive, listing.Status)
	require.Equal(t, 0, listing.Reserved)
	require.Equal(t, []int{1}, counter.adjustments)
}

func TestCreateLeavesNoPartialStateOnFailure(t *testing.T) {
	ctx := context.Background()
	input := CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	}

	t.Run("counter failure persists nothing", func(t *testing.T) {
		repo := NewRepository(kv.NewMemory())
		counter := &stubFarmerCounter{err: fmt.Errorf("farmer profile missing")}
		svc, err := NewService(repo, counter, config.ListingsConfig{DefaultQueryLimit: 20, MaxQueryLimit: 100})
		require.NoError(t, err)

		_, err = svc.Create(ctx, uuid.New(), "Farm", enums.RoleFarmer, input)
		require.Error(t, err)

		stored, err := repo.Scan(ctx)
		require.NoError(t, err)
		require.Empty(t, stored)
	})

	t.Run("save failure reverts the counter", func(t *testing.T) {
		repo := NewRepository(&failingSetStore{kv.NewMemory()})
		counter := &stubFarmerCounter{}
		svc, err := NewService(repo, counter, config.ListingsConfig{DefaultQueryLimit: 20, MaxQueryLimit: 100})
		require.NoError(t, err)

		_, err = svc.Create(ctx, uuid.New(), "Farm", enums.RoleFarmer, input)
		require.Error(t, err)
		require.Equal(t, []int{1, -1}, counter.adjustments)
	})
}

func TestQueryFiltersAndSorts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()

	first := createListing(t, svc, owner, CreateListingInput{
		Name: "Heirloom Tomatoes", Category: "Vegetables", Price: decimal.NewFromInt(4),
		Quantity: 10, Location: "Fresno, CA", Organic: true,
	})
	second := createListing(t, svc, owner, CreateListingInput{
		Name: "Sweet Corn", Category: "vegetables", Price: decimal.NewFromInt(2),
		Quantity: 50, Location: "Salinas, CA",
	})
	inactive := createListing(t, svc, owner, CreateListingInput{
		Name: "Old Stock", Category: "vegetables", Price: decimal.NewFromInt(1), Quantity: 1,
	})
	inactive.Status = enums.ListingStatusInactive
	require.NoError(t, repo.Save(ctx, inactive))

	// created_at descending
	first.CreatedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, repo.Save(ctx, first))

	results, err := svc.Query(ctx, QueryFilters{Category: "VEGETABLES"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, second.ID, results[0].ID)
	require.Equal(t, first.ID, results[1].ID)

	organic, err := svc.Query(ctx, QueryFilters{OrganicOnly: true})
	require.NoError(t, err)
	require.Len(t, organic, 1)
	require.Equal(t, first.ID, organic[0].ID)

	located, err := svc.Query(ctx, QueryFilters{Location: "fresno"})
	require.NoError(t, err)
	require.Len(t, located, 1)

	capped, err := svc.Query(ctx, QueryFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, capped, 1)
}

func TestAdjustQuantity(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()
	listing := createListing(t, svc, owner, CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	updated, err := svc.AdjustQuantity(ctx, owner, listing.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 8, updated.Quantity)

	_, err = svc.AdjustQuantity(ctx, uuid.New(), listing.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = svc.AdjustQuantity(ctx, owner, uuid.New(), 1)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = svc.AdjustQuantity(ctx, owner, listing.ID, 0)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAdjustQuantityCannotDropBelowReserved(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()
	listing := createListing(t, svc, owner, CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	_, err := svc.Reserve(ctx, listing.ID, 4)
	require.NoError(t, err)

	_, err = svc.AdjustQuantity(ctx, owner, listing.ID, -2)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReserveReleaseCommit(t *testing.T) {
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()
	listing := createListing(t, svc, owner, CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})

	reserved, err := svc.Reserve(ctx, listing.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, reserved.Reserved)
	require.Equal(t, 2, reserved.Available())
	require.Equal(t, 1, reserved.Inquiries)

	_, err = svc.Reserve(ctx, listing.ID, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientQuantity, typed.Code())

	require.NoError(t, svc.Release(ctx, listing.ID, 1))
	afterRelease, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, 2, afterRelease.Reserved)

	require.NoError(t, svc.CommitReservation(ctx, listing.ID, 2))
	afterCommit, err := svc.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, 3, afterCommit.Quantity)
	require.Equal(t, 0, afterCommit.Reserved)
}

func TestReserveInactiveListing(t *testing.T) {
	svc, repo, _ := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()
	listing := createListing(t, svc, owner, CreateListingInput{
		Name: "Apples", Category: "fruit", Price: decimal.NewFromInt(10), Quantity: 5,
	})
	listing.Status = enums.ListingStatusInactive
	require.NoError(t, repo.Save(ctx, listing))

	_, err := svc.Reserve(ctx, listing.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
