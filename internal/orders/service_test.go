package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

type stubFarmers struct {
	mu          sync.Mutex
	adjustments []int
	sales       []uuid.UUID
}

func (s *stubFarmers) AdjustActiveListings(ctx context.Context, id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments = append(s.adjustments, delta)
	return nil
}

func (s *stubFarmers) RecordSale(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, id)
	return nil
}

type fixture struct {
	orders   Service
	listings listings.Service
	repo     *Repository
	farmers  *stubFarmers
	seller   uuid.UUID
	buyer    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemory()
	farmers := &stubFarmers{}

	listingSvc, err := listings.NewService(listings.NewRepository(store), farmers,
		config.ListingsConfig{DefaultQueryLimit: 20, MaxQueryLimit: 100})
	require.NoError(t, err)

	repo := NewRepository(store)
	orderSvc, err := NewService(repo, listingSvc, farmers)
	require.NoError(t, err)

	return &fixture{
		orders:   orderSvc,
		listings: listingSvc,
		repo:     repo,
		farmers:  farmers,
		seller:   uuid.New(),
		buyer:    uuid.New(),
	}
}

func (f *fixture) publish(t *testing.T, price int64, qty int) *listings.Listing {
	t.Helper()
	listing, err := f.listings.Create(context.Background(), f.seller, "Green Acres", enums.RoleFarmer,
		listings.CreateListingInput{
			Name:     "Heirloom Tomatoes",
			Category: "vegetables",
			Price:    decimal.NewFromInt(price),
			Unit:     "kg",
			Quantity: qty,
		})
	require.NoError(t, err)
	return listing
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestPlaceFreezesPriceAndReservesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 500, 10)

	order, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{
		ListingID:       listing.ID,
		Quantity:        3,
		DeliveryAddress: "12 Market Rd",
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, f.seller, order.SellerID)
	require.True(t, order.UnitPrice.Equal(decimal.NewFromInt(500)))
	require.True(t, order.TotalPrice.Equal(decimal.NewFromInt(1500)))

	after, err := f.listings.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, 10, after.Quantity)
	require.Equal(t, 3, after.Reserved)
	require.Equal(t, 7, after.Available())
	require.Equal(t, 1, after.Inquiries)
}

func TestPlaceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 100, 5)

	_, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: uuid.New(), Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.orders.Place(ctx, f.seller, PlaceOrderInput{ListingID: listing.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 6})
	requireCode(t, err, pkgerrors.CodeInsufficientQuantity)
}

func TestPlaceConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const stock = 5
	const attempts = 64
	listing := f.publish(t, 100, stock)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.Place(ctx, uuid.New(), PlaceOrderInput{
				ListingID: listing.ID,
				Quantity:  1,
			})
		}(i)
	}
	wg.Wait()

	var placed, rejected int
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "unexpected error %v", err)
		require.Equal(t, pkgerrors.CodeInsufficientQuantity, typed.Code())
		rejected++
	}
	require.Equal(t, stock, placed)
	require.Equal(t, attempts-stock, rejected)

	after, err := f.listings.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, stock, after.Reserved)
	require.Equal(t, 0, after.Available())
}

func TestUpdateStatusStateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 500, 10)

	order, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 3})
	require.NoError(t, err)

	updated, err := f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	// no backwards moves
	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusPending)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// no skipping ahead
	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusDelivered)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)

	delivered, err := f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, delivered.Status)

	// delivery commits the reservation into a real decrement
	after, err := f.listings.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, 7, after.Quantity)
	require.Equal(t, 0, after.Reserved)
	require.Equal(t, []uuid.UUID{f.seller}, f.farmers.sales)

	// delivered is terminal
	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusCancelled)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusCancelReleasesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 200, 8)

	order, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 5})
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)

	after, err := f.listings.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, 8, after.Quantity)
	require.Equal(t, 0, after.Reserved)

	// cancelled is terminal
	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, enums.OrderStatusConfirmed)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 100, 5)

	order, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, f.buyer, order.ID, enums.OrderStatusConfirmed)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.orders.UpdateStatus(ctx, f.seller, uuid.New(), enums.OrderStatusConfirmed)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.orders.UpdateStatus(ctx, f.seller, order.ID, "teleported")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestListForSplitsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 100, 20)

	first, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 1})
	require.NoError(t, err)
	second, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 2})
	require.NoError(t, err)

	// push the first order into the past for a deterministic sort
	_, err = f.repo.Mutate(ctx, first.ID, func(order *Order) error {
		order.CreatedAt = time.Now().Add(-time.Hour).UTC()
		return nil
	})
	require.NoError(t, err)

	sales, err := f.orders.ListFor(ctx, f.seller, enums.RoleFarmer)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Equal(t, second.ID, sales[0].ID)
	require.Equal(t, first.ID, sales[1].ID)

	purchases, err := f.orders.ListFor(ctx, f.buyer, enums.RoleConsumer)
	require.NoError(t, err)
	require.Len(t, purchases, 2)

	stranger, err := f.orders.ListFor(ctx, uuid.New(), enums.RoleConsumer)
	require.NoError(t, err)
	require.Empty(t, stranger)
}

func TestGetRestrictedToParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.publish(t, 100, 5)

	order, err := f.orders.Place(ctx, f.buyer, PlaceOrderInput{ListingID: listing.ID, Quantity: 1})
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	_, err = f.orders.Get(ctx, f.seller, order.ID)
	require.NoError(t, err)

	_, err = f.orders.Get(ctx, uuid.New(), order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.orders.Get(ctx, f.buyer, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}
