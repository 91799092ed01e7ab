package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
)

// stockManager is the slice of the listing service the order flow needs.
type stockManager interface {
	Get(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
	Reserve(ctx context.Context, listingID uuid.UUID, qty int) (*listings.Listing, error)
	Release(ctx context.Context, listingID uuid.UUID, qty int) error
	CommitReservation(ctx context.Context, listingID uuid.UUID, qty int) error
}

// saleRecorder bumps the seller's lifetime sale counter on delivery.
type saleRecorder interface {
	RecordSale(ctx context.Context, id uuid.UUID) error
}

// Service exposes order placement, the status state machine, and reads.
type Service interface {
	Place(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*Order, error)
	UpdateStatus(ctx context.Context, callerID, orderID uuid.UUID, next enums.OrderStatus) (*Order, error)
	ListFor(ctx context.Context, userID uuid.UUID, role enums.Role) ([]Order, error)
	Get(ctx context.Context, callerID, orderID uuid.UUID) (*Order, error)
}

type service struct {
	repo    *Repository
	stock   stockManager
	farmers saleRecorder
	clock   func() time.Time
}

// NewService constructs the order service.
func NewService(repo *Repository, stock stockManager, farmers saleRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock manager required")
	}
	if farmers == nil {
		return nil, fmt.Errorf("sale recorder required")
	}
	return &service{repo: repo, stock: stock, farmers: farmers, clock: time.Now}, nil
}

// legal transitions; delivered and cancelled are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Place reserves stock and records the order. The quantity check and the
// reservation happen inside one check-and-set on the listing record, so two
// concurrent placements can never both claim the last units.
func (s *service) Place(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*Order, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	listing, err := s.stock.Get(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot order your own listing")
	}
	if listing.Status != enums.ListingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not active")
	}

	reserved, err := s.stock.Reserve(ctx, input.ListingID, input.Quantity)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	unitPrice := reserved.Price
	order := &Order{
		ID:              uuid.New(),
		ListingID:       reserved.ID,
		ListingName:     reserved.Name,
		SellerID:        reserved.OwnerID,
		BuyerID:         buyerID,
		Quantity:        input.Quantity,
		UnitPrice:       unitPrice,
		TotalPrice:      unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		Message:         strings.TrimSpace(input.Message),
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		Status:          enums.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Save(ctx, order); err != nil {
		// Give the units back so a failed write leaves no partial effects.
		if releaseErr := s.stock.Release(ctx, input.ListingID, input.Quantity); releaseErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, releaseErr, "release reservation after failed save")
		}
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves the order through its lifecycle. Only the seller may
// transition an order; delivered commits the stock reservation, cancelled
// releases it.
func (s *service) UpdateStatus(ctx context.Context, callerID, orderID uuid.UUID, next enums.OrderStatus) (*Order, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	updated, err := s.repo.Mutate(ctx, orderID, func(order *Order) error {
		if order.SellerID != callerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can update this order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is already %s", order.Status))
		}
		if !transitionAllowed(order.Status, next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
		}
		order.Status = next
		order.UpdatedAt = s.clock().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch next {
	case enums.OrderStatusDelivered:
		if err := s.stock.CommitReservation(ctx, updated.ListingID, updated.Quantity); err != nil {
			return nil, err
		}
		if err := s.farmers.RecordSale(ctx, updated.SellerID); err != nil {
			return nil, err
		}
	case enums.OrderStatusCancelled:
		if err := s.stock.Release(ctx, updated.ListingID, updated.Quantity); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// ListFor returns the orders the user is a party to: sales for farmers,
// purchases for everyone else. Newest first.
func (s *service) ListFor(ctx context.Context, userID uuid.UUID, role enums.Role) ([]Order, error) {
	var (
		orders []Order
		err    error
	)
	if role == enums.RoleFarmer {
		orders, err = s.repo.ListBySeller(ctx, userID)
	} else {
		orders, err = s.repo.ListByBuyer(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() > orders[j].ID.String()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Get returns the order when the caller is its buyer or seller.
func (s *service) Get(ctx context.Context, callerID, orderID uuid.UUID) (*Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.BuyerID != callerID && order.SellerID != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	}
	return order, nil
}
