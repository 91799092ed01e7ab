package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

const (
	orderPrefix  = "order:"
	sellerPrefix = "seller_order:"
	buyerPrefix  = "buyer_order:"
)

func orderKey(id uuid.UUID) string { return orderPrefix + id.String() }

func sellerIndexKey(sellerID, orderID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", sellerPrefix, sellerID, orderID)
}

func buyerIndexKey(buyerID, orderID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", buyerPrefix, buyerID, orderID)
}

// indexEntry points a per-party index key at its order.
type indexEntry struct {
	OrderID uuid.UUID `json:"order_id"`
}

var errOrderMissing = fmt.Errorf("order missing")

// Repository persists orders and their per-party indexes through the
// key-value store.
type Repository struct {
	store kv.Store
}

// NewRepository wires the repository to its store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Save writes the order record and both index entries.
func (r *Repository) Save(ctx context.Context, order *Order) error {
	if err := r.store.Set(ctx, orderKey(order.ID), order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save order")
	}
	entry := indexEntry{OrderID: order.ID}
	if err := r.store.Set(ctx, sellerIndexKey(order.SellerID, order.ID), entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save seller index")
	}
	if err := r.store.Set(ctx, buyerIndexKey(order.BuyerID, order.ID), entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save buyer index")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	found, err := r.store.Get(ctx, orderKey(id), &order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load order")
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

// ListBySeller resolves the seller's index to orders, dropping entries whose
// order record is gone.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Order, error) {
	return r.listByIndex(ctx, sellerPrefix+sellerID.String()+":")
}

// ListByBuyer resolves the buyer's index to orders.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Order, error) {
	return r.listByIndex(ctx, buyerPrefix+buyerID.String()+":")
}

func (r *Repository) listByIndex(ctx context.Context, prefix string) ([]Order, error) {
	raws, err := r.store.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: scan order index")
	}
	out := make([]Order, 0, len(raws))
	for _, raw := range raws {
		var entry indexEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		order, err := r.FindByID(ctx, entry.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

// Scan returns every stored order. Used by the analytics rescan.
func (r *Repository) Scan(ctx context.Context) ([]Order, error) {
	raws, err := r.store.GetByPrefix(ctx, orderPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: scan orders")
	}
	out := make([]Order, 0, len(raws))
	for _, raw := range raws {
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

// Mutate applies fn to the order inside the store's check-and-set boundary.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(order *Order) error) (*Order, error) {
	var result Order
	err := r.store.Update(ctx, orderKey(id), func(raw []byte) (any, error) {
		if raw == nil {
			return nil, errOrderMissing
		}
		var order Order
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		if err := fn(&order); err != nil {
			return nil, err
		}
		result = order
		return &order, nil
	})
	if err != nil {
		if err == errOrderMissing {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: mutate order")
	}
	return &result, nil
}
