package listings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

const listingPrefix = "listing:"

func listingKey(id uuid.UUID) string { return listingPrefix + id.String() }

// errListingMissing aborts a mutation when the record is absent; Mutate maps
// it to a typed not-found error.
var errListingMissing = fmt.Errorf("listing missing")

// Repository persists listings through the key-value store.
type Repository struct {
	store kv.Store
}

// NewRepository wires the repository to its store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Save(ctx context.Context, listing *Listing) error {
	if err := r.store.Set(ctx, listingKey(listing.ID), listing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save listing")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	found, err := r.store.Get(ctx, listingKey(id), &listing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: load listing")
	}
	if !found {
		return nil, nil
	}
	return &listing, nil
}

// Scan returns every stored listing. Order is unspecified.
func (r *Repository) Scan(ctx context.Context) ([]Listing, error) {
	raws, err := r.store.GetByPrefix(ctx, listingPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: scan listings")
	}
	out := make([]Listing, 0, len(raws))
	for _, raw := range raws {
		var listing Listing
		if err := json.Unmarshal(raw, &listing); err != nil {
			continue
		}
		out = append(out, listing)
	}
	return out, nil
}

// Mutate applies fn to the listing inside the store's check-and-set boundary.
// fn may return a typed error to abort; the aborted mutation leaves the record
// untouched. The returned listing is the state that was written.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(listing *Listing) error) (*Listing, error) {
	var result Listing
	err := r.store.Update(ctx, listingKey(id), func(raw []byte) (any, error) {
		if raw == nil {
			return nil, errListingMissing
		}
		var listing Listing
		if err := json.Unmarshal(raw, &listing); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		if err := fn(&listing); err != nil {
			return nil, err
		}
		result = listing
		return &listing, nil
	})
	if err != nil {
		if err == errListingMissing {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: mutate listing")
	}
	return &result, nil
}
