package listings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/config"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/pagination"
)

// farmerCounter bumps the owning farmer's listing counters.
type farmerCounter interface {
	AdjustActiveListings(ctx context.Context, id uuid.UUID, delta int) error
}

// Service exposes listing management and the reservation operations the order
// flow depends on.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, ownerName string, role enums.Role, input CreateListingInput) (*Listing, error)
	Query(ctx context.Context, filters QueryFilters) ([]Listing, error)
	AdjustQuantity(ctx context.Context, ownerID, listingID uuid.UUID, delta int) (*Listing, error)
	Get(ctx context.Context, listingID uuid.UUID) (*Listing, error)
	Reserve(ctx context.Context, listingID uuid.UUID, qty int) (*Listing, error)
	Release(ctx context.Context, listingID uuid.UUID, qty int) error
	CommitReservation(ctx context.Context, listingID uuid.UUID, qty int) error
}

type service struct {
	repo    *Repository
	farmers farmerCounter
	cfg     config.ListingsConfig
	clock   func() time.Time
}

// NewService constructs the listing service.
func NewService(repo *Repository, farmers farmerCounter, cfg config.ListingsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if farmers == nil {
		return nil, fmt.Errorf("farmer counter required")
	}
	return &service{repo: repo, farmers: farmers, cfg: cfg, clock: time.Now}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, ownerName string, role enums.Role, input CreateListingInput) (*Listing, error) {
	if role != enums.RoleFarmer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only farmers can publish listings")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	now := s.clock().UTC()
	listing := &Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		Price:       input.Price,
		Unit:        strings.TrimSpace(input.Unit),
		Quantity:    input.Quantity,
		HarvestDate: strings.TrimSpace(input.HarvestDate),
		Location:    strings.TrimSpace(input.Location),
		Organic:     input.Organic,
		Status:      enums.ListingStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.farmers.AdjustActiveListings(ctx, ownerID, 1); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, listing); err != nil {
		// Put the counter back so a failed write leaves no partial effects.
		if undoErr := s.farmers.AdjustActiveListings(ctx, ownerID, -1); undoErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, undoErr, "revert listing counter after failed save")
		}
		return nil, err
	}
	return listing, nil
}

func (s *service) Query(ctx context.Context, filters QueryFilters) ([]Listing, error) {
	all, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(filters.Category))
	location := strings.ToLower(strings.TrimSpace(filters.Location))

	matched := make([]Listing, 0, len(all))
	for _, listing := range all {
		if listing.Status != enums.ListingStatusActive {
			continue
		}
		if category != "" && strings.ToLower(listing.Category) != category {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(listing.Location), location) {
			continue
		}
		if filters.OrganicOnly && !listing.Organic {
			continue
		}
		matched = append(matched, listing)
	}

	sortListings(matched)

	limit := pagination.NormalizeLimitWith(filters.Limit, s.cfg.DefaultQueryLimit, s.cfg.MaxQueryLimit)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *service) AdjustQuantity(ctx context.Context, ownerID, listingID uuid.UUID, delta int) (*Listing, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	return s.repo.Mutate(ctx, listingID, func(listing *Listing) error {
		if listing.OwnerID != ownerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the listing owner can adjust stock")
		}
		next := listing.Quantity + delta
		if next < listing.Reserved {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot drop below reserved units")
		}
		listing.Quantity = next
		listing.UpdatedAt = s.clock().UTC()
		return nil
	})
}

func (s *service) Get(ctx context.Context, listingID uuid.UUID) (*Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing, nil
}

// Reserve holds qty units for an order inside a single check-and-set, so
// concurrent reservations can never over-commit the available stock.
func (s *service) Reserve(ctx context.Context, listingID uuid.UUID, qty int) (*Listing, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.repo.Mutate(ctx, listingID, func(listing *Listing) error {
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not active")
		}
		if qty > listing.Available() {
			return pkgerrors.New(pkgerrors.CodeInsufficientQuantity,
				fmt.Sprintf("requested %d units, %d available", qty, listing.Available()))
		}
		listing.Reserved += qty
		listing.Inquiries++
		listing.UpdatedAt = s.clock().UTC()
		return nil
	})
}

// Release returns previously reserved units, e.g. on cancellation.
func (s *service) Release(ctx context.Context, listingID uuid.UUID, qty int) error {
	_, err := s.repo.Mutate(ctx, listingID, func(listing *Listing) error {
		listing.Reserved -= qty
		if listing.Reserved < 0 {
			listing.Reserved = 0
		}
		listing.UpdatedAt = s.clock().UTC()
		return nil
	})
	return err
}

// CommitReservation converts reserved units into a stock decrement on delivery.
func (s *service) CommitReservation(ctx context.Context, listingID uuid.UUID, qty int) error {
	_, err := s.repo.Mutate(ctx, listingID, func(listing *Listing) error {
		listing.Quantity -= qty
		listing.Reserved -= qty
		if listing.Quantity < 0 {
			listing.Quantity = 0
		}
		if listing.Reserved < 0 {
			listing.Reserved = 0
		}
		listing.UpdatedAt = s.clock().UTC()
		return nil
	})
	return err
}

func sortListings(items []Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() > items[j].ID.String()
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
