package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/pkg/enums"
)

// Listing is a product offer published by a farmer. Quantity is the
// seller-managed stock; Reserved tracks units held by in-flight orders, so
// available stock is always Quantity - Reserved.
type Listing struct {
	ID          uuid.UUID           `json:"id"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	OwnerName   string              `json:"owner_name"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category"`
	Price       decimal.Decimal     `json:"price"`
	Unit        string              `json:"unit"`
	Quantity    int                 `json:"quantity"`
	Reserved    int                 `json:"reserved"`
	HarvestDate string              `json:"harvest_date,omitempty"`
	Location    string              `json:"location,omitempty"`
	Organic     bool                `json:"organic"`
	Status      enums.ListingStatus `json:"status"`
	Views       int                 `json:"views"`
	Inquiries   int                 `json:"inquiries"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Available reports the stock not held by a reservation.
func (l Listing) Available() int {
	return l.Quantity - l.Reserved
}

// CreateListingInput is the validated payload to publish a listing.
type CreateListingInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Unit        string
	Quantity    int
	HarvestDate string
	Location    string
	Organic     bool
}

// QueryFilters narrows the public listing query.
type QueryFilters struct {
	Category    string
	Location    string
	OrganicOnly bool
	Limit       int
}
