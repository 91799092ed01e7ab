package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/pkg/enums"
)

// Order is a purchase placed against a listing. Every field except Status and
// UpdatedAt is frozen at placement; UnitPrice and TotalPrice keep the listing
// price at that moment regardless of later repricing.
type Order struct {
	ID              uuid.UUID         `json:"id"`
	ListingID       uuid.UUID         `json:"listing_id"`
	ListingName     string            `json:"listing_name"`
	SellerID        uuid.UUID         `json:"seller_id"`
	BuyerID         uuid.UUID         `json:"buyer_id"`
	Quantity        int               `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unit_price"`
	TotalPrice      decimal.Decimal   `json:"total_price"`
	Message         string            `json:"message,omitempty"`
	DeliveryAddress string            `json:"delivery_address,omitempty"`
	Status          enums.OrderStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// PlaceOrderInput is the validated payload to place an order.
type PlaceOrderInput struct {
	ListingID       uuid.UUID
	Quantity        int
	Message         string
	DeliveryAddress string
}
