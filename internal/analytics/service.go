// Package analytics computes marketplace-wide aggregates by rescanning the
// key-value store on every request. Reads only; nothing here is cached.
package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/internal/community"
	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/internal/orders"
	"github.com/agrilink/agrilink-backend/pkg/enums"
)

type userCounter interface {
	CountByRole(ctx context.Context) (map[enums.Role]int, error)
}

type listingScanner interface {
	Scan(ctx context.Context) ([]listings.Listing, error)
}

type orderScanner interface {
	Scan(ctx context.Context) ([]orders.Order, error)
}

type postScanner interface {
	Scan(ctx context.Context) ([]community.Post, error)
}

// Overview is the marketplace-wide aggregate snapshot.
type Overview struct {
	TotalUsers     int                `json:"total_users"`
	UsersByRole    map[enums.Role]int `json:"users_by_role"`
	ActiveListings int                `json:"active_listings"`
	TotalListings  int                `json:"total_listings"`
	TotalOrders    int                `json:"total_orders"`
	TotalVolume    decimal.Decimal    `json:"total_volume"`
	TotalPosts     int                `json:"total_posts"`
}

// Service exposes the read-side aggregate.
type Service interface {
	Overview(ctx context.Context) (*Overview, error)
}

type service struct {
	users    userCounter
	listings listingScanner
	orders   orderScanner
	posts    postScanner
}

// NewService constructs the analytics service.
func NewService(users userCounter, listingRepo listingScanner, orderRepo orderScanner, postRepo postScanner) (Service, error) {
	if users == nil || listingRepo == nil || orderRepo == nil || postRepo == nil {
		return nil, fmt.Errorf("analytics requires all repositories")
	}
	return &service{users: users, listings: listingRepo, orders: orderRepo, posts: postRepo}, nil
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byRole {
		total += n
	}

	allListings, err := s.listings.Scan(ctx)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, listing := range allListings {
		if listing.Status == enums.ListingStatusActive {
			active++
		}
	}

	allOrders, err := s.orders.Scan(ctx)
	if err != nil {
		return nil, err
	}
	volume := decimal.Zero
	for _, order := range allOrders {
		volume = volume.Add(order.TotalPrice)
	}

	allPosts, err := s.posts.Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalUsers:     total,
		UsersByRole:    byRole,
		ActiveListings: active,
		TotalListings:  len(allListings),
		TotalOrders:    len(allOrders),
		TotalVolume:    volume,
		TotalPosts:     len(allPosts),
	}, nil
}
