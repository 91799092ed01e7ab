// Package search provides substring search over active listings and
// community posts.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrilink/agrilink-backend/internal/community"
	"github.com/agrilink/agrilink-backend/internal/listings"
	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
)

// maxResults caps how many hits a single search returns; Total still reports
// the uncapped match count.
const maxResults = 20

type listingScanner interface {
	Scan(ctx context.Context) ([]listings.Listing, error)
}

type postScanner interface {
	Scan(ctx context.Context) ([]community.Post, error)
}

// Result carries one page of hits plus the uncapped total.
type Result struct {
	Type     enums.SearchType   `json:"type"`
	Total    int                `json:"total"`
	Listings []listings.Listing `json:"listings,omitempty"`
	Posts    []community.Post   `json:"posts,omitempty"`
}

// Service exposes the search operation.
type Service interface {
	Search(ctx context.Context, query string, kind enums.SearchType) (*Result, error)
}

type service struct {
	listings listingScanner
	posts    postScanner
}

// NewService constructs the search service.
func NewService(listingRepo listingScanner, postRepo postScanner) (Service, error) {
	if listingRepo == nil || postRepo == nil {
		return nil, fmt.Errorf("search requires both repositories")
	}
	return &service{listings: listingRepo, posts: postRepo}, nil
}

func (s *service) Search(ctx context.Context, query string, kind enums.SearchType) (*Result, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown search type")
	}

	switch kind {
	case enums.SearchTypeProducts:
		return s.searchListings(ctx, q)
	default:
		return s.searchPosts(ctx, q)
	}
}

func (s *service) searchListings(ctx context.Context, q string) (*Result, error) {
	all, err := s.listings.Scan(ctx)
	if err != nil {
		return nil, err
	}
	hits := make([]listings.Listing, 0)
	for _, listing := range all {
		if listing.Status != enums.ListingStatusActive {
			continue
		}
		if containsFold(q, listing.Name, listing.Description, listing.Category) {
			hits = append(hits, listing)
		}
	}
	result := &Result{Type: enums.SearchTypeProducts, Total: len(hits)}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	result.Listings = hits
	return result, nil
}

func (s *service) searchPosts(ctx context.Context, q string) (*Result, error) {
	all, err := s.posts.Scan(ctx)
	if err != nil {
		return nil, err
	}
	hits := make([]community.Post, 0)
	for _, post := range all {
		if containsFold(q, post.Title, post.Content) {
			hits = append(hits, post)
		}
	}
	result := &Result{Type: enums.SearchTypePosts, Total: len(hits)}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	result.Posts = hits
	return result, nil
}

func containsFold(q string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
