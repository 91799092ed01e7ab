package community

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/enums"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/pagination"
)

const defaultCategory = "general"

// Service exposes community post publishing and reads.
type Service interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, authorName string, authorRole enums.Role, input CreatePostInput) (*Post, error)
	QueryPosts(ctx context.Context, category string, limit int) ([]Post, error)
}

type service struct {
	repo  *Repository
	clock func() time.Time
}

// NewService constructs the community service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("community repository required")
	}
	return &service{repo: repo, clock: time.Now}, nil
}

func (s *service) CreatePost(ctx context.Context, authorID uuid.UUID, authorName string, authorRole enums.Role, input CreatePostInput) (*Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		category = defaultCategory
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	now := s.clock().UTC()
	post := &Post{
		ID:         uuid.New(),
		AuthorID:   authorID,
		AuthorName: authorName,
		AuthorRole: authorRole,
		Title:      title,
		Content:    content,
		Category:   category,
		Tags:       tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *service) QueryPosts(ctx context.Context, category string, limit int) ([]Post, error) {
	all, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, err
	}

	wanted := strings.ToLower(strings.TrimSpace(category))
	matched := make([]Post, 0, len(all))
	for _, post := range all {
		if wanted != "" && strings.ToLower(post.Category) != wanted {
			continue
		}
		matched = append(matched, post)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	normalized := pagination.NormalizeLimit(limit)
	if len(matched) > normalized {
		matched = matched[:normalized]
	}
	return matched, nil
}
