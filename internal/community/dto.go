package community

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-backend/pkg/enums"
)

// Post is a community discussion entry.
type Post struct {
	ID         uuid.UUID  `json:"id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	AuthorName string     `json:"author_name"`
	AuthorRole enums.Role `json:"author_role"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	Tags       []string   `json:"tags"`
	Likes      int        `json:"likes"`
	Replies    int        `json:"replies"`
	Views      int        `json:"views"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CreatePostInput is the validated payload to publish a post.
type CreatePostInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}
