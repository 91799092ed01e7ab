package community

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
	"github.com/agrilink/agrilink-backend/pkg/kv"
)

const (
	postPrefix     = "community_post:"
	userPostPrefix = "user_post:"
)

func postKey(id uuid.UUID) string { return postPrefix + id.String() }

func userPostKey(userID, postID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", userPostPrefix, userID, postID)
}

type indexEntry struct {
	PostID uuid.UUID `json:"post_id"`
}

// Repository persists community posts through the key-value store.
type Repository struct {
	store kv.Store
}

// NewRepository wires the repository to its store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Save writes the post and the author's index entry.
func (r *Repository) Save(ctx context.Context, post *Post) error {
	if err := r.store.Set(ctx, postKey(post.ID), post); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save post")
	}
	if err := r.store.Set(ctx, userPostKey(post.AuthorID, post.ID), indexEntry{PostID: post.ID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: save post index")
	}
	return nil
}

// Scan returns every stored post. Order is unspecified.
func (r *Repository) Scan(ctx context.Context) ([]Post, error) {
	raws, err := r.store.GetByPrefix(ctx, postPrefix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "kv: scan posts")
	}
	out := make([]Post, 0, len(raws))
	for _, raw := range raws {
		var post Post
		if err := json.Unmarshal(raw, &post); err != nil {
			continue
		}
		out = append(out, post)
	}
	return out, nil
}
