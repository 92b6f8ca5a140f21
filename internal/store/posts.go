package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/plumehq/plume/internal/permalink"
)

func (s *Store) CreatePost(ctx context.Context, ownerID uuid.UUID, slug, html string, in permalink.NewPost) (permalink.Post, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (owner_id, slug, title, subtitle, body, html)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, owner_id, slug, title, subtitle, body, html, created_at, updated_at`,
		ownerID, slug, in.Title, in.Subtitle, in.Content, html)
	return scanPost(row)
}

func (s *Store) PostByID(ctx context.Context, id uuid.UUID) (permalink.Post, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, slug, title, subtitle, body, html, created_at, updated_at
		FROM posts
		WHERE id = $1`, id)
	return scanPost(row)
}

func (s *Store) PostByOwnerSlug(ctx context.Context, ownerID uuid.UUID, slug string) (permalink.Post, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, slug, title, subtitle, body, html, created_at, updated_at
		FROM posts
		WHERE owner_id = $1 AND slug = $2`, ownerID, slug)
	return scanPost(row)
}

func (s *Store) UpdatePostSlug(ctx context.Context, id uuid.UUID, title, slug string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, updated_at = now()
		WHERE id = $1`, id, title, slug)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return permalink.ErrNotFound
	}
	return nil
}

// SlugInUse checks the owner's live slugs and alias history. Rows belonging
// to excludePost are skipped in both, which is what allows a post to rename
// back to a slug from its own history.
func (s *Store) SlugInUse(ctx context.Context, ownerID uuid.UUID, slug string, excludePost uuid.UUID) (bool, error) {
	var inUse bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM posts WHERE owner_id = $1 AND slug = $2 AND id <> $3
		) OR EXISTS (
			SELECT 1 FROM slug_aliases WHERE owner_id = $1 AND old_slug = $2 AND post_id <> $3
		)`, ownerID, slug, excludePost).Scan(&inUse)
	if err != nil {
		return false, mapErr(err)
	}
	return inUse, nil
}

// LiveSlugInUse checks live posts only. The create path allocates against
// this scope, so a retired slug can become live again for a new post.
func (s *Store) LiveSlugInUse(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error) {
	var inUse bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM posts WHERE owner_id = $1 AND slug = $2
		)`, ownerID, slug).Scan(&inUse)
	if err != nil {
		return false, mapErr(err)
	}
	return inUse, nil
}

func scanPost(row rowScanner) (permalink.Post, error) {
	var p permalink.Post
	err := row.Scan(&p.ID, &p.OwnerID, &p.Slug, &p.Title, &p.Subtitle, &p.Body, &p.HTML, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return permalink.Post{}, mapErr(err)
	}
	return p, nil
}
