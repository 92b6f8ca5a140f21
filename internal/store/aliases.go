package store

import (
	"context"

	"github.com/google/uuid"
)

func (s *Store) PostIDBySlugAlias(ctx context.Context, ownerID uuid.UUID, oldSlug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT post_id
		FROM slug_aliases
		WHERE owner_id = $1 AND old_slug = $2`, ownerID, oldSlug).Scan(&id)
	if err != nil {
		return uuid.Nil, mapErr(err)
	}
	return id, nil
}

func (s *Store) InsertSlugAlias(ctx context.Context, postID, ownerID uuid.UUID, oldSlug string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO slug_aliases (post_id, owner_id, old_slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, old_slug) DO NOTHING`, postID, ownerID, oldSlug)
	return mapErr(err)
}

// DeleteSlugAlias removes only the alias held by postID. An alias with the
// same old_slug belonging to another post is left in place: it is shadowed
// while the slug is live and becomes reachable again if the slug frees up.
func (s *Store) DeleteSlugAlias(ctx context.Context, postID, ownerID uuid.UUID, oldSlug string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM slug_aliases
		WHERE post_id = $1 AND owner_id = $2 AND old_slug = $3`, postID, ownerID, oldSlug)
	return mapErr(err)
}
