package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/plumehq/plume/internal/permalink"
)

func (s *Store) CreateOwner(ctx context.Context) (permalink.Owner, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO owners DEFAULT VALUES
		RETURNING id, handle, created_at, updated_at`)
	return scanOwner(row)
}

func (s *Store) OwnerByID(ctx context.Context, id uuid.UUID) (permalink.Owner, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, handle, created_at, updated_at
		FROM owners
		WHERE id = $1`, id)
	return scanOwner(row)
}

func (s *Store) OwnerByHandle(ctx context.Context, handle string) (permalink.Owner, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, handle, created_at, updated_at
		FROM owners
		WHERE handle = $1`, handle)
	return scanOwner(row)
}

func (s *Store) UpdateOwnerHandle(ctx context.Context, id uuid.UUID, handle string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE owners
		SET handle = $2, updated_at = now()
		WHERE id = $1`, id, handle)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return permalink.ErrNotFound
	}
	return nil
}

// HandleInUse checks live handles and the alias log, skipping the excluded
// owner's own rows so it can reclaim handles from its history.
func (s *Store) HandleInUse(ctx context.Context, handle string, excludeOwner uuid.UUID) (bool, error) {
	var inUse bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM owners WHERE handle = $1 AND id <> $2
		) OR EXISTS (
			SELECT 1 FROM handle_aliases WHERE old_handle = $1 AND owner_id <> $2
		)`, handle, excludeOwner).Scan(&inUse)
	if err != nil {
		return false, mapErr(err)
	}
	return inUse, nil
}

func (s *Store) OwnerIDByHandleAlias(ctx context.Context, oldHandle string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		SELECT owner_id
		FROM handle_aliases
		WHERE old_handle = $1`, oldHandle).Scan(&id)
	if err != nil {
		return uuid.Nil, mapErr(err)
	}
	return id, nil
}

func (s *Store) InsertHandleAlias(ctx context.Context, ownerID uuid.UUID, oldHandle string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO handle_aliases (owner_id, old_handle)
		VALUES ($1, $2)
		ON CONFLICT (old_handle) DO NOTHING`, ownerID, oldHandle)
	return mapErr(err)
}

func (s *Store) DeleteHandleAlias(ctx context.Context, ownerID uuid.UUID, oldHandle string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM handle_aliases
		WHERE owner_id = $1 AND old_handle = $2`, ownerID, oldHandle)
	return mapErr(err)
}

func scanOwner(row rowScanner) (permalink.Owner, error) {
	var o permalink.Owner
	var handle *string
	if err := row.Scan(&o.ID, &handle, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return permalink.Owner{}, mapErr(err)
	}
	if handle != nil {
		o.Handle = *handle
	}
	return o, nil
}

// rowScanner matches pgx.Row; declared here so scan helpers stay decoupled
// from the driver type.
type rowScanner interface {
	Scan(dest ...any) error
}
