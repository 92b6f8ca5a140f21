package permalink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ResolveOwner maps a handle to its live owner. A retired handle resolves
// through the alias log in one hop and reports a redirect to the current
// handle. Read-only; safe to call without a transaction.
func (s *Service) ResolveOwner(ctx context.Context, h string) (*Owner, *Redirect, error) {
	owner, err := s.store.OwnerByHandle(ctx, h)
	if err == nil {
		return &owner, nil, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	ownerID, err := s.store.OwnerIDByHandleAlias(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	owner, err = s.store.OwnerByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	return nil, &Redirect{Handle: owner.Ref()}, nil
}

// ResolveContent maps (ownerRef, slug) to the live post or a redirect to
// its canonical location. ownerRef is a handle or an opaque owner id.
//
// The live lookup runs before the alias lookup. That ordering is a load-
// bearing invariant: it is what makes an alias row shadowed by an
// identical live slug unreachable instead of ambiguous.
//
// Aliases store post ids and the post's current slug is read fresh here,
// so any number of renames collapses to a single redirect hop.
func (s *Service) ResolveContent(ctx context.Context, ownerRef, sl string) (*Post, *Redirect, error) {
	owner, moved, err := s.resolveOwnerRef(ctx, ownerRef)
	if err != nil {
		return nil, nil, err
	}

	post, err := s.livePost(ctx, owner.ID, sl)
	if err == nil {
		if moved {
			// Slug is current but the handle in the URL is retired.
			return nil, &Redirect{Handle: owner.Ref(), Slug: sl}, nil
		}
		return &post, nil, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	postID, err := s.store.PostIDBySlugAlias(ctx, owner.ID, sl)
	if err != nil {
		return nil, nil, err
	}
	current, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return nil, &Redirect{Handle: owner.Ref(), Slug: current.Slug}, nil
}

// Locate returns the canonical location of a post by id. Serves the legacy
// id routes, which redirect temporarily rather than permanently: the id is
// not a retired identifier, just a non-canonical one.
func (s *Service) Locate(ctx context.Context, postID uuid.UUID) (Redirect, error) {
	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return Redirect{}, err
	}
	owner, err := s.store.OwnerByID(ctx, post.OwnerID)
	if err != nil {
		return Redirect{}, err
	}
	return Redirect{Handle: owner.Ref(), Slug: post.Slug}, nil
}

// resolveOwnerRef turns a handle or owner id into a live owner. moved is
// true when the ref was a retired handle.
func (s *Service) resolveOwnerRef(ctx context.Context, ref string) (Owner, bool, error) {
	if id, err := uuid.Parse(ref); err == nil {
		owner, err := s.store.OwnerByID(ctx, id)
		return owner, false, err
	}

	owner, err := s.store.OwnerByHandle(ctx, ref)
	if err == nil {
		return owner, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Owner{}, false, err
	}

	ownerID, err := s.store.OwnerIDByHandleAlias(ctx, ref)
	if err != nil {
		return Owner{}, false, err
	}
	owner, err = s.store.OwnerByID(ctx, ownerID)
	return owner, true, err
}

// livePost reads a live post by (owner, slug), consulting the cache first.
func (s *Service) livePost(ctx context.Context, ownerID uuid.UUID, sl string) (Post, error) {
	key := postCacheKey(ownerID, sl)

	if post, err := s.posts.Get(ctx, key); err == nil {
		return post, nil
	}

	post, err := s.store.PostByOwnerSlug(ctx, ownerID, sl)
	if err != nil {
		return Post{}, err
	}

	if err := s.posts.Set(ctx, key, post, 0); err != nil {
		s.log.WarnContext(ctx, "cache set failed",
			slog.String("slug", sl), slog.String("error", err.Error()))
	}
	return post, nil
}

func postCacheKey(ownerID uuid.UUID, sl string) string {
	return ownerID.String() + ":" + sl
}
