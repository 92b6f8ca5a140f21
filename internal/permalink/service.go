package permalink

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/plumehq/plume/pkg/handle"
	"github.com/plumehq/plume/pkg/markdown"
	"github.com/plumehq/plume/pkg/slug"
)

// Create publishes a new post under the owner's namespace. The title is
// turned into a slug candidate, allocated against the owner's live slugs,
// and committed in a single insert. A uniqueness violation at insert time
// (two concurrent creates with the same base candidate) triggers a bounded
// re-allocation rather than surfacing to the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in NewPost) (Post, error) {
	if ownerID == uuid.Nil {
		return Post{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(in.Title) == "" {
		return Post{}, ErrInvalidTitle
	}

	html, err := markdown.Render(in.Content)
	if err != nil {
		return Post{}, err
	}

	base := slug.Make(in.Title)

	// Creation allocates against live slugs only: a retired slug is free
	// for a new post, and its alias row just goes shadowed.
	check := liveSlugs(s.store, ownerID)
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		candidate, err := s.nextCandidate(ctx, base, attempt, check)
		if err != nil {
			return Post{}, err
		}

		post, err := s.store.CreatePost(ctx, ownerID, candidate, html, in)
		if err == nil {
			return post, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Post{}, err
		}

		s.log.WarnContext(ctx, "slug taken between check and insert, retrying",
			slog.String("owner_id", ownerID.String()),
			slog.String("slug", candidate),
			slog.Int("attempt", attempt+1))
	}

	return Post{}, ErrSlugExhausted
}

// Rename derives a new slug from newTitle and applies it in one
// transaction: ownership check, allocation, alias insert for the retired
// slug, live record update. A rename whose candidate equals the current
// slug updates the title only and writes no alias.
//
// The caller must own the post; a missing post and a foreign post both
// return ErrNotFound.
func (s *Service) Rename(ctx context.Context, ownerID, postID uuid.UUID, newTitle string) (string, error) {
	if ownerID == uuid.Nil {
		return "", ErrNotAuthenticated
	}
	if strings.TrimSpace(newTitle) == "" {
		return "", ErrInvalidTitle
	}

	var newSlug, oldSlug string
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		newSlug, oldSlug, err = s.renameTx(ctx, ownerID, postID, newTitle, attempt)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) {
			return "", err
		}

		s.log.WarnContext(ctx, "slug taken during rename, retrying",
			slog.String("post_id", postID.String()),
			slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return "", ErrSlugExhausted
	}

	s.invalidate(ctx, ownerID, oldSlug, newSlug)
	return newSlug, nil
}

// renameTx runs one rename attempt as a single transaction. All writes
// commit or roll back together, so a failed allocation never leaves a
// partially renamed post behind.
func (s *Service) renameTx(ctx context.Context, ownerID, postID uuid.UUID, newTitle string, attempt int) (newSlug, oldSlug string, err error) {
	err = s.store.InTx(ctx, func(tx Store) error {
		post, err := tx.PostByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.OwnerID != ownerID {
			return ErrNotFound
		}
		oldSlug = post.Slug

		candidate := slug.Make(newTitle)
		if candidate == post.Slug {
			// No-op rename: title and timestamp only, no alias row.
			newSlug = post.Slug
			return tx.UpdatePostSlug(ctx, postID, newTitle, post.Slug)
		}

		// Renames also honor alias history (minus the post's own rows), so
		// a rename cannot silently take over another post's redirect.
		next, err := s.nextCandidate(ctx, candidate, attempt, liveAndRetired(tx, post.OwnerID, post.ID))
		if err != nil {
			return err
		}

		// Retire the old slug first. Insert-or-ignore: a rename back to a
		// previously retired slug, or a concurrent rename racing to record
		// the same retirement, must not fail.
		if err := tx.InsertSlugAlias(ctx, post.ID, post.OwnerID, post.Slug); err != nil {
			return err
		}
		// Reclaiming a slug from our own history: drop the alias row that
		// would otherwise duplicate the new live slug.
		if err := tx.DeleteSlugAlias(ctx, post.ID, post.OwnerID, next); err != nil {
			return err
		}
		if err := tx.UpdatePostSlug(ctx, postID, newTitle, next); err != nil {
			return err
		}
		newSlug = next
		return nil
	})
	return newSlug, oldSlug, err
}

// CheckAvailability reports whether slug is free within the owner's
// namespace. Advisory only: it is never a reservation, and a true result
// guarantees no more than that a concurrent create would fall back to a
// suffixed variant.
func (s *Service) CheckAvailability(ctx context.Context, ownerID uuid.UUID, sl string, excludePost uuid.UUID) (bool, error) {
	if ownerID == uuid.Nil {
		return false, ErrNotAuthenticated
	}
	if !slug.IsValid(sl) {
		return false, ErrInvalidSlug
	}

	inUse, err := s.store.SlugInUse(ctx, ownerID, sl, excludePost)
	if err != nil {
		return false, err
	}
	return !inUse, nil
}

// SuggestSlug returns the slug a create or rename with this title would
// most likely receive. It runs the same allocator with the same attempt
// bound and the same check scope as the authoritative path it previews:
// create scope without excludePost, rename scope with it.
func (s *Service) SuggestSlug(ctx context.Context, ownerID uuid.UUID, title string, excludePost uuid.UUID) (string, error) {
	if ownerID == uuid.Nil {
		return "", ErrNotAuthenticated
	}

	check := liveSlugs(s.store, ownerID)
	if excludePost != uuid.Nil {
		check = liveAndRetired(s.store, ownerID, excludePost)
	}

	base := slug.Make(title)
	out, err := allocate(ctx, check, base)
	if errors.Is(err, ErrSlugExhausted) {
		return randomized(base), nil
	}
	return out, err
}

// UpdateHandle sets the owner's public handle, retiring the previous one
// into the handle alias log when present. Unlike slugs, handles are
// user-chosen: a collision is reported as ErrHandleTaken instead of being
// suffixed away.
func (s *Service) UpdateHandle(ctx context.Context, ownerID uuid.UUID, newHandle string) (Owner, error) {
	if ownerID == uuid.Nil {
		return Owner{}, ErrNotAuthenticated
	}
	if !handle.IsValid(newHandle) {
		return Owner{}, ErrInvalidHandle
	}
	if handle.IsReserved(newHandle) {
		return Owner{}, ErrHandleReserved
	}

	var owner Owner
	var oldHandle string
	err := s.store.InTx(ctx, func(tx Store) error {
		o, err := tx.OwnerByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if o.Handle == newHandle {
			owner = o
			return nil
		}
		oldHandle = o.Handle

		inUse, err := tx.HandleInUse(ctx, newHandle, ownerID)
		if err != nil {
			return err
		}
		if inUse {
			return ErrHandleTaken
		}

		if err := tx.UpdateOwnerHandle(ctx, ownerID, newHandle); err != nil {
			// Lost the race to another owner claiming the same handle.
			if errors.Is(err, ErrConflict) {
				return ErrHandleTaken
			}
			return err
		}
		if oldHandle != "" {
			if err := tx.InsertHandleAlias(ctx, ownerID, oldHandle); err != nil {
				return err
			}
		}
		// Reclaiming a handle from our own history: drop the alias row that
		// would otherwise duplicate the new live handle.
		if err := tx.DeleteHandleAlias(ctx, ownerID, newHandle); err != nil {
			return err
		}

		o.Handle = newHandle
		owner = o
		return nil
	})
	if err != nil {
		return Owner{}, err
	}

	if oldHandle != "" && oldHandle != owner.Handle {
		s.log.InfoContext(ctx, "handle renamed",
			slog.String("owner_id", ownerID.String()),
			slog.String("old_handle", oldHandle),
			slog.String("new_handle", owner.Handle))
	}
	return owner, nil
}

// nextCandidate picks the slug to try on the given insert attempt: the
// allocator's answer first, a random tail once counter suffixes have been
// exhausted or keep losing races.
func (s *Service) nextCandidate(ctx context.Context, base string, attempt int, inUse slugCheck) (string, error) {
	if attempt >= conflictRetries {
		return randomized(base), nil
	}
	out, err := allocate(ctx, inUse, base)
	if errors.Is(err, ErrSlugExhausted) {
		return randomized(base), nil
	}
	return out, err
}

// invalidate drops cached live-post entries for the given slugs.
func (s *Service) invalidate(ctx context.Context, ownerID uuid.UUID, slugs ...string) {
	for _, sl := range slugs {
		if sl == "" {
			continue
		}
		if err := s.posts.Delete(ctx, postCacheKey(ownerID, sl)); err != nil {
			s.log.WarnContext(ctx, "cache invalidation failed",
				slog.String("slug", sl), slog.String("error", err.Error()))
		}
	}
}
