package permalink

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/plumehq/plume/pkg/slug"
)

// maxAllocationAttempts bounds the suffix search. One shared constant for
// the transactional path and the advisory availability check: a tighter
// advisory bound would reject slugs the authoritative path still accepts.
const maxAllocationAttempts = 1000

// conflictRetries bounds insert retries after a storage-level uniqueness
// violation slipped past the pre-check. The first retries re-run the
// allocator against fresh state; the last falls back to a random tail.
const conflictRetries = 3

// slugCheck reports whether a slug is taken within an owner's namespace.
// The two scopes below decide what "taken" means for a given operation.
type slugCheck func(ctx context.Context, slug string) (bool, error)

// liveSlugs is the create-path scope: only the owner's live posts count.
// A retired slug sitting in the alias log is free to take; its alias row
// becomes shadowed, which the resolver's live-first ordering keeps safe.
func liveSlugs(st Store, ownerID uuid.UUID) slugCheck {
	return func(ctx context.Context, sl string) (bool, error) {
		return st.LiveSlugInUse(ctx, ownerID, sl)
	}
}

// liveAndRetired is the rename scope: live posts plus the owner's alias
// history, minus rows belonging to excludePost so a post can reclaim slugs
// from its own past.
func liveAndRetired(st Store, ownerID, excludePost uuid.UUID) slugCheck {
	return func(ctx context.Context, sl string) (bool, error) {
		return st.SlugInUse(ctx, ownerID, sl, excludePost)
	}
}

// allocate finds a slug the given check reports as free. The check is an
// optimization only; the unique index is the real enforcement point, and
// callers must treat an ErrConflict on insert as a signal to retry.
func allocate(ctx context.Context, inUse slugCheck, candidate string) (string, error) {
	taken, err := inUse(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	for n := 2; n <= maxAllocationAttempts; n++ {
		next := slug.Append(candidate, strconv.Itoa(n))
		taken, err := inUse(ctx, next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}

	return "", ErrSlugExhausted
}

// randomized returns the candidate with a random base36 tail, used as the
// fallback once counter suffixes are exhausted or keep colliding.
func randomized(candidate string) string {
	return slug.Append(candidate, slug.RandomSuffix(6))
}
