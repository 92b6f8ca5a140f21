package permalink_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/plumehq/plume/internal/permalink"
	"github.com/plumehq/plume/pkg/slug"
)

func newTestService(t *testing.T) (*permalink.Service, *permalink.MemStore) {
	t.Helper()
	st := permalink.NewMemStore()
	return permalink.New(st), st
}

func createOwner(t *testing.T, st *permalink.MemStore) permalink.Owner {
	t.Helper()
	owner, err := st.CreateOwner(context.Background())
	require.NoError(t, err)
	return owner
}

func TestCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("derives slug from title", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Hello, World!!"})
		require.NoError(t, err)
		require.Equal(t, "hello-world", post.Slug)
		require.Equal(t, owner.ID, post.OwnerID)
	})

	t.Run("renders body to sanitized html", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{
			Title:   "Formatting",
			Content: "Some **bold** text <script>alert(1)</script>",
		})
		require.NoError(t, err)
		require.Contains(t, post.HTML, "<strong>bold</strong>")
		require.NotContains(t, post.HTML, "<script>")
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		_, err := svc.Create(ctx, uuid.Nil, permalink.NewPost{Title: "Hi"})
		require.ErrorIs(t, err, permalink.ErrNotAuthenticated)
	})

	t.Run("requires a title", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "   "})
		require.ErrorIs(t, err, permalink.ErrInvalidTitle)
	})

	t.Run("same title gets counter suffix", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		first, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		second, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		third, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		require.Equal(t, "my-trip", first.Slug)
		require.Equal(t, "my-trip-2", second.Slug)
		require.Equal(t, "my-trip-3", third.Slug)
	})

	t.Run("retired slug is free for a new post", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		first, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		_, err = svc.Rename(ctx, owner.ID, first.ID, "Our Trip")
		require.NoError(t, err)

		// Creation checks live slugs only; the alias row for "my-trip" goes
		// shadowed rather than blocking the new post.
		second, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		require.Equal(t, "my-trip", second.Slug)

		got, redirect, err := svc.ResolveContent(ctx, owner.ID.String(), "my-trip")
		require.NoError(t, err)
		require.Nil(t, redirect)
		require.Equal(t, second.ID, got.ID, "the live slug wins over the shadowed alias")
	})

	t.Run("same title under different owners does not collide", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		a := createOwner(t, st)
		b := createOwner(t, st)

		pa, err := svc.Create(ctx, a.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		pb, err := svc.Create(ctx, b.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		require.Equal(t, "my-trip", pa.Slug)
		require.Equal(t, "my-trip", pb.Slug)
	})

	t.Run("long title keeps suffixed slug within limit", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		title := strings.Repeat("word ", 20) // well past 50 chars

		first, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: title})
		require.NoError(t, err)
		second, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: title})
		require.NoError(t, err)

		require.LessOrEqual(t, len(second.Slug), slug.MaxLength)
		require.True(t, slug.IsValid(second.Slug))
		require.NotEqual(t, first.Slug, second.Slug)
	})

	t.Run("retries when insert loses the race", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		// Pre-check passes but the insert hits the unique constraint, as if
		// a concurrent create committed in between.
		st.InjectConflicts(1)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		require.Equal(t, "my-trip", post.Slug)
	})

	t.Run("falls back to random tail after repeated conflicts", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		st.InjectConflicts(3)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(post.Slug, "my-trip-"))
		require.True(t, slug.IsValid(post.Slug))
	})

	t.Run("exhausted retry budget surfaces error", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		st.InjectConflicts(100)
		_, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.ErrorIs(t, err, permalink.ErrSlugExhausted)
	})
}

func TestCreateConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	owner := createOwner(t, st)

	const writers = 8
	results := make([]permalink.Post, writers)

	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Same Title"})
			if err != nil {
				return err
			}
			results[i] = post
			return nil
		})
	}
	require.NoError(t, g.Wait(), "a create racing on the same candidate must not fail")

	seen := make(map[string]bool, writers)
	for _, post := range results {
		require.True(t, slug.IsValid(post.Slug))
		require.False(t, seen[post.Slug], "slug %q allocated twice", post.Slug)
		seen[post.Slug] = true
	}
}

func TestRename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("retires old slug and applies new one", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		newSlug, err := svc.Rename(ctx, owner.ID, post.ID, "Our Trip")
		require.NoError(t, err)
		require.Equal(t, "our-trip", newSlug)

		updated, err := st.PostByID(ctx, post.ID)
		require.NoError(t, err)
		require.Equal(t, "our-trip", updated.Slug)
		require.Equal(t, "Our Trip", updated.Title)

		aliased, err := st.PostIDBySlugAlias(ctx, owner.ID, "my-trip")
		require.NoError(t, err)
		require.Equal(t, post.ID, aliased)
	})

	t.Run("no-op rename writes no alias", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		newSlug, err := svc.Rename(ctx, owner.ID, post.ID, "My Trip!")
		require.NoError(t, err)
		require.Equal(t, "my-trip", newSlug, "same candidate keeps the slug")

		_, err = st.PostIDBySlugAlias(ctx, owner.ID, "my-trip")
		require.ErrorIs(t, err, permalink.ErrNotFound)

		updated, err := st.PostByID(ctx, post.ID)
		require.NoError(t, err)
		require.Equal(t, "My Trip!", updated.Title, "title still updates")
	})

	t.Run("missing post and foreign post are indistinguishable", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		stranger := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Mine"})
		require.NoError(t, err)

		_, err = svc.Rename(ctx, stranger.ID, post.ID, "Stolen")
		require.ErrorIs(t, err, permalink.ErrNotFound)

		_, err = svc.Rename(ctx, owner.ID, uuid.New(), "Ghost")
		require.ErrorIs(t, err, permalink.ErrNotFound)
	})

	t.Run("rename back reclaims retired slug", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		_, err = svc.Rename(ctx, owner.ID, post.ID, "Our Trip")
		require.NoError(t, err)

		back, err := svc.Rename(ctx, owner.ID, post.ID, "My Trip")
		require.NoError(t, err)
		require.Equal(t, "my-trip", back, "own alias must not block reclaiming")

		// The reclaimed slug's stale alias row is gone; the live slug wins.
		_, err = st.PostIDBySlugAlias(ctx, owner.ID, "my-trip")
		require.ErrorIs(t, err, permalink.ErrNotFound)

		// And the intermediate slug still redirects.
		aliased, err := st.PostIDBySlugAlias(ctx, owner.ID, "our-trip")
		require.NoError(t, err)
		require.Equal(t, post.ID, aliased)
	})

	t.Run("allocates around another live post", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		first, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		second, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Another"})
		require.NoError(t, err)

		newSlug, err := svc.Rename(ctx, owner.ID, second.ID, "My Trip")
		require.NoError(t, err)
		require.Equal(t, "my-trip-2", newSlug)

		kept, err := st.PostByID(ctx, first.ID)
		require.NoError(t, err)
		require.Equal(t, "my-trip", kept.Slug)
	})

	t.Run("another post's retired slug stays blocked", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		first, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		_, err = svc.Rename(ctx, owner.ID, first.ID, "Our Trip")
		require.NoError(t, err)
		second, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Another"})
		require.NoError(t, err)

		// Unlike create, rename honors alias history: taking over "my-trip"
		// would hijack the first post's redirect.
		newSlug, err := svc.Rename(ctx, owner.ID, second.ID, "My Trip")
		require.NoError(t, err)
		require.Equal(t, "my-trip-2", newSlug)

		aliased, err := st.PostIDBySlugAlias(ctx, owner.ID, "my-trip")
		require.NoError(t, err)
		require.Equal(t, first.ID, aliased)
	})

	t.Run("retries when update loses the race", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		st.InjectConflicts(1)
		newSlug, err := svc.Rename(ctx, owner.ID, post.ID, "Our Trip")
		require.NoError(t, err)
		require.Equal(t, "our-trip", newSlug)
	})

	t.Run("failed rename leaves no partial state", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		st.InjectConflicts(100)
		_, err = svc.Rename(ctx, owner.ID, post.ID, "Our Trip")
		require.ErrorIs(t, err, permalink.ErrSlugExhausted)

		// The transaction rolled back: live slug unchanged, no alias row.
		unchanged, err := st.PostByID(ctx, post.ID)
		require.NoError(t, err)
		require.Equal(t, "my-trip", unchanged.Slug)
		_, err = st.PostIDBySlugAlias(ctx, owner.ID, "my-trip")
		require.ErrorIs(t, err, permalink.ErrNotFound)
	})
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("free, live, and retired slugs", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)
		_, err = svc.Rename(ctx, owner.ID, post.ID, "Our Trip")
		require.NoError(t, err)

		free, err := svc.CheckAvailability(ctx, owner.ID, "fresh-slug", uuid.Nil)
		require.NoError(t, err)
		require.True(t, free)

		live, err := svc.CheckAvailability(ctx, owner.ID, "our-trip", uuid.Nil)
		require.NoError(t, err)
		require.False(t, live, "live slug is taken")

		retired, err := svc.CheckAvailability(ctx, owner.ID, "my-trip", uuid.Nil)
		require.NoError(t, err)
		require.False(t, retired, "retired slug is taken")
	})

	t.Run("excludes the post being edited", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)
		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		ok, err := svc.CheckAvailability(ctx, owner.ID, "my-trip", post.ID)
		require.NoError(t, err)
		require.True(t, ok, "a post does not collide with itself")
	})

	t.Run("rejects malformed slugs", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.CheckAvailability(ctx, owner.ID, "Not A Slug", uuid.Nil)
		require.ErrorIs(t, err, permalink.ErrInvalidSlug)
	})

	t.Run("available implies create cannot fail on the race alone", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		ok, err := svc.CheckAvailability(ctx, owner.ID, "my-trip", uuid.Nil)
		require.NoError(t, err)
		require.True(t, ok)

		// Another writer takes the slug between check and create.
		_, err = svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err)

		post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
		require.NoError(t, err, "create degrades to a suffixed slug, never a hard failure")
		require.Equal(t, "my-trip-2", post.Slug)
	})
}

func TestSuggestSlug(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTestService(t)
	owner := createOwner(t, st)

	got, err := svc.SuggestSlug(ctx, owner.ID, "My Trip", uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "my-trip", got)

	_, err = svc.Create(ctx, owner.ID, permalink.NewPost{Title: "My Trip"})
	require.NoError(t, err)

	got, err = svc.SuggestSlug(ctx, owner.ID, "My Trip", uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "my-trip-2", got, "suggestion mirrors what the create path would allocate")

	post, err := svc.Create(ctx, owner.ID, permalink.NewPost{Title: "Old Name"})
	require.NoError(t, err)
	_, err = svc.Rename(ctx, owner.ID, post.ID, "New Name")
	require.NoError(t, err)

	got, err = svc.SuggestSlug(ctx, owner.ID, "Old Name", uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, "old-name", got, "create previews use the live-only scope")

	got, err = svc.SuggestSlug(ctx, owner.ID, "My Trip", post.ID)
	require.NoError(t, err)
	require.Equal(t, "my-trip-2", got, "rename previews honor alias history")
}

func TestUpdateHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("sets initial handle", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		updated, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		require.Equal(t, "jane_doe", updated.Handle)

		// First set retires nothing.
		_, err = st.OwnerIDByHandleAlias(ctx, "jane_doe")
		require.ErrorIs(t, err, permalink.ErrNotFound)
	})

	t.Run("validates format and reserved words", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, owner.ID, "No")
		require.ErrorIs(t, err, permalink.ErrInvalidHandle)

		_, err = svc.UpdateHandle(ctx, owner.ID, "admin")
		require.ErrorIs(t, err, permalink.ErrHandleReserved)
	})

	t.Run("rejects a handle held by another owner", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		a := createOwner(t, st)
		b := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, a.ID, "jane_doe")
		require.NoError(t, err)

		_, err = svc.UpdateHandle(ctx, b.ID, "jane_doe")
		require.ErrorIs(t, err, permalink.ErrHandleTaken)
	})

	t.Run("rejects another owner's retired handle", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		a := createOwner(t, st)
		b := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, a.ID, "jane_doe")
		require.NoError(t, err)
		_, err = svc.UpdateHandle(ctx, a.ID, "jane_writes")
		require.NoError(t, err)

		_, err = svc.UpdateHandle(ctx, b.ID, "jane_doe")
		require.ErrorIs(t, err, permalink.ErrHandleTaken, "retired handles keep redirecting, they are not recycled")
	})

	t.Run("rename retires the old handle", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		updated, err := svc.UpdateHandle(ctx, owner.ID, "jane_writes")
		require.NoError(t, err)
		require.Equal(t, "jane_writes", updated.Handle)

		aliasOwner, err := st.OwnerIDByHandleAlias(ctx, "jane_doe")
		require.NoError(t, err)
		require.Equal(t, owner.ID, aliasOwner)
	})

	t.Run("rename back reclaims own retired handle", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		_, err = svc.UpdateHandle(ctx, owner.ID, "jane_writes")
		require.NoError(t, err)

		updated, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		require.Equal(t, "jane_doe", updated.Handle)

		// The reclaimed handle's alias row is gone, the other direction stays.
		_, err = st.OwnerIDByHandleAlias(ctx, "jane_doe")
		require.ErrorIs(t, err, permalink.ErrNotFound)
		aliasOwner, err := st.OwnerIDByHandleAlias(ctx, "jane_writes")
		require.NoError(t, err)
		require.Equal(t, owner.ID, aliasOwner)
	})

	t.Run("setting the same handle is a no-op", func(t *testing.T) {
		t.Parallel()

		svc, st := newTestService(t)
		owner := createOwner(t, st)

		_, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		updated, err := svc.UpdateHandle(ctx, owner.ID, "jane_doe")
		require.NoError(t, err)
		require.Equal(t, "jane_doe", updated.Handle)

		_, err = st.OwnerIDByHandleAlias(ctx, "jane_doe")
		require.ErrorIs(t, err, permalink.ErrNotFound, "no self-alias written")
	})
}
