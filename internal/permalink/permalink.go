// Package permalink owns the platform's identifier contract: slug
// allocation, rename transactions, handle changes, and the canonical
// resolver that turns retired identifiers into redirects.
//
// The package is written against the Store interface; the pgx-backed
// implementation lives in internal/store, and MemStore provides an
// in-memory implementation for tests.
package permalink

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/plumehq/plume/internal/cache"
	"github.com/plumehq/plume/pkg/logger"
)

// Owner is an account that owns posts. Handle is empty until onboarding
// sets one.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	Handle    string    `json:"handle,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref returns the owner's public reference: the handle when set, the
// opaque id otherwise.
func (o Owner) Ref() string {
	if o.Handle != "" {
		return o.Handle
	}
	return o.ID.String()
}

// Post is a live content item. (OwnerID, Slug) is unique among an owner's
// live posts, enforced by the storage layer.
type Post struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Body      string    `json:"body"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPost carries the caller-supplied fields for post creation.
type NewPost struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Content  string `json:"content"`
}

// Redirect is the canonical location of a moved identifier. Slug is empty
// for owner-level resolution.
type Redirect struct {
	Handle string `json:"handle"`
	Slug   string `json:"slug,omitempty"`
}

// Store is the persistence boundary the permalink service runs against.
//
// Implementations must report uniqueness violations as ErrConflict and
// missing rows as ErrNotFound, and must make the alias inserts
// conflict-tolerant (insert-or-ignore), since concurrent renames can race
// to record the same retired value.
type Store interface {
	// InTx runs fn against a transaction-bound view of the store. All
	// writes inside fn commit or roll back together.
	InTx(ctx context.Context, fn func(Store) error) error

	CreateOwner(ctx context.Context) (Owner, error)
	OwnerByID(ctx context.Context, id uuid.UUID) (Owner, error)
	OwnerByHandle(ctx context.Context, handle string) (Owner, error)
	// UpdateOwnerHandle returns ErrConflict when the handle is already
	// held by another owner.
	UpdateOwnerHandle(ctx context.Context, id uuid.UUID, handle string) error
	// HandleInUse checks live handles and handle aliases, skipping rows
	// belonging to excludeOwner so an owner can reclaim its own history.
	HandleInUse(ctx context.Context, handle string, excludeOwner uuid.UUID) (bool, error)
	OwnerIDByHandleAlias(ctx context.Context, oldHandle string) (uuid.UUID, error)
	InsertHandleAlias(ctx context.Context, ownerID uuid.UUID, oldHandle string) error
	DeleteHandleAlias(ctx context.Context, ownerID uuid.UUID, oldHandle string) error

	// CreatePost returns ErrConflict when (owner, slug) is already live.
	CreatePost(ctx context.Context, ownerID uuid.UUID, slug, html string, in NewPost) (Post, error)
	PostByID(ctx context.Context, id uuid.UUID) (Post, error)
	PostByOwnerSlug(ctx context.Context, ownerID uuid.UUID, slug string) (Post, error)
	// UpdatePostSlug sets the post's title, slug, and modification time.
	// Returns ErrConflict when the slug is live for another post.
	UpdatePostSlug(ctx context.Context, id uuid.UUID, title, slug string) error
	// SlugInUse checks live slugs (minus excludePost) and the owner's
	// alias history.
	SlugInUse(ctx context.Context, ownerID uuid.UUID, slug string, excludePost uuid.UUID) (bool, error)
	// LiveSlugInUse checks the owner's live slugs only. The create path
	// allocates against this scope, so retired slugs can be taken again.
	LiveSlugInUse(ctx context.Context, ownerID uuid.UUID, slug string) (bool, error)
	PostIDBySlugAlias(ctx context.Context, ownerID uuid.UUID, oldSlug string) (uuid.UUID, error)
	InsertSlugAlias(ctx context.Context, postID, ownerID uuid.UUID, oldSlug string) error
	// DeleteSlugAlias removes only the alias owned by postID, so a
	// shadowed alias of another post survives and becomes reachable again
	// if the slug is later freed.
	DeleteSlugAlias(ctx context.Context, postID, ownerID uuid.UUID, oldSlug string) error
}

// Service implements the permalink operations on top of a Store.
type Service struct {
	store Store
	posts *cache.Cache[Post]
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables caching of live post lookups on the resolver path.
func WithCache(c *cache.Cache[Post]) Option {
	return func(s *Service) {
		s.posts = c
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// New creates a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
