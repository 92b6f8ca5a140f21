package permalink

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests and local development. It
// mirrors the storage contract of the pgx implementation: uniqueness
// checks report ErrConflict, alias inserts are insert-or-ignore, and InTx
// rolls written state back when fn fails.
type MemStore struct {
	mu   sync.Mutex
	data *memData
	// tx marks a transaction-bound view; the root holds the lock for the
	// whole transaction.
	tx bool
}

type memData struct {
	owners        map[uuid.UUID]Owner
	posts         map[uuid.UUID]Post
	slugAliases   map[uuid.UUID]map[string]uuid.UUID // owner -> old slug -> post
	handleAliases map[string]uuid.UUID               // old handle -> owner

	// injectConflicts forces the next n unique-index writes to fail with
	// ErrConflict, simulating lost races for the retry-path tests.
	injectConflicts int
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		data: &memData{
			owners:        make(map[uuid.UUID]Owner),
			posts:         make(map[uuid.UUID]Post),
			slugAliases:   make(map[uuid.UUID]map[string]uuid.UUID),
			handleAliases: make(map[string]uuid.UUID),
		},
	}
}

// InjectConflicts makes the next n unique-index writes fail with
// ErrConflict, as if a concurrent writer won the race after the pre-check.
func (m *MemStore) InjectConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.injectConflicts = n
}

func (m *MemStore) InTx(_ context.Context, fn func(Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&MemStore{data: m.data, tx: true}); err != nil {
		// Roll back data but not the injection counter: a consumed forced
		// conflict stays consumed, like a real lost race.
		remaining := m.data.injectConflicts
		*m.data = *snapshot
		m.data.injectConflicts = remaining
		return err
	}
	return nil
}

func (m *MemStore) lock() func() {
	if m.tx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemStore) CreateOwner(context.Context) (Owner, error) {
	defer m.lock()()

	now := time.Now()
	o := Owner{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	m.data.owners[o.ID] = o
	return o, nil
}

func (m *MemStore) OwnerByID(_ context.Context, id uuid.UUID) (Owner, error) {
	defer m.lock()()

	o, ok := m.data.owners[id]
	if !ok {
		return Owner{}, ErrNotFound
	}
	return o, nil
}

func (m *MemStore) OwnerByHandle(_ context.Context, handle string) (Owner, error) {
	defer m.lock()()

	for _, o := range m.data.owners {
		if o.Handle == handle && handle != "" {
			return o, nil
		}
	}
	return Owner{}, ErrNotFound
}

func (m *MemStore) UpdateOwnerHandle(_ context.Context, id uuid.UUID, handle string) error {
	defer m.lock()()

	o, ok := m.data.owners[id]
	if !ok {
		return ErrNotFound
	}
	if m.data.takeConflict() {
		return ErrConflict
	}
	for _, other := range m.data.owners {
		if other.ID != id && other.Handle == handle {
			return ErrConflict
		}
	}
	o.Handle = handle
	o.UpdatedAt = time.Now()
	m.data.owners[id] = o
	return nil
}

func (m *MemStore) HandleInUse(_ context.Context, handle string, excludeOwner uuid.UUID) (bool, error) {
	defer m.lock()()

	for _, o := range m.data.owners {
		if o.Handle == handle && o.ID != excludeOwner {
			return true, nil
		}
	}
	if ownerID, ok := m.data.handleAliases[handle]; ok && ownerID != excludeOwner {
		return true, nil
	}
	return false, nil
}

func (m *MemStore) OwnerIDByHandleAlias(_ context.Context, oldHandle string) (uuid.UUID, error) {
	defer m.lock()()

	id, ok := m.data.handleAliases[oldHandle]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (m *MemStore) InsertHandleAlias(_ context.Context, ownerID uuid.UUID, oldHandle string) error {
	defer m.lock()()

	if _, exists := m.data.handleAliases[oldHandle]; exists {
		return nil // insert-or-ignore
	}
	m.data.handleAliases[oldHandle] = ownerID
	return nil
}

func (m *MemStore) DeleteHandleAlias(_ context.Context, ownerID uuid.UUID, oldHandle string) error {
	defer m.lock()()

	if id, ok := m.data.handleAliases[oldHandle]; ok && id == ownerID {
		delete(m.data.handleAliases, oldHandle)
	}
	return nil
}

func (m *MemStore) CreatePost(_ context.Context, ownerID uuid.UUID, slug, html string, in NewPost) (Post, error) {
	defer m.lock()()

	if _, ok := m.data.owners[ownerID]; !ok {
		return Post{}, ErrNotFound
	}
	if m.data.takeConflict() {
		return Post{}, ErrConflict
	}
	for _, p := range m.data.posts {
		if p.OwnerID == ownerID && p.Slug == slug {
			return Post{}, ErrConflict
		}
	}

	now := time.Now()
	post := Post{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Slug:      slug,
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		Body:      in.Content,
		HTML:      html,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.data.posts[post.ID] = post
	return post, nil
}

func (m *MemStore) PostByID(_ context.Context, id uuid.UUID) (Post, error) {
	defer m.lock()()

	p, ok := m.data.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (m *MemStore) PostByOwnerSlug(_ context.Context, ownerID uuid.UUID, slug string) (Post, error) {
	defer m.lock()()

	for _, p := range m.data.posts {
		if p.OwnerID == ownerID && p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func (m *MemStore) UpdatePostSlug(_ context.Context, id uuid.UUID, title, slug string) error {
	defer m.lock()()

	p, ok := m.data.posts[id]
	if !ok {
		return ErrNotFound
	}
	if m.data.takeConflict() {
		return ErrConflict
	}
	for _, other := range m.data.posts {
		if other.ID != id && other.OwnerID == p.OwnerID && other.Slug == slug {
			return ErrConflict
		}
	}
	p.Title = title
	p.Slug = slug
	p.UpdatedAt = time.Now()
	m.data.posts[id] = p
	return nil
}

func (m *MemStore) SlugInUse(_ context.Context, ownerID uuid.UUID, slug string, excludePost uuid.UUID) (bool, error) {
	defer m.lock()()

	for _, p := range m.data.posts {
		if p.OwnerID == ownerID && p.Slug == slug && p.ID != excludePost {
			return true, nil
		}
	}
	if postID, ok := m.data.slugAliases[ownerID][slug]; ok && postID != excludePost {
		return true, nil
	}
	return false, nil
}

func (m *MemStore) LiveSlugInUse(_ context.Context, ownerID uuid.UUID, slug string) (bool, error) {
	defer m.lock()()

	for _, p := range m.data.posts {
		if p.OwnerID == ownerID && p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) PostIDBySlugAlias(_ context.Context, ownerID uuid.UUID, oldSlug string) (uuid.UUID, error) {
	defer m.lock()()

	id, ok := m.data.slugAliases[ownerID][oldSlug]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (m *MemStore) InsertSlugAlias(_ context.Context, postID, ownerID uuid.UUID, oldSlug string) error {
	defer m.lock()()

	aliases, ok := m.data.slugAliases[ownerID]
	if !ok {
		aliases = make(map[string]uuid.UUID)
		m.data.slugAliases[ownerID] = aliases
	}
	if _, exists := aliases[oldSlug]; exists {
		return nil // insert-or-ignore
	}
	aliases[oldSlug] = postID
	return nil
}

func (m *MemStore) DeleteSlugAlias(_ context.Context, postID, ownerID uuid.UUID, oldSlug string) error {
	defer m.lock()()

	if id, ok := m.data.slugAliases[ownerID][oldSlug]; ok && id == postID {
		delete(m.data.slugAliases[ownerID], oldSlug)
	}
	return nil
}

func (d *memData) takeConflict() bool {
	if d.injectConflicts > 0 {
		d.injectConflicts--
		return true
	}
	return false
}

func (d *memData) clone() *memData {
	out := &memData{
		owners:        maps.Clone(d.owners),
		posts:         maps.Clone(d.posts),
		slugAliases:   make(map[uuid.UUID]map[string]uuid.UUID, len(d.slugAliases)),
		handleAliases: maps.Clone(d.handleAliases),

		injectConflicts: d.injectConflicts,
	}
	for owner, aliases := range d.slugAliases {
		out.slugAliases[owner] = maps.Clone(aliases)
	}
	return out
}
