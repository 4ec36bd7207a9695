package items

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and DB-less dev.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Item)}
}

func (r *MemoryRepo) Create(ctx context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.items[item.ID] = item
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (r *MemoryRepo) GetBySlug(ctx context.Context, slug string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Slug == slug {
			return item, nil
		}
	}
	return Item{}, ErrNotFound
}

func (r *MemoryRepo) ListRecent(ctx context.Context, limit, offset int) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) UpdatePreviewKey(ctx context.Context, id, previewKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	item.PreviewKey = previewKey
	r.items[id] = item
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
