package items

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "item not found" }

type Repo interface {
	Create(ctx context.Context, item Item) error
	GetByID(ctx context.Context, id string) (Item, error)
	GetBySlug(ctx context.Context, slug string) (Item, error)
	ListRecent(ctx context.Context, limit, offset int) ([]Item, error)
	// UpdatePreviewKey is the only permitted post-upload mutation.
	UpdatePreviewKey(ctx context.Context, id, previewKey string) error
}
