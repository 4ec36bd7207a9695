package items

import "time"

// Item is a purchasable listing. Immutable after upload except
// administrative preview repair. The original's storage locator is owned
// exclusively by the platform and never exposed to clients.
type Item struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	StorageKey string    `json:"-"`
	LocalPath  string    `json:"-"`
	PreviewKey string    `json:"-"`
	UserID     string    `json:"-"`
	License    string    `json:"license"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stored reports whether exactly one storage locator is set.
func (i Item) Stored() bool {
	return (i.StorageKey != "") != (i.LocalPath != "")
}

// Legacy reports whether the original lives on the local filesystem.
func (i Item) Legacy() bool {
	return i.LocalPath != ""
}
