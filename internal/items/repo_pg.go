package items

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, item Item) error {
	const query = `
INSERT INTO items (id, slug, title, price_cents, currency, storage_key, local_path, preview_key, user_id, license, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`
	_, err := r.DB.ExecContext(ctx, query,
		item.ID,
		item.Slug,
		item.Title,
		item.PriceCents,
		item.Currency,
		nullableString(item.StorageKey),
		nullableString(item.LocalPath),
		nullableString(item.PreviewKey),
		nullableString(item.UserID),
		nullableString(item.License),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Item, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *PGRepo) GetBySlug(ctx context.Context, slug string) (Item, error) {
	return r.get(ctx, `WHERE slug = $1`, slug)
}

func (r *PGRepo) get(ctx context.Context, where string, arg any) (Item, error) {
	query := `
SELECT id, slug, title, price_cents, currency, storage_key, local_path, preview_key, user_id, license, created_at
FROM items ` + where + ` LIMIT 1`
	var item Item
	var storageKey, localPath, previewKey, userID, license sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&item.ID,
		&item.Slug,
		&item.Title,
		&item.PriceCents,
		&item.Currency,
		&storageKey,
		&localPath,
		&previewKey,
		&userID,
		&license,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	item.StorageKey = storageKey.String
	item.LocalPath = localPath.String
	item.PreviewKey = previewKey.String
	item.UserID = userID.String
	item.License = license.String
	return item, nil
}

func (r *PGRepo) ListRecent(ctx context.Context, limit, offset int) ([]Item, error) {
	const query = `
SELECT id, slug, title, price_cents, currency, storage_key, local_path, preview_key, user_id, license, created_at
FROM items
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		var storageKey, localPath, previewKey, userID, license sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.Slug,
			&item.Title,
			&item.PriceCents,
			&item.Currency,
			&storageKey,
			&localPath,
			&previewKey,
			&userID,
			&license,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.StorageKey = storageKey.String
		item.LocalPath = localPath.String
		item.PreviewKey = previewKey.String
		item.UserID = userID.String
		item.License = license.String
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdatePreviewKey(ctx context.Context, id, previewKey string) error {
	const query = `UPDATE items SET preview_key = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, previewKey)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
