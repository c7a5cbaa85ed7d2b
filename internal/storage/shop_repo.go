package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ShopRepo struct {
	db DBTX
}

func NewShopRepo(db DBTX) *ShopRepo {
	return &ShopRepo{db: db}
}

const itemColumns = `id, user_id, name, description, item_type, price, image_url, active`

func (r *ShopRepo) InsertItem(ctx context.Context, it ShopItem) (int64, error) {
	var owner any
	if it.UserID != nil {
		owner = *it.UserID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO shop_items (user_id, name, description, item_type, price, image_url, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, owner, it.Name, it.Description, it.ItemType, it.Price, it.ImageURL, boolToInt(it.Active))
	if err != nil {
		return 0, fmt.Errorf("shop item insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("shop item last insert id: %w", err)
	}
	return id, nil
}

// GetActiveItem returns an active item visible to userID: either shared
// catalog stock or an item the user defined.
func (r *ShopRepo) GetActiveItem(ctx context.Context, userID string, id int64) (*ShopItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM shop_items
		WHERE id = ? AND active = 1 AND (user_id IS NULL OR user_id = ?)
	`, id, userID)
	return scanItemRow(row)
}

// GetUserItem returns an item of itemType defined by userID.
func (r *ShopRepo) GetUserItem(ctx context.Context, userID string, id int64, itemType string) (*ShopItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM shop_items
		WHERE id = ? AND user_id = ? AND item_type = ?
	`, id, userID, itemType)
	return scanItemRow(row)
}

// ListUserItems returns the user's own active items of itemType.
func (r *ShopRepo) ListUserItems(ctx context.Context, userID, itemType string) ([]ShopItem, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+` FROM shop_items
		WHERE user_id = ? AND item_type = ? AND active = 1
		ORDER BY id ASC
	`, userID, itemType)
}

// ListSharedItems returns active catalog items of itemType that belong to no user.
func (r *ShopRepo) ListSharedItems(ctx context.Context, itemType string) ([]ShopItem, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+` FROM shop_items
		WHERE user_id IS NULL AND item_type = ? AND active = 1
		ORDER BY id ASC
	`, itemType)
}

func (r *ShopRepo) queryItems(ctx context.Context, query string, args ...any) ([]ShopItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("shop item list: %w", err)
	}
	defer rows.Close()

	var out []ShopItem
	for rows.Next() {
		it, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shop item rows: %w", err)
	}
	return out, nil
}

func (r *ShopRepo) UpdateItem(ctx context.Context, it *ShopItem) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shop_items SET name = ?, description = ?, price = ?, image_url = ?, active = ?
		WHERE id = ?
	`, it.Name, it.Description, it.Price, it.ImageURL, boolToInt(it.Active), it.ID)
	if err != nil {
		return fmt.Errorf("shop item update: %w", err)
	}
	return nil
}

func (r *ShopRepo) DeleteItem(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shop_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("shop item delete: %w", err)
	}
	return nil
}

// AddOwned records ownership and reports whether it is new.
func (r *ShopRepo) AddOwned(ctx context.Context, userID, itemID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO owned_items (user_id, item_id, acquired_at) VALUES (?, ?, ?)
	`, userID, itemID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("owned item insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("owned item insert rows: %w", err)
	}
	return n > 0, nil
}

func (r *ShopRepo) IsOwned(ctx context.Context, userID, itemID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM owned_items WHERE user_id = ? AND item_id = ?
	`, userID, itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("owned item lookup: %w", err)
	}
	return n > 0, nil
}

// Owned returns the ids of everything the user owns, oldest first.
func (r *ShopRepo) Owned(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id FROM owned_items WHERE user_id = ? ORDER BY acquired_at ASC, item_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("owned item list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("owned item scan: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("owned item rows: %w", err)
	}
	return out, nil
}

// SetStatSlot assigns statType to the slot. A nil statType clears it.
func (r *ShopRepo) SetStatSlot(ctx context.Context, userID string, slot int, statType *string) error {
	var v any
	if statType != nil {
		v = *statType
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stat_slots (user_id, slot_number, stat_type) VALUES (?, ?, ?)
		ON CONFLICT(user_id, slot_number) DO UPDATE SET stat_type = excluded.stat_type
	`, userID, slot, v)
	if err != nil {
		return fmt.Errorf("stat slot upsert: %w", err)
	}
	return nil
}

func (r *ShopRepo) StatSlots(ctx context.Context, userID string) ([]StatSlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, slot_number, stat_type FROM stat_slots WHERE user_id = ? ORDER BY slot_number ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("stat slot list: %w", err)
	}
	defer rows.Close()

	var out []StatSlot
	for rows.Next() {
		var (
			s        StatSlot
			statType sql.NullString
		)
		if err := rows.Scan(&s.UserID, &s.Slot, &statType); err != nil {
			return nil, fmt.Errorf("stat slot scan: %w", err)
		}
		if statType.Valid {
			v := statType.String
			s.StatType = &v
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stat slot rows: %w", err)
	}
	return out, nil
}

func scanItemRow(row scanner) (*ShopItem, error) {
	var (
		it     ShopItem
		owner  sql.NullString
		active int
	)
	if err := row.Scan(&it.ID, &owner, &it.Name, &it.Description, &it.ItemType, &it.Price, &it.ImageURL, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("shop item scan: %w", err)
	}
	if owner.Valid {
		v := owner.String
		it.UserID = &v
	}
	it.Active = active != 0
	return &it, nil
}
