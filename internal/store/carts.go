package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

var emptyCartItems = json.RawMessage(`{}`)

// GetCart returns the user's cart. A user who never saved one gets an empty cart.
func (s *PostgresStore) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart := domain.Cart{UserID: userID}
	var items []byte
	err := s.db.QueryRowContext(ctx, `SELECT items, updated_at FROM carts WHERE user_id = $1;`, userID).Scan(&items, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			cart.Items = emptyCartItems
			return &cart, nil
		}
		return nil, fmt.Errorf("store: GetCart failed to scan row: %w", err)
	}
	cart.Items = json.RawMessage(items)
	return &cart, nil
}

// UpsertCart replaces the stored cart with items.
func (s *PostgresStore) UpsertCart(ctx context.Context, userID int64, items json.RawMessage) (*domain.Cart, error) {
	if len(items) == 0 {
		items = emptyCartItems
	}
	query := `
		INSERT INTO carts (user_id, items, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE
		SET items = EXCLUDED.items, updated_at = CURRENT_TIMESTAMP
		RETURNING items, updated_at;`
	cart := domain.Cart{UserID: userID}
	var stored []byte
	if err := s.db.QueryRowContext(ctx, query, userID, []byte(items)).Scan(&stored, &cart.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: UpsertCart failed to scan row: %w", err)
	}
	cart.Items = json.RawMessage(stored)
	return &cart, nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1;`, userID); err != nil {
		return fmt.Errorf("store: ClearCart failed to execute delete: %w", err)
	}
	return nil
}
