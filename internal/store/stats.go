package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

func (s *PostgresStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+`;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error)    { return s.count(ctx, "users") }
func (s *PostgresStore) CountProducts(ctx context.Context) (int, error) { return s.count(ctx, "products") }
func (s *PostgresStore) CountOrders(ctx context.Context) (int, error)   { return s.count(ctx, "orders") }

// OrdersByStatus groups orders by their current status.
func (s *PostgresStore) OrdersByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status;`)
	if err != nil {
		return nil, fmt.Errorf("store: OrdersByStatus failed to query: %w", err)
	}
	defer rows.Close()

	counts := []domain.StatusCount{}
	for rows.Next() {
		var c domain.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("store: OrdersByStatus failed to scan row: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SalesTotals sums revenue and units over every order item ever recorded.
func (s *PostgresStore) SalesTotals(ctx context.Context) (decimal.Decimal, int, error) {
	var (
		revenue decimal.Decimal
		units   int
	)
	query := `SELECT COALESCE(SUM(price * quantity), 0), COALESCE(SUM(quantity), 0) FROM order_items;`
	if err := s.db.QueryRowContext(ctx, query).Scan(&revenue, &units); err != nil {
		return decimal.Zero, 0, fmt.Errorf("store: SalesTotals failed: %w", err)
	}
	return revenue, units, nil
}

// LowStockProducts lists products with at most threshold items left, emptiest first.
func (s *PostgresStore) LowStockProducts(ctx context.Context, threshold int) ([]domain.LowStockProduct, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, items_in_stock FROM products WHERE items_in_stock <= $1 ORDER BY items_in_stock, id;`, threshold)
	if err != nil {
		return nil, fmt.Errorf("store: LowStockProducts failed to query: %w", err)
	}
	defer rows.Close()

	products := []domain.LowStockProduct{}
	for rows.Next() {
		var p domain.LowStockProduct
		if err := rows.Scan(&p.ID, &p.Title, &p.ItemsInStock); err != nil {
			return nil, fmt.Errorf("store: LowStockProducts failed to scan row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
