package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

// ErrIncompleteOrder is returned before any write when an order has no items or no shipping address.
var ErrIncompleteOrder = errors.New("store: order needs a shipping address and at least one item")

const trackingIDConstraint = "orders_tracking_id_key"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GenerateTrackingID draws 48 random bits and returns them as a positive integer.
// Uniqueness is not checked here; the orders_tracking_id_key constraint rejects collisions.
func GenerateTrackingID() (int64, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[2:]); err != nil {
			return 0, fmt.Errorf("store: failed to read random bytes: %w", err)
		}
		if id := int64(binary.BigEndian.Uint64(buf[:])); id > 0 {
			return id, nil
		}
	}
}

// InsertAddress stores one address snapshot and returns its id.
func (s *PostgresStore) InsertAddress(ctx context.Context, tx execer, addr domain.Address) (int64, error) {
	query := `
		INSERT INTO addresses (first_name, last_name, address_line, city, postal_code, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		addr.FirstName, addr.LastName, addr.Address, addr.City, addr.PostalCode, addr.Phone, addr.Email,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: InsertAddress failed: %w", err)
	}
	return id, nil
}

func insertOrder(ctx context.Context, tx execer, o domain.Order) (int64, error) {
	query := `
		INSERT INTO orders (user_id, tracking_id, region, shipping_address_id, billing_address_id, billing_same_as_shipping, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		o.UserID, o.TrackingID, o.Region, o.ShippingAddressID, o.BillingAddressID, o.BillingSameAsShipping, o.Status,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, trackingIDConstraint) {
			return 0, ErrTrackingIDConflict
		}
		return 0, fmt.Errorf("store: insertOrder failed: %w", err)
	}
	return id, nil
}

func insertOrderItem(ctx context.Context, tx execer, orderID int64, item domain.LineItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, variant_id, title, variant_title, image, price, quantity, free_shipping)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := tx.ExecContext(ctx, query,
		orderID, item.ProductID, item.VariantID, item.Title, item.VariantTitle, item.Image, item.Price, item.Quantity, item.FreeShipping,
	)
	if err != nil {
		return fmt.Errorf("store: insertOrderItem failed for variant %s: %w", item.VariantID, err)
	}
	return nil
}

func insertOrderTimeline(ctx context.Context, tx execer, orderID int64, status string) error {
	query := `INSERT INTO order_timeline (order_id, status) VALUES ($1, $2);`
	if _, err := tx.ExecContext(ctx, query, orderID, status); err != nil {
		return fmt.Errorf("store: insertOrderTimeline failed: %w", err)
	}
	return nil
}

// CreateOrder writes the addresses, order header, items and first timeline entry
// as one transaction. Nothing is visible unless every step succeeds.
func (s *PostgresStore) CreateOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error) {
	if payload.ShippingAddress == nil || len(payload.Products) == 0 {
		return domain.PlacedOrder{}, ErrIncompleteOrder
	}
	if !payload.BillingSameAsShipping && payload.BillingAddress == nil {
		return domain.PlacedOrder{}, ErrIncompleteOrder
	}

	var placed domain.PlacedOrder
	err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
		shippingID, err := s.InsertAddress(ctx, tx, *payload.ShippingAddress)
		if err != nil {
			return err
		}

		billingID := shippingID
		if !payload.BillingSameAsShipping {
			if billingID, err = s.InsertAddress(ctx, tx, *payload.BillingAddress); err != nil {
				return err
			}
		}

		trackingID, err := s.newTrackingID()
		if err != nil {
			return err
		}

		orderID, err := insertOrder(ctx, tx, domain.Order{
			UserID:                userID,
			TrackingID:            trackingID,
			Region:                payload.Region,
			ShippingAddressID:     shippingID,
			BillingAddressID:      billingID,
			BillingSameAsShipping: payload.BillingSameAsShipping,
			Status:                domain.OrderStatusPending,
		})
		if err != nil {
			return err
		}

		for _, item := range payload.Products {
			if err := insertOrderItem(ctx, tx, orderID, item); err != nil {
				return err
			}
		}

		if err := insertOrderTimeline(ctx, tx, orderID, domain.TimelineStatusPlaced); err != nil {
			return err
		}

		placed = domain.PlacedOrder{OrderID: orderID, TrackingID: trackingID}
		return nil
	})
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	return placed, nil
}

const orderViewQuery = `
	SELECT
		o.tracking_id,
		o.status,
		o.billing_same_as_shipping,
		json_build_object(
			'firstName', sa.first_name,
			'lastName', sa.last_name,
			'address', sa.address_line,
			'city', sa.city,
			'postalCode', sa.postal_code,
			'phone', sa.phone,
			'email', sa.email
		) AS shipping_address,
		json_build_object(
			'firstName', ba.first_name,
			'lastName', ba.last_name,
			'address', ba.address_line,
			'city', ba.city,
			'postalCode', ba.postal_code,
			'phone', ba.phone,
			'email', ba.email
		) AS billing_address,
		(
			SELECT COALESCE(json_agg(
				json_build_object(
					'productId', oi.product_id,
					'variantId', oi.variant_id,
					'title', oi.title,
					'variantTitle', oi.variant_title,
					'quantity', oi.quantity,
					'price', oi.price,
					'image', oi.image,
					'freeShipping', oi.free_shipping
				) ORDER BY oi.id
			), '[]'::json)
			FROM order_items oi
			WHERE oi.order_id = o.id
		) AS products,
		(
			SELECT COALESCE(json_agg(
				json_build_object(
					'date', ot.created_at::date,
					'status', ot.status
				) ORDER BY ot.created_at
			), '[]'::json)
			FROM order_timeline ot
			WHERE ot.order_id = o.id
		) AS timeline
	FROM orders o
	LEFT JOIN addresses sa ON sa.id = o.shipping_address_id
	LEFT JOIN addresses ba ON ba.id = o.billing_address_id
	WHERE o.tracking_id::text = $1;
`

// GetOrderByTrackingID returns the tracking view, or nil when no order matches.
// EstimatedDelivery is always relative to the time of this read.
func (s *PostgresStore) GetOrderByTrackingID(ctx context.Context, trackingID string) (*domain.OrderView, error) {
	var (
		view                                        domain.OrderView
		shipping, billing, productsJSON, timelineJS []byte
	)
	err := s.db.QueryRowContext(ctx, orderViewQuery, trackingID).Scan(
		&view.TrackingID, &view.Status, &view.BillingSameAsShipping,
		&shipping, &billing, &productsJSON, &timelineJS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: GetOrderByTrackingID failed to scan row: %w", err)
	}

	for _, part := range []struct {
		raw  []byte
		into interface{}
	}{
		{shipping, &view.ShippingAddress},
		{billing, &view.BillingAddress},
		{productsJSON, &view.Products},
		{timelineJS, &view.Timeline},
	} {
		if err := json.Unmarshal(part.raw, part.into); err != nil {
			return nil, fmt.Errorf("store: GetOrderByTrackingID failed to decode aggregate: %w", err)
		}
	}

	view.EstimatedDelivery = s.clock.Now().Add(domain.EstimatedDeliveryDelay).UTC().Format("2006-01-02")
	return &view, nil
}

// ListOrders returns the newest orders first with their item counts and totals.
func (s *PostgresStore) ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders;`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to count orders: %w", err)
	}
	if totalCount == 0 {
		return []domain.OrderSummary{}, 0, nil
	}

	query := `
		SELECT o.id, o.tracking_id, o.user_id, o.region, o.status, o.created_at,
			COALESCE(SUM(oi.quantity), 0) AS item_count,
			COALESCE(SUM(oi.price * oi.quantity), 0) AS total
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.OrderSummary, 0, limit)
	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(&o.ID, &o.TrackingID, &o.UserID, &o.Region, &o.Status, &o.CreatedAt, &o.ItemCount, &o.Total); err != nil {
			return nil, 0, fmt.Errorf("store: ListOrders failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders iteration error: %w", err)
	}
	return orders, totalCount, nil
}
