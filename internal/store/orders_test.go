package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/juju/clock/testclock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

var (
	insertAddressSQL  = regexp.QuoteMeta(`INSERT INTO addresses`)
	insertOrderSQL    = regexp.QuoteMeta(`INSERT INTO orders`)
	insertItemSQL     = regexp.QuoteMeta(`INSERT INTO order_items`)
	insertTimelineSQL = regexp.QuoteMeta(`INSERT INTO order_timeline (order_id, status) VALUES ($1, $2);`)
)

func testAddress(first string) *domain.Address {
	return &domain.Address{
		FirstName:  first,
		LastName:   "Doe",
		Address:    "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Phone:      "555-0100",
		Email:      "jane@example.com",
	}
}

func testPayload(t *testing.T, sameBilling bool) domain.PlaceOrderPayload {
	t.Helper()
	raw := `{
		"region": "EU",
		"billingSameAsShipping": ` + map[bool]string{true: "true", false: "false"}[sameBilling] + `,
		"products": {
			"lamp-b": {"productId": 2, "variantId": "b", "title": "Lamp", "variantTitle": "Blue", "price": 20.5, "quantity": 1},
			"lamp-a": {"productId": 1, "variantId": "a", "title": "Lamp", "variantTitle": "Red", "price": 10, "quantity": 3}
		}
	}`
	var payload domain.PlaceOrderPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	payload.ShippingAddress = testAddress("Jane")
	if !sameBilling {
		payload.BillingAddress = testAddress("Bill")
	}
	return payload
}

func addressArgs(a *domain.Address) []driver.Value {
	return []driver.Value{a.FirstName, a.LastName, a.Address, a.City, a.PostalCode, a.Phone, a.Email}
}

func newOrderStore(t *testing.T, trackingID int64) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, store := newMockDBAndStore(t)
	store.newTrackingID = func() (int64, error) { return trackingID, nil }
	return db, mock, store
}

func TestPostgresStore_CreateOrder_SameBillingReusesAddress(t *testing.T) {
	db, mock, store := newOrderStore(t, 424242)
	defer db.Close()
	payload := testPayload(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(insertAddressSQL).
		WithArgs(addressArgs(payload.ShippingAddress)...).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insertOrderSQL).
		WithArgs(nil, int64(424242), "EU", int64(10), int64(10), true, domain.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))
	// Items are written in the payload's key order, not sorted.
	mock.ExpectExec(insertItemSQL).
		WithArgs(int64(99), int64(2), "b", "Lamp", "Blue", "", decimal.RequireFromString("20.5"), 1, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertItemSQL).
		WithArgs(int64(99), int64(1), "a", "Lamp", "Red", "", decimal.RequireFromString("10"), 3, false).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(insertTimelineSQL).
		WithArgs(int64(99), domain.TimelineStatusPlaced).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	placed, err := store.CreateOrder(context.Background(), nil, payload)

	require.NoError(t, err)
	assert.Equal(t, domain.PlacedOrder{OrderID: 99, TrackingID: 424242}, placed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrder_SeparateBilling(t *testing.T) {
	db, mock, store := newOrderStore(t, 7)
	defer db.Close()
	payload := testPayload(t, false)
	userID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(insertAddressSQL).
		WithArgs(addressArgs(payload.ShippingAddress)...).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insertAddressSQL).
		WithArgs(addressArgs(payload.BillingAddress)...).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(insertOrderSQL).
		WithArgs(userID, int64(7), "EU", int64(10), int64(11), false, domain.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(insertItemSQL).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertItemSQL).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(insertTimelineSQL).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	placed, err := store.CreateOrder(context.Background(), &userID, payload)

	require.NoError(t, err)
	assert.Equal(t, int64(5), placed.OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrder_ItemFailureRollsBack(t *testing.T) {
	db, mock, store := newOrderStore(t, 7)
	defer db.Close()
	payload := testPayload(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(insertAddressSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insertOrderSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))
	mock.ExpectExec(insertItemSQL).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertItemSQL).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	placed, err := store.CreateOrder(context.Background(), nil, payload)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fk violation")
	assert.Equal(t, domain.PlacedOrder{}, placed)
	require.NoError(t, mock.ExpectationsWereMet(), "no commit and no timeline write after a failed item")
}

func TestPostgresStore_CreateOrder_TrackingConflict(t *testing.T) {
	db, mock, store := newOrderStore(t, 7)
	defer db.Close()
	payload := testPayload(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(insertAddressSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(insertOrderSQL).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_tracking_id_key"})
	mock.ExpectRollback()

	_, err := store.CreateOrder(context.Background(), nil, payload)

	assert.ErrorIs(t, err, ErrTrackingIDConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrder_Incomplete(t *testing.T) {
	db, mock, store := newOrderStore(t, 7)
	defer db.Close()

	payload := testPayload(t, true)
	payload.Products = nil
	_, err := store.CreateOrder(context.Background(), nil, payload)
	assert.ErrorIs(t, err, ErrIncompleteOrder)

	payload = testPayload(t, false)
	payload.BillingAddress = nil
	_, err = store.CreateOrder(context.Background(), nil, payload)
	assert.ErrorIs(t, err, ErrIncompleteOrder)

	require.NoError(t, mock.ExpectationsWereMet(), "nothing is written for an incomplete order")
}

func TestPostgresStore_GetOrderByTrackingID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	clk := testclock.NewClock(time.Date(2024, 5, 30, 22, 0, 0, 0, time.UTC))
	store := NewPostgresStore(db, clk)

	shipping := `{"firstName":"Jane","lastName":"Doe","address":"1 Main St","city":"Springfield","postalCode":"12345","phone":"555-0100","email":"jane@example.com"}`
	products := `[{"productId":2,"variantId":"b","title":"Lamp","variantTitle":"Blue","quantity":1,"price":20.50,"image":"","freeShipping":false}]`
	timeline := `[{"date":"2024-05-01","status":"Order Placed"},{"date":"2024-05-02","status":"Shipped"}]`

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.tracking_id::text = $1;`)).
		WithArgs("424242").
		WillReturnRows(sqlmock.NewRows([]string{"tracking_id", "status", "billing_same_as_shipping", "shipping_address", "billing_address", "products", "timeline"}).
			AddRow(int64(424242), "Pending", true, []byte(shipping), []byte(shipping), []byte(products), []byte(timeline)))

	view, err := store.GetOrderByTrackingID(context.Background(), "424242")

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, int64(424242), view.TrackingID)
	assert.Equal(t, view.ShippingAddress, view.BillingAddress)
	assert.Equal(t, "2024-06-06", view.EstimatedDelivery)
	require.Len(t, view.Products, 1)
	assert.True(t, decimal.RequireFromString("20.5").Equal(view.Products[0].Price))
	require.Len(t, view.Timeline, 2)
	assert.Equal(t, "Order Placed", view.Timeline[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())

	clk.Advance(48 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.tracking_id::text = $1;`)).
		WithArgs("424242").
		WillReturnRows(sqlmock.NewRows([]string{"tracking_id", "status", "billing_same_as_shipping", "shipping_address", "billing_address", "products", "timeline"}).
			AddRow(int64(424242), "Pending", true, []byte(shipping), []byte(shipping), []byte(products), []byte(timeline)))
	view, err = store.GetOrderByTrackingID(context.Background(), "424242")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-08", view.EstimatedDelivery, "estimated delivery moves with the read time")
}

func TestPostgresStore_GetOrderByTrackingID_Absent(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.tracking_id::text = $1;`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	view, err := store.GetOrderByTrackingID(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, view)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateTrackingID_Positive48Bit(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := GenerateTrackingID()
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
		assert.Less(t, id, int64(1)<<48)
	}
}

func TestPostgresStore_ListOrders(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders;`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2;`)).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tracking_id", "user_id", "region", "status", "created_at", "item_count", "total"}).
			AddRow(int64(1), int64(424242), nil, "EU", "Pending", now, 4, "50.50"))

	orders, total, err := store.ListOrders(context.Background(), 10, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].UserID)
	assert.True(t, decimal.RequireFromString("50.5").Equal(orders[0].Total))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTransaction_PanicRollsBack(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithTransaction(context.Background(), func(tx *sql.Tx) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
