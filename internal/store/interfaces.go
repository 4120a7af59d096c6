package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// ListCategoriesParams holds parameters for listing categories (e.g., for pagination).
type ListCategoriesParams struct {
	Limit  int
	Offset int
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, params ListCategoriesParams) ([]domain.Category, int, error) // Returns categories and total count for pagination
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ListProductsParams holds parameters for listing products.
type ListProductsParams struct {
	Limit  int
	Offset int
}

// CategoryQuery is one storefront browse request. Nil bounds and an empty
// category apply no filter; zero Page/PageSize and empty Sort take defaults.
type CategoryQuery struct {
	Category  string
	PriceMin  *decimal.Decimal
	PriceMax  *decimal.Decimal
	Sort      string
	Page      int
	PageSize  int
	Available *domain.AvailabilityStatus
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	QueryProductsByCategory(ctx context.Context, q CategoryQuery) (*domain.ProductPage, error)
	CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.ProductDetail, error)
	GetProductCategories(ctx context.Context, productID int64) ([]string, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) // Returns products and total count
	UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// OrderStorer defines order writes and reads.
type OrderStorer interface {
	CreateOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error)
	GetOrderByTrackingID(ctx context.Context, trackingID string) (*domain.OrderView, error)
	ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error)
}

// UserStorer defines account persistence.
type UserStorer interface {
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	MarkUserVerified(ctx context.Context, id int64) error
	SetVerificationToken(ctx context.Context, id int64, token string) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	LinkGoogleAccount(ctx context.Context, id int64, googleID string) error
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error)
}

// CartStorer defines per-user cart persistence.
type CartStorer interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	UpsertCart(ctx context.Context, userID int64, items json.RawMessage) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
}

// StatsStorer defines the read-only aggregates behind the admin dashboard.
type StatsStorer interface {
	CountUsers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)
	CountOrders(ctx context.Context) (int, error)
	OrdersByStatus(ctx context.Context) ([]domain.StatusCount, error)
	SalesTotals(ctx context.Context) (decimal.Decimal, int, error)
	LowStockProducts(ctx context.Context, threshold int) ([]domain.LowStockProduct, error)
}

// Transactor runs work atomically on one connection.
type Transactor interface {
	WithTransaction(ctx context.Context, work func(tx *sql.Tx) error) error
}

var (
	_ CategoryStorer = (*PostgresStore)(nil)
	_ ProductStorer  = (*PostgresStore)(nil)
	_ OrderStorer    = (*PostgresStore)(nil)
	_ UserStorer     = (*PostgresStore)(nil)
	_ CartStorer     = (*PostgresStore)(nil)
	_ StatsStorer    = (*PostgresStore)(nil)
	_ Transactor     = (*PostgresStore)(nil)
)
