package api

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// MockCategoryStorer is a mock implementation of store.CategoryStorer
type MockCategoryStorer struct {
	mock.Mock
}

func (m *MockCategoryStorer) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Error(1)
}

func (m *MockCategoryStorer) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) ListCategories(ctx context.Context, params store.ListCategoriesParams) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Int(1), args.Error(2)
}

func (m *MockCategoryStorer) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryStorer) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockProductStorer is a mock implementation of store.ProductStorer
type MockProductStorer struct {
	mock.Mock
}

func (m *MockProductStorer) QueryProductsByCategory(ctx context.Context, q store.CategoryQuery) (*domain.ProductPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductPage), args.Error(1)
}

func (m *MockProductStorer) CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) GetProductByID(ctx context.Context, id int64) (*domain.ProductDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductDetail), args.Error(1)
}

func (m *MockProductStorer) GetProductCategories(ctx context.Context, productID int64) ([]string, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProductStorer) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, int, error) {
	args := m.Called(ctx, params)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Int(1), args.Error(2)
}

func (m *MockProductStorer) UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductStorer) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error) {
	args := m.Called(ctx, userID, payload)
	return args.Get(0).(domain.PlacedOrder), args.Error(1)
}

func (m *MockOrderService) TrackOrder(ctx context.Context, trackingID string) (*domain.OrderView, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderView), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.OrderSummary), args.Int(1), args.Error(2)
}

// MockAccountService is a mock implementation of AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Signup(ctx context.Context, email, password, username string) (domain.PublicUser, error) {
	args := m.Called(ctx, email, password, username)
	return args.Get(0).(domain.PublicUser), args.Error(1)
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAccountService) SendVerifyEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAccountService) RequestPasswordSet(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAccountService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return m.Called(ctx, email, token, newPassword).Error(0)
}

func (m *MockAccountService) Login(ctx context.Context, email, password string) (domain.PublicUser, string, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.PublicUser), args.String(1), args.Error(2)
}

func (m *MockAccountService) Me(ctx context.Context, userID int64) (domain.PublicUser, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.PublicUser), args.Error(1)
}

func (m *MockAccountService) GoogleAuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockAccountService) GoogleCallback(ctx context.Context, code string) (domain.PublicUser, string, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.PublicUser), args.String(1), args.Error(2)
}

// MockCartStorer is a mock implementation of store.CartStorer
type MockCartStorer struct {
	mock.Mock
}

func (m *MockCartStorer) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStorer) UpsertCart(ctx context.Context, userID int64, items json.RawMessage) (*domain.Cart, error) {
	args := m.Called(ctx, userID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStorer) ClearCart(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// MockDashboard is a mock implementation of DashboardService
type MockDashboard struct {
	mock.Mock
}

func (m *MockDashboard) DashboardStats(ctx context.Context) (*domain.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminStats), args.Error(1)
}

// MockOrderStorer is a mock implementation of store.OrderStorer
type MockOrderStorer struct {
	mock.Mock
}

func (m *MockOrderStorer) CreateOrder(ctx context.Context, userID *int64, payload domain.PlaceOrderPayload) (domain.PlacedOrder, error) {
	args := m.Called(ctx, userID, payload)
	return args.Get(0).(domain.PlacedOrder), args.Error(1)
}

func (m *MockOrderStorer) GetOrderByTrackingID(ctx context.Context, trackingID string) (*domain.OrderView, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderView), args.Error(1)
}

func (m *MockOrderStorer) ListOrders(ctx context.Context, limit, offset int) ([]domain.OrderSummary, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.OrderSummary), args.Int(1), args.Error(2)
}
