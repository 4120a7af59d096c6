package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"storefront-service/internal/domain"
)

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

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOrderTrackingEmail(email string, trackingID int64) {
	m.Called(email, trackingID)
}

func (m *MockNotifier) SendVerificationEmail(email, token string) {
	m.Called(email, token)
}

func (m *MockNotifier) SendPasswordResetEmail(email, token string) {
	m.Called(email, token)
}

type MockUserStorer struct {
	mock.Mock
}

func (m *MockUserStorer) userResult(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStorer) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	return m.userResult(m.Called(ctx, u))
}

func (m *MockUserStorer) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id))
}

func (m *MockUserStorer) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, email))
}

func (m *MockUserStorer) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, googleID))
}

func (m *MockUserStorer) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, token))
}

func (m *MockUserStorer) MarkUserVerified(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserStorer) SetVerificationToken(ctx context.Context, id int64, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *MockUserStorer) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserStorer) LinkGoogleAccount(ctx context.Context, id int64, googleID string) error {
	return m.Called(ctx, id, googleID).Error(0)
}

func (m *MockUserStorer) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

type MockStatsStorer struct {
	mock.Mock
}

func (m *MockStatsStorer) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsStorer) CountProducts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsStorer) CountOrders(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsStorer) OrdersByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}

func (m *MockStatsStorer) SalesTotals(ctx context.Context) (decimal.Decimal, int, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}

func (m *MockStatsStorer) LowStockProducts(ctx context.Context, threshold int) ([]domain.LowStockProduct, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).([]domain.LowStockProduct), args.Error(1)
}
