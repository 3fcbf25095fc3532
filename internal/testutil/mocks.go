// Package testutil содержит общие моки и утилиты для тестирования.
// Моки вынесены сюда для избежания дублирования (DRY).
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/gateway"
	"example.com/craftshop/pkg/outbox"
)

// =============================================================================
// MockOrderRepository — мок для repository.OrderRepository
// =============================================================================

// MockOrderRepository — мок OrderRepository для unit-тестов.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error {
	return m.Called(ctx, order, events).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByEmail(ctx context.Context, email string, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, email, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error {
	return m.Called(ctx, order, events).Error(0)
}

func (m *MockOrderRepository) ClaimRefund(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockOrderRepository) IncrementInvoiceDownloads(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

// =============================================================================
// MockProductRepository — мок для repository.ProductRepository
// =============================================================================

// MockProductRepository — мок ProductRepository для unit-тестов.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, productID string, delta int32) error {
	return m.Called(ctx, productID, delta).Error(0)
}

func (m *MockProductRepository) List(ctx context.Context, offset, limit int) ([]*domain.Product, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Product), args.Get(1).(int64), args.Error(2)
}

// =============================================================================
// MockPaymentGateway — мок для gateway.PaymentGateway
// =============================================================================

// MockPaymentGateway — мок платёжного шлюза для unit-тестов.
// Шлюз всегда внедряется как интерфейс, синглтона нет.
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amount int64, receipt string) (*gateway.GatewayOrder, error) {
	args := m.Called(ctx, amount, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.GatewayOrder), args.Error(1)
}

func (m *MockPaymentGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return m.Called(gatewayOrderID, paymentID, signature).Bool(0)
}

func (m *MockPaymentGateway) FetchPaymentsForOrder(ctx context.Context, gatewayOrderID string) ([]gateway.GatewayPayment, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.GatewayPayment), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.RefundResult, error) {
	args := m.Called(ctx, paymentID, amount, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}
