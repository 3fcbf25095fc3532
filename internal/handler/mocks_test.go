package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockOrderService — мок для OrderService с функциональными полями.
// Позволяет гибко настраивать поведение для каждого теста.
type MockOrderService struct {
	CreateOrderFunc         func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	GetOrderFunc            func(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersFunc          func(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error)
	ListOrdersByEmailFunc   func(ctx context.Context, email string, page, pageSize int) ([]*domain.Order, int64, error)
	UpdateStatusFunc        func(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error)
	ConfirmPaymentFunc      func(ctx context.Context, orderID, paymentID, signature string) (*domain.Order, error)
	RequestCancellationFunc func(ctx context.Context, orderID, email, reason string) (*domain.Order, error)
	DecideCancellationFunc  func(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error)
	ProcessRefundFunc       func(ctx context.Context, orderID, adminID string) (*domain.Order, error)
	ConfirmRevenueFunc      func(ctx context.Context, orderID string, adminAmount *int64) (*domain.Order, error)
	RequestReturnFunc       func(ctx context.Context, orderID, reason string) (*domain.Order, error)
	DecideReturnFunc        func(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error)
	DownloadInvoiceFunc     func(ctx context.Context, orderID string) (*domain.Order, error)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, input)
	}
	return nil, nil
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *MockOrderService) ListOrders(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, status, page, pageSize)
	}
	return nil, 0, nil
}

func (m *MockOrderService) ListOrdersByEmail(ctx context.Context, email string, page, pageSize int) ([]*domain.Order, int64, error) {
	if m.ListOrdersByEmailFunc != nil {
		return m.ListOrdersByEmailFunc(ctx, email, page, pageSize)
	}
	return nil, 0, nil
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, orderID, newStatus)
	}
	return nil, nil
}

func (m *MockOrderService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*domain.Order, error) {
	if m.ConfirmPaymentFunc != nil {
		return m.ConfirmPaymentFunc(ctx, orderID, paymentID, signature)
	}
	return nil, nil
}

func (m *MockOrderService) RequestCancellation(ctx context.Context, orderID, email, reason string) (*domain.Order, error) {
	if m.RequestCancellationFunc != nil {
		return m.RequestCancellationFunc(ctx, orderID, email, reason)
	}
	return nil, nil
}

func (m *MockOrderService) DecideCancellation(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
	if m.DecideCancellationFunc != nil {
		return m.DecideCancellationFunc(ctx, orderID, adminID, approve, reason)
	}
	return nil, nil
}

func (m *MockOrderService) ProcessRefund(ctx context.Context, orderID, adminID string) (*domain.Order, error) {
	if m.ProcessRefundFunc != nil {
		return m.ProcessRefundFunc(ctx, orderID, adminID)
	}
	return nil, nil
}

func (m *MockOrderService) ConfirmRevenue(ctx context.Context, orderID string, adminAmount *int64) (*domain.Order, error) {
	if m.ConfirmRevenueFunc != nil {
		return m.ConfirmRevenueFunc(ctx, orderID, adminAmount)
	}
	return nil, nil
}

func (m *MockOrderService) RequestReturn(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	if m.RequestReturnFunc != nil {
		return m.RequestReturnFunc(ctx, orderID, reason)
	}
	return nil, nil
}

func (m *MockOrderService) DecideReturn(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
	if m.DecideReturnFunc != nil {
		return m.DecideReturnFunc(ctx, orderID, adminID, approve, reason)
	}
	return nil, nil
}

func (m *MockOrderService) DownloadInvoice(ctx context.Context, orderID string) (*domain.Order, error) {
	if m.DownloadInvoiceFunc != nil {
		return m.DownloadInvoiceFunc(ctx, orderID)
	}
	return nil, nil
}

// sampleOrder возвращает типовой заказ для ответов моков.
func sampleOrder() *domain.Order {
	return &domain.Order{
		ID: "order-1",
		Customer: domain.Customer{
			Name:  "Рави Кумар",
			Email: "ravi@example.com",
			Phone: "+911234567890",
		},
		Address: domain.Address{
			Street:  "MG Road 1",
			City:    "Mumbai",
			State:   "Maharashtra",
			Pincode: "400001",
			Country: "India",
		},
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Name: "Ваза ручной работы", UnitPrice: 250000, Quantity: 2},
		},
		TotalAmount:   500000,
		PaymentMethod: domain.PaymentMethodRazorpay,
		Status:        domain.OrderStatusProcessing,
		PaymentStatus: domain.PaymentStatusPending,
		RevenueStatus: domain.RevenuePending,
	}
}

// performJSON выполняет запрос с JSON телом против роутера.
func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
