package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/middleware"
	"example.com/craftshop/internal/service"
	"example.com/craftshop/pkg/config"
	"example.com/craftshop/pkg/jwt"
)

// adminValidator — мок TokenValidator для защищённых маршрутов.
type adminValidator struct {
	claims *jwt.Claims
	err    error
}

func (v *adminValidator) ValidateWithBlacklist(_ context.Context, _ string) (*jwt.Claims, error) {
	return v.claims, v.err
}

// newTestRouter собирает полный роутер с мок-сервисом.
// validator == nil отключает проверку админ-токена.
func newTestRouter(svc service.OrderService, validator middleware.TokenValidator) *gin.Engine {
	cfg := RouterConfig{
		Orders: NewOrderHandler(svc),
		Admin:  NewAdminHandler(svc),
		Auth:   NewAuthHandler(&mockTokenIssuer{}, config.ShopConfig{}),
	}
	if validator != nil {
		cfg.AdminAuth = middleware.NewAdminAuth(validator)
	}
	return NewRouter(cfg).Engine()
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Customer: CustomerRequest{
			Name:  "Рави Кумар",
			Email: "ravi@example.com",
			Phone: "+911234567890",
		},
		Address: AddressRequest{
			Street:  "MG Road 1",
			City:    "Mumbai",
			State:   "Maharashtra",
			Pincode: "400001",
			Country: "India",
		},
		Items: []CreateOrderItemRequest{
			{ProductID: "prod-1", Name: "Ваза ручной работы", UnitPrice: 250000, Quantity: 2},
		},
		TotalAmount:   500000,
		PaymentMethod: "razorpay",
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	t.Run("успешное создание — 201", func(t *testing.T) {
		svc := &MockOrderService{
			CreateOrderFunc: func(_ context.Context, input service.CreateOrderInput) (*domain.Order, error) {
				assert.Equal(t, int64(500000), input.TotalAmount)
				assert.Equal(t, domain.PaymentMethodRazorpay, input.PaymentMethod)
				require.Len(t, input.Items, 1)
				assert.Equal(t, "prod-1", input.Items[0].ProductID)
				return sampleOrder(), nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders", validCreateRequest(), nil)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp OrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "order-1", resp.ID)
		assert.Equal(t, "processing", resp.Status)
		assert.Equal(t, int64(500000), resp.TotalAmount)
	})

	t.Run("невалидный JSON — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders", "not json", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_request")
	})

	t.Run("без позиций — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		req := validCreateRequest()
		req.Items = nil
		w := performJSON(t, router, http.MethodPost, "/api/v1/orders", req, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("доменная ошибка валидации — 400", func(t *testing.T) {
		svc := &MockOrderService{
			CreateOrderFunc: func(_ context.Context, _ service.CreateOrderInput) (*domain.Order, error) {
				return nil, domain.ErrUpfrontExceedsTotal
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders", validCreateRequest(), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), domain.ErrUpfrontExceedsTotal.Error())
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	t.Run("заказ найден — 200", func(t *testing.T) {
		svc := &MockOrderService{
			GetOrderFunc: func(_ context.Context, orderID string) (*domain.Order, error) {
				assert.Equal(t, "order-1", orderID)
				return sampleOrder(), nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodGet, "/api/v1/orders/order-1", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ravi@example.com")
	})

	t.Run("заказ не найден — 404", func(t *testing.T) {
		svc := &MockOrderService{
			GetOrderFunc: func(_ context.Context, _ string) (*domain.Order, error) {
				return nil, domain.ErrOrderNotFound
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodGet, "/api/v1/orders/missing", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})
}

func TestOrderHandler_ListMyOrders(t *testing.T) {
	t.Run("без email — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		w := performJSON(t, router, http.MethodGet, "/api/v1/orders", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("передаёт email и пагинацию в сервис", func(t *testing.T) {
		svc := &MockOrderService{
			ListOrdersByEmailFunc: func(_ context.Context, email string, page, pageSize int) ([]*domain.Order, int64, error) {
				assert.Equal(t, "ravi@example.com", email)
				assert.Equal(t, 2, page)
				assert.Equal(t, 5, pageSize)
				return []*domain.Order{sampleOrder()}, 11, nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodGet, "/api/v1/orders?email=ravi@example.com&page=2&page_size=5", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)

		var resp ListOrdersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Orders, 1)
		assert.Equal(t, int64(11), resp.Pagination.TotalItems)
		assert.Equal(t, 2, resp.Pagination.CurrentPage)
	})

	t.Run("мусор в пагинации заменяется значениями по умолчанию", func(t *testing.T) {
		svc := &MockOrderService{
			ListOrdersByEmailFunc: func(_ context.Context, _ string, page, pageSize int) ([]*domain.Order, int64, error) {
				assert.Equal(t, 1, page)
				assert.Equal(t, 20, pageSize)
				return nil, 0, nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodGet, "/api/v1/orders?email=a@b.c&page=abc&page_size=-5", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOrderHandler_PaymentCallback(t *testing.T) {
	callback := PaymentCallbackRequest{
		GatewayOrderID:   "order_gw1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "sig",
	}

	t.Run("успешное подтверждение — 200", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmPaymentFunc: func(_ context.Context, orderID, paymentID, signature string) (*domain.Order, error) {
				assert.Equal(t, "order-1", orderID)
				assert.Equal(t, "pay_1", paymentID)
				assert.Equal(t, "sig", signature)
				o := sampleOrder()
				o.PaymentStatus = domain.PaymentStatusCompleted
				o.RevenueStatus = domain.RevenueConfirmed
				return o, nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/payment", callback, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"payment_status":"completed"`)
	})

	t.Run("неверная подпись — 400", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmPaymentFunc: func(_ context.Context, _, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrInvalidSignature
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/payment", callback, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("повторное подтверждение — 409", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmPaymentFunc: func(_ context.Context, _, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrPaymentAlreadyCompleted
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/payment", callback, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("неполное тело — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/payment",
			map[string]string{"razorpay_payment_id": "pay_1"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_RequestCancellation(t *testing.T) {
	body := CancellationRequest{Email: "ravi@example.com", Reason: "Передумал"}

	t.Run("запрос подан — 200", func(t *testing.T) {
		svc := &MockOrderService{
			RequestCancellationFunc: func(_ context.Context, orderID, email, reason string) (*domain.Order, error) {
				assert.Equal(t, "order-1", orderID)
				assert.Equal(t, "ravi@example.com", email)
				assert.Equal(t, "Передумал", reason)
				o := sampleOrder()
				o.Cancellation.Status = domain.CancellationRequested
				return o, nil
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/cancellation", body, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"requested"`)
	})

	t.Run("отмена недоступна — 409", func(t *testing.T) {
		svc := &MockOrderService{
			RequestCancellationFunc: func(_ context.Context, _, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrCancellationNotAllowed
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/cancellation", body, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestOrderHandler_RequestReturn(t *testing.T) {
	t.Run("возврат до доставки — 409", func(t *testing.T) {
		svc := &MockOrderService{
			RequestReturnFunc: func(_ context.Context, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrReturnNotDelivered
			},
		}
		router := newTestRouter(svc, nil)

		w := performJSON(t, router, http.MethodPost, "/api/v1/orders/order-1/return",
			ReturnRequest{Reason: "Брак"}, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestOrderHandler_DownloadInvoice(t *testing.T) {
	svc := &MockOrderService{
		DownloadInvoiceFunc: func(_ context.Context, orderID string) (*domain.Order, error) {
			o := sampleOrder()
			o.Invoice.InvoiceNumber = "INV-20250315-A1B2C3D4"
			o.Invoice.DownloadCount = 3
			return o, nil
		},
	}
	router := newTestRouter(svc, nil)

	w := performJSON(t, router, http.MethodGet, "/api/v1/orders/order-1/invoice", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV-20250315-A1B2C3D4")
	assert.Contains(t, w.Body.String(), `"download_count":3`)
}

func TestRouter_HealthEndpoints(t *testing.T) {
	t.Run("healthz всегда 200", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		w := performJSON(t, router, http.MethodGet, "/healthz", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readyz без проверки — 200", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, nil)

		w := performJSON(t, router, http.MethodGet, "/readyz", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readyz с падающей проверкой — 503", func(t *testing.T) {
		router := NewRouter(RouterConfig{
			Orders: NewOrderHandler(&MockOrderService{}),
			Admin:  NewAdminHandler(&MockOrderService{}),
			Auth:   NewAuthHandler(&mockTokenIssuer{}, config.ShopConfig{}),
			ReadinessCheck: func(_ context.Context) error {
				return assert.AnError
			},
		}).Engine()

		w := performJSON(t, router, http.MethodGet, "/readyz", nil, nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
