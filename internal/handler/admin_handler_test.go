package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/pkg/jwt"
)

// adminHeaders — заголовки авторизованного администратора.
var adminHeaders = map[string]string{"Authorization": "Bearer admin-token"}

func adminClaims() *jwt.Claims {
	return &jwt.Claims{AdminID: "admin@craftshop.local", Role: jwt.RoleAdmin}
}

func TestAdminHandler_Authorization(t *testing.T) {
	t.Run("без токена — 401", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodGet, "/api/v1/admin/orders", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("роль не admin — 403", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{},
			&adminValidator{claims: &jwt.Claims{AdminID: "user-1", Role: "user"}})

		w := performJSON(t, router, http.MethodGet, "/api/v1/admin/orders", nil, adminHeaders)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAdminHandler_ListOrders(t *testing.T) {
	t.Run("фильтр по статусу передаётся в сервис", func(t *testing.T) {
		svc := &MockOrderService{
			ListOrdersFunc: func(_ context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
				require.NotNil(t, status)
				assert.Equal(t, domain.OrderStatusShipped, *status)
				return []*domain.Order{sampleOrder()}, 1, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodGet, "/api/v1/admin/orders?status=shipped", nil, adminHeaders)

		require.Equal(t, http.StatusOK, w.Code)

		var resp ListOrdersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Orders, 1)
	})

	t.Run("невалидный статус фильтра — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodGet, "/api/v1/admin/orders?status=teleported", nil, adminHeaders)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("без фильтра status == nil", func(t *testing.T) {
		svc := &MockOrderService{
			ListOrdersFunc: func(_ context.Context, status *domain.OrderStatus, _, _ int) ([]*domain.Order, int64, error) {
				assert.Nil(t, status)
				return nil, 0, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodGet, "/api/v1/admin/orders", nil, adminHeaders)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminHandler_UpdateStatus(t *testing.T) {
	t.Run("успешный переход — 200", func(t *testing.T) {
		svc := &MockOrderService{
			UpdateStatusFunc: func(_ context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
				assert.Equal(t, "order-1", orderID)
				assert.Equal(t, domain.OrderStatusConfirmed, newStatus)
				o := sampleOrder()
				o.Status = domain.OrderStatusConfirmed
				return o, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPatch, "/api/v1/admin/orders/order-1/status",
			UpdateStatusRequest{Status: "confirmed"}, adminHeaders)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"confirmed"`)
	})

	t.Run("неизвестный статус — 400", func(t *testing.T) {
		router := newTestRouter(&MockOrderService{}, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPatch, "/api/v1/admin/orders/order-1/status",
			UpdateStatusRequest{Status: "lost"}, adminHeaders)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("недопустимый переход — 409", func(t *testing.T) {
		svc := &MockOrderService{
			UpdateStatusFunc: func(_ context.Context, _ string, _ domain.OrderStatus) (*domain.Order, error) {
				return nil, domain.ErrIllegalTransition
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPatch, "/api/v1/admin/orders/order-1/status",
			UpdateStatusRequest{Status: "delivered"}, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("замороженный заказ — 409", func(t *testing.T) {
		svc := &MockOrderService{
			UpdateStatusFunc: func(_ context.Context, _ string, _ domain.OrderStatus) (*domain.Order, error) {
				return nil, domain.ErrOrderFrozen
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPatch, "/api/v1/admin/orders/order-1/status",
			UpdateStatusRequest{Status: "confirmed"}, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), domain.ErrOrderFrozen.Error())
	})
}

func TestAdminHandler_DecideCancellation(t *testing.T) {
	t.Run("одобрение передаёт admin_id из токена", func(t *testing.T) {
		svc := &MockOrderService{
			DecideCancellationFunc: func(_ context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
				assert.Equal(t, "order-1", orderID)
				assert.Equal(t, "admin@craftshop.local", adminID)
				assert.True(t, approve)
				o := sampleOrder()
				o.Status = domain.OrderStatusCancelled
				o.Cancellation.Status = domain.CancellationApproved
				return o, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/cancellation/decision",
			DecisionRequest{Approve: true}, adminHeaders)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"cancelled"`)
	})

	t.Run("отклонение без причины — 400", func(t *testing.T) {
		svc := &MockOrderService{
			DecideCancellationFunc: func(_ context.Context, _, _ string, _ bool, _ string) (*domain.Order, error) {
				return nil, domain.ErrRejectionReasonRequired
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/cancellation/decision",
			DecisionRequest{Approve: false}, adminHeaders)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("нет активного запроса — 409", func(t *testing.T) {
		svc := &MockOrderService{
			DecideCancellationFunc: func(_ context.Context, _, _ string, _ bool, _ string) (*domain.Order, error) {
				return nil, domain.ErrCancellationNotRequested
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/cancellation/decision",
			DecisionRequest{Approve: true}, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_ProcessRefund(t *testing.T) {
	t.Run("успешный возврат — 200", func(t *testing.T) {
		svc := &MockOrderService{
			ProcessRefundFunc: func(_ context.Context, orderID, adminID string) (*domain.Order, error) {
				assert.Equal(t, "admin@craftshop.local", adminID)
				o := sampleOrder()
				o.Status = domain.OrderStatusCancelled
				o.Refund.Status = domain.RefundCompleted
				o.Refund.Amount = 500000
				o.Refund.GatewayRefundID = "rfnd_1"
				return o, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/refund", nil, adminHeaders)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "rfnd_1")
	})

	t.Run("возврат уже выполнен — 409", func(t *testing.T) {
		svc := &MockOrderService{
			ProcessRefundFunc: func(_ context.Context, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrRefundAlreadyCompleted
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/refund", nil, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("возврат обрабатывается — 409", func(t *testing.T) {
		svc := &MockOrderService{
			ProcessRefundFunc: func(_ context.Context, _, _ string) (*domain.Order, error) {
				return nil, domain.ErrRefundInProgress
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/refund", nil, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_ConfirmRevenue(t *testing.T) {
	t.Run("пустое тело — сумма по умолчанию", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmRevenueFunc: func(_ context.Context, orderID string, adminAmount *int64) (*domain.Order, error) {
				assert.Nil(t, adminAmount)
				o := sampleOrder()
				o.Status = domain.OrderStatusDelivered
				o.RevenueStatus = domain.RevenueConfirmed
				return o, nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/revenue/confirm", nil, adminHeaders)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"revenue_status":"confirmed"`)
	})

	t.Run("сумма администратора передаётся в сервис", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmRevenueFunc: func(_ context.Context, _ string, adminAmount *int64) (*domain.Order, error) {
				require.NotNil(t, adminAmount)
				assert.Equal(t, int64(95000), *adminAmount)
				return sampleOrder(), nil
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		amount := int64(95000)
		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/revenue/confirm",
			ConfirmRevenueRequest{Amount: &amount}, adminHeaders)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("заказ не доставлен — 409", func(t *testing.T) {
		svc := &MockOrderService{
			ConfirmRevenueFunc: func(_ context.Context, _ string, _ *int64) (*domain.Order, error) {
				return nil, domain.ErrRevenueNotDelivered
			},
		}
		router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

		w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/revenue/confirm", nil, adminHeaders)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAdminHandler_DecideReturn(t *testing.T) {
	svc := &MockOrderService{
		DecideReturnFunc: func(_ context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
			assert.False(t, approve)
			assert.Equal(t, "Следы использования", reason)
			o := sampleOrder()
			o.Status = domain.OrderStatusDelivered
			o.Return.Status = domain.CancellationRejected
			o.Return.RejectionReason = reason
			return o, nil
		},
	}
	router := newTestRouter(svc, &adminValidator{claims: adminClaims()})

	w := performJSON(t, router, http.MethodPost, "/api/v1/admin/orders/order-1/return/decision",
		DecisionRequest{Approve: false, Reason: "Следы использования"}, adminHeaders)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Следы использования")
}
