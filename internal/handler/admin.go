package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/middleware"
	"example.com/craftshop/internal/service"
	"example.com/craftshop/pkg/logger"
)

// AdminHandler — обработчик административных операций с заказами.
// Все маршруты защищены middleware аутентификации администратора.
type AdminHandler struct {
	orders service.OrderService
}

// NewAdminHandler создаёт обработчик административных операций.
func NewAdminHandler(orders service.OrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

// validOrderStatuses — допустимые значения фильтра по статусу.
var validOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusProcessing:    true,
	domain.OrderStatusConfirmed:     true,
	domain.OrderStatusManufacturing: true,
	domain.OrderStatusShipped:       true,
	domain.OrderStatusDelivered:     true,
	domain.OrderStatusCancelled:     true,
}

// UpdateStatusRequest — запрос на смену статуса заказа.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// DecisionRequest — решение администратора по запросу на отмену или возврат.
type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// ConfirmRevenueRequest — подтверждение выручки.
// Amount опционален: администратор может указать фактически полученную сумму.
type ConfirmRevenueRequest struct {
	Amount *int64 `json:"amount"`
}

// ListOrders возвращает список заказов с фильтром по статусу.
// GET /api/v1/admin/orders?status=processing&page=1&page_size=20
func (h *AdminHandler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var status *domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.OrderStatus(raw)
		if !validOrderStatuses[s] {
			log.Debug().Str("status", raw).Msg("Невалидный статус фильтра")
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Невалидный статус заказа",
			})
			return
		}
		status = &s
	}

	page, pageSize := parsePagination(c)

	orders, total, err := h.orders.ListOrders(ctx, status, page, pageSize)
	if err != nil {
		HandleServiceError(c, err, "Admin.ListOrders")
		return
	}

	c.JSON(http.StatusOK, buildListResponse(orders, total, page, pageSize))
}

// GetOrder возвращает заказ по ID.
// GET /api/v1/admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err, "Admin.GetOrder")
		return
	}

	c.JSON(http.StatusOK, orderToResponse(order))
}

// UpdateStatus переводит заказ в новый статус.
// PATCH /api/v1/admin/orders/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на смену статуса")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	newStatus := domain.OrderStatus(req.Status)
	if !validOrderStatuses[newStatus] {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидный статус заказа",
		})
		return
	}

	order, err := h.orders.UpdateStatus(ctx, c.Param("id"), newStatus)
	if err != nil {
		HandleServiceError(c, err, "Admin.UpdateStatus")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Str("status", string(order.Status)).
		Str("admin_id", c.GetString(middleware.ContextAdminID)).
		Msg("Статус заказа изменён")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// DecideCancellation одобряет или отклоняет запрос на отмену заказа.
// POST /api/v1/admin/orders/:id/cancellation/decision
func (h *AdminHandler) DecideCancellation(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидное решение по отмене")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	adminID := c.GetString(middleware.ContextAdminID)

	order, err := h.orders.DecideCancellation(ctx, c.Param("id"), adminID, req.Approve, req.Reason)
	if err != nil {
		HandleServiceError(c, err, "Admin.DecideCancellation")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Bool("approved", req.Approve).
		Str("admin_id", adminID).
		Msg("Решение по запросу на отмену принято")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// ProcessRefund выполняет денежный возврат по отменённому заказу.
// POST /api/v1/admin/orders/:id/refund
func (h *AdminHandler) ProcessRefund(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	adminID := c.GetString(middleware.ContextAdminID)

	order, err := h.orders.ProcessRefund(ctx, c.Param("id"), adminID)
	if err != nil {
		HandleServiceError(c, err, "Admin.ProcessRefund")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Str("admin_id", adminID).
		Int64("amount", order.Refund.Amount).
		Msg("Возврат выполнен")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// ConfirmRevenue подтверждает выручку доставленного заказа.
// POST /api/v1/admin/orders/:id/revenue/confirm
func (h *AdminHandler) ConfirmRevenue(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	// Пустое тело допустимо — сумма опциональна
	var req ConfirmRevenueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Debug().Err(err).Msg("Невалидный запрос подтверждения выручки")
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "Невалидные данные запроса",
			})
			return
		}
	}

	order, err := h.orders.ConfirmRevenue(ctx, c.Param("id"), req.Amount)
	if err != nil {
		HandleServiceError(c, err, "Admin.ConfirmRevenue")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Int64("admin_received", order.AdminReceivedAmount).
		Msg("Выручка подтверждена")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// DecideReturn одобряет или отклоняет запрос на возврат товара.
// POST /api/v1/admin/orders/:id/return/decision
func (h *AdminHandler) DecideReturn(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидное решение по возврату товара")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	adminID := c.GetString(middleware.ContextAdminID)

	order, err := h.orders.DecideReturn(ctx, c.Param("id"), adminID, req.Approve, req.Reason)
	if err != nil {
		HandleServiceError(c, err, "Admin.DecideReturn")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Bool("approved", req.Approve).
		Str("admin_id", adminID).
		Msg("Решение по возврату товара принято")

	c.JSON(http.StatusOK, orderToResponse(order))
}
