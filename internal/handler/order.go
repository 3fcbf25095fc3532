package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/service"
	"example.com/craftshop/pkg/logger"
)

// OrderHandler — обработчик публичных операций с заказами.
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// === Request/Response DTOs ===

// CreateOrderRequest — запрос на создание заказа.
// Все суммы — в минимальных единицах (пайсы).
type CreateOrderRequest struct {
	Customer      CustomerRequest          `json:"customer" binding:"required"`
	Address       AddressRequest           `json:"address" binding:"required"`
	Items         []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount   int64                    `json:"total_amount" binding:"required,min=1"`
	UpfrontAmount int64                    `json:"upfront_amount" binding:"min=0"`
	PaymentMethod string                   `json:"payment_method" binding:"required"`
	PaymentStatus string                   `json:"payment_status"`
}

// CustomerRequest — данные покупателя в запросе.
type CustomerRequest struct {
	Name  string `json:"name" binding:"required,min=1"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required,min=5"`
}

// AddressRequest — адрес доставки в запросе.
type AddressRequest struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Pincode string `json:"pincode" binding:"required"`
	Country string `json:"country" binding:"required"`
}

// CreateOrderItemRequest — позиция в запросе на создание заказа.
type CreateOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name" binding:"required,min=1"`
	UnitPrice int64  `json:"unit_price" binding:"required,min=1"`
	Quantity  int32  `json:"quantity" binding:"required,min=1"`
	Image     string `json:"image"`
}

// PaymentCallbackRequest — callback платёжного шлюза после оплаты.
type PaymentCallbackRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	GatewaySignature string `json:"razorpay_signature" binding:"required"`
}

// CancellationRequest — запрос покупателя на отмену заказа.
type CancellationRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Reason string `json:"reason" binding:"required,min=1"`
}

// ReturnRequest — запрос на возврат товара после доставки.
type ReturnRequest struct {
	Reason string `json:"reason" binding:"required,min=1"`
}

// OrderResponse — заказ в ответе API.
type OrderResponse struct {
	ID       string              `json:"id"`
	Customer CustomerRequest     `json:"customer"`
	Address  AddressRequest      `json:"address"`
	Items    []OrderItemResponse `json:"items"`

	TotalAmount     int64 `json:"total_amount"`
	UpfrontAmount   int64 `json:"upfront_amount"`
	RemainingAmount int64 `json:"remaining_amount"`

	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	RevenueStatus       string `json:"revenue_status"`
	RevenueAmount       int64  `json:"revenue_amount"`
	AdminReceivedAmount int64  `json:"admin_received_amount"`

	GatewayOrderID string `json:"gateway_order_id,omitempty"`

	Cancellation *CancellationResponse `json:"cancellation,omitempty"`
	Refund       *RefundResponse       `json:"refund,omitempty"`
	Return       *CancellationResponse `json:"return,omitempty"`
	Tracking     TrackingResponse      `json:"tracking"`
	Invoice      InvoiceResponse       `json:"invoice"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItemResponse — позиция заказа в ответе.
type OrderItemResponse struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// CancellationResponse — состояние запроса на отмену или возврат товара.
type CancellationResponse struct {
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	RequestedAt     *time.Time `json:"requested_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// RefundResponse — состояние денежного возврата.
type RefundResponse struct {
	Status           string     `json:"status"`
	Amount           int64      `json:"amount"`
	GatewayRefundID  string     `json:"gateway_refund_id,omitempty"`
	MerchantRefundID string     `json:"merchant_refund_id,omitempty"`
	InitiatedAt      *time.Time `json:"initiated_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FailedReason     string     `json:"failed_reason,omitempty"`
}

// TrackingResponse — данные доставки в ответе.
type TrackingResponse struct {
	TrackingNumber        string     `json:"tracking_number"`
	CourierProvider       string     `json:"courier_provider"`
	TrackingURL           string     `json:"tracking_url,omitempty"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *time.Time `json:"actual_delivery_date,omitempty"`
}

// InvoiceResponse — данные счёта в ответе.
type InvoiceResponse struct {
	InvoiceNumber string    `json:"invoice_number"`
	GeneratedAt   time.Time `json:"generated_at"`
	DownloadCount int       `json:"download_count"`
}

// ListOrdersResponse — список заказов с пагинацией.
type ListOrdersResponse struct {
	Orders     []OrderResponse    `json:"orders"`
	Pagination PaginationResponse `json:"pagination"`
}

// PaginationResponse — информация о пагинации.
type PaginationResponse struct {
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalItems  int64 `json:"total_items"`
}

// === Handlers ===

// CreateOrder создаёт новый заказ.
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на создание заказа")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	order, err := h.orders.CreateOrder(ctx, service.CreateOrderInput{
		Customer: domain.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Address: domain.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			Pincode: req.Address.Pincode,
			Country: req.Address.Country,
		},
		Items:         items,
		TotalAmount:   req.TotalAmount,
		UpfrontAmount: req.UpfrontAmount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		HandleServiceError(c, err, "CreateOrder")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Str("payment_method", string(order.PaymentMethod)).
		Int("items_count", len(order.Items)).
		Msg("Заказ создан")

	c.JSON(http.StatusCreated, orderToResponse(order))
}

// GetOrder возвращает заказ по ID.
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err, "GetOrder")
		return
	}

	c.JSON(http.StatusOK, orderToResponse(order))
}

// ListMyOrders возвращает заказы покупателя по email.
// GET /api/v1/orders?email=...&page=1&page_size=20
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	ctx := c.Request.Context()

	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Параметр email обязателен",
		})
		return
	}

	page, pageSize := parsePagination(c)

	orders, total, err := h.orders.ListOrdersByEmail(ctx, email, page, pageSize)
	if err != nil {
		HandleServiceError(c, err, "ListMyOrders")
		return
	}

	c.JSON(http.StatusOK, buildListResponse(orders, total, page, pageSize))
}

// PaymentCallback обрабатывает callback платёжного шлюза об успешной оплате.
// POST /api/v1/orders/:id/payment
func (h *OrderHandler) PaymentCallback(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный callback шлюза")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	order, err := h.orders.ConfirmPayment(ctx, c.Param("id"), req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		HandleServiceError(c, err, "PaymentCallback")
		return
	}

	log.Info().
		Str("order_id", order.ID).
		Str("payment_id", req.GatewayPaymentID).
		Msg("Оплата подтверждена")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// RequestCancellation подаёт запрос покупателя на отмену заказа.
// POST /api/v1/orders/:id/cancellation
func (h *OrderHandler) RequestCancellation(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на отмену")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	order, err := h.orders.RequestCancellation(ctx, c.Param("id"), req.Email, req.Reason)
	if err != nil {
		HandleServiceError(c, err, "RequestCancellation")
		return
	}

	log.Info().Str("order_id", order.ID).Msg("Запрос на отмену подан")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// RequestReturn подаёт запрос на возврат товара после доставки.
// POST /api/v1/orders/:id/return
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на возврат товара")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	order, err := h.orders.RequestReturn(ctx, c.Param("id"), req.Reason)
	if err != nil {
		HandleServiceError(c, err, "RequestReturn")
		return
	}

	log.Info().Str("order_id", order.ID).Msg("Запрос на возврат товара подан")

	c.JSON(http.StatusOK, orderToResponse(order))
}

// DownloadInvoice возвращает данные счёта и увеличивает счётчик скачиваний.
// GET /api/v1/orders/:id/invoice
func (h *OrderHandler) DownloadInvoice(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := h.orders.DownloadInvoice(ctx, c.Param("id"))
	if err != nil {
		HandleServiceError(c, err, "DownloadInvoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice": InvoiceResponse{
			InvoiceNumber: order.Invoice.InvoiceNumber,
			GeneratedAt:   order.Invoice.GeneratedAt,
			DownloadCount: order.Invoice.DownloadCount,
		},
		"order": orderToResponse(order),
	})
}

// === Helpers ===

// parsePagination извлекает параметры пагинации из query string.
// Границы значений проверяются в сервисном слое.
func parsePagination(c *gin.Context) (int, int) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)
	return page, pageSize
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func buildListResponse(orders []*domain.Order, total int64, page, pageSize int) ListOrdersResponse {
	responses := make([]OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = orderToResponse(o)
	}
	return ListOrdersResponse{
		Orders: responses,
		Pagination: PaginationResponse{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
		},
	}
}

// orderToResponse преобразует доменный заказ в DTO ответа.
func orderToResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	resp := OrderResponse{
		ID: o.ID,
		Customer: CustomerRequest{
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
			Phone: o.Customer.Phone,
		},
		Address: AddressRequest{
			Street:  o.Address.Street,
			City:    o.Address.City,
			State:   o.Address.State,
			Pincode: o.Address.Pincode,
			Country: o.Address.Country,
		},
		Items:               items,
		TotalAmount:         o.TotalAmount,
		UpfrontAmount:       o.UpfrontAmount,
		RemainingAmount:     o.RemainingAmount,
		PaymentMethod:       string(o.PaymentMethod),
		Status:              string(o.Status),
		PaymentStatus:       string(o.PaymentStatus),
		RevenueStatus:       string(o.RevenueStatus),
		RevenueAmount:       o.RevenueAmount,
		AdminReceivedAmount: o.AdminReceivedAmount,
		GatewayOrderID:      o.GatewayOrderID,
		Tracking: TrackingResponse{
			TrackingNumber:        o.Tracking.TrackingNumber,
			CourierProvider:       o.Tracking.CourierProvider,
			TrackingURL:           o.Tracking.TrackingURL,
			EstimatedDeliveryDate: o.Tracking.EstimatedDeliveryDate,
			ActualDeliveryDate:    o.Tracking.ActualDeliveryDate,
		},
		Invoice: InvoiceResponse{
			InvoiceNumber: o.Invoice.InvoiceNumber,
			GeneratedAt:   o.Invoice.GeneratedAt,
			DownloadCount: o.Invoice.DownloadCount,
		},
		CancelledAt: o.CancelledAt,
		CancelledBy: o.CancelledBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}

	if o.Cancellation.Status != "" && o.Cancellation.Status != domain.CancellationNone {
		resp.Cancellation = &CancellationResponse{
			Status:          string(o.Cancellation.Status),
			Reason:          o.Cancellation.Reason,
			RequestedAt:     o.Cancellation.RequestedAt,
			ApprovedBy:      o.Cancellation.ApprovedBy,
			ApprovedAt:      o.Cancellation.ApprovedAt,
			RejectionReason: o.Cancellation.RejectionReason,
		}
	}

	if o.Refund.Status != "" && o.Refund.Status != domain.RefundNone {
		resp.Refund = &RefundResponse{
			Status:           string(o.Refund.Status),
			Amount:           o.Refund.Amount,
			GatewayRefundID:  o.Refund.GatewayRefundID,
			MerchantRefundID: o.Refund.MerchantRefundID,
			InitiatedAt:      o.Refund.InitiatedAt,
			CompletedAt:      o.Refund.CompletedAt,
			FailedReason:     o.Refund.FailedReason,
		}
	}

	if o.Return.Status != "" && o.Return.Status != domain.CancellationNone {
		resp.Return = &CancellationResponse{
			Status:          string(o.Return.Status),
			Reason:          o.Return.Reason,
			RequestedAt:     o.Return.RequestedAt,
			ApprovedBy:      o.Return.ApprovedBy,
			ApprovedAt:      o.Return.ApprovedAt,
			RejectionReason: o.Return.RejectionReason,
		}
	}

	return resp
}
