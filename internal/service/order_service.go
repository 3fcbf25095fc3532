// Package service содержит бизнес-логику жизненного цикла заказов.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/event"
	"example.com/craftshop/internal/gateway"
	"example.com/craftshop/internal/repository"
	"example.com/craftshop/pkg/config"
	"example.com/craftshop/pkg/logger"
	"example.com/craftshop/pkg/metrics"
	"example.com/craftshop/pkg/outbox"
)

// Константы для валидации пагинации.
const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	minPageSize     = 1
)

// refundLockPrefix — префикс Redis-блокировки обработки возврата.
const refundLockPrefix = "refund:lock:"

// CreateOrderInput — входные данные создания заказа.
// PaymentStatus принимается как сырая строка и нормализуется.
type CreateOrderInput struct {
	Customer      domain.Customer
	Address       domain.Address
	Items         []domain.OrderItem
	TotalAmount   int64
	UpfrontAmount int64
	PaymentMethod domain.PaymentMethod
	PaymentStatus string
}

// OrderService определяет интерфейс бизнес-логики заказов.
type OrderService interface {
	// CreateOrder создаёт заказ: валидация, нормализация статуса оплаты,
	// начальная выручка, данные доставки и счёта, заказ шлюза для онлайн-оплаты.
	// Заказ и события записываются атомарно.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)

	// GetOrder возвращает заказ по ID.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrders возвращает заказы с опциональным фильтром по статусу и пагинацией.
	ListOrders(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error)

	// ListOrdersByEmail возвращает заказы покупателя по email.
	ListOrdersByEmail(ctx context.Context, email string, page, pageSize int) ([]*domain.Order, int64, error)

	// UpdateStatus переводит заказ в новый статус.
	// Заказ с одобренной отменой заморожен и отклоняет любые изменения.
	UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error)

	// ConfirmPayment обрабатывает callback платёжного шлюза об успешной оплате.
	ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*domain.Order, error)

	// RequestCancellation подаёт запрос покупателя на отмену заказа.
	RequestCancellation(ctx context.Context, orderID, email, reason string) (*domain.Order, error)

	// DecideCancellation одобряет или отклоняет запрос на отмену.
	// При одобрении восстанавливает остатки и помечает возврат как pending.
	DecideCancellation(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error)

	// ProcessRefund выполняет денежный возврат по отменённому заказу.
	// Идемпотентен: повторный вызов по выполненному возврату возвращает ошибку,
	// параллельные вызовы исключаются блокировкой и атомарным захватом в БД.
	ProcessRefund(ctx context.Context, orderID, adminID string) (*domain.Order, error)

	// ConfirmRevenue подтверждает выручку доставленного заказа.
	ConfirmRevenue(ctx context.Context, orderID string, adminAmount *int64) (*domain.Order, error)

	// RequestReturn подаёт запрос на возврат товара после доставки.
	RequestReturn(ctx context.Context, orderID, reason string) (*domain.Order, error)

	// DecideReturn одобряет или отклоняет запрос на возврат товара.
	DecideReturn(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error)

	// DownloadInvoice возвращает заказ для выставления счёта
	// и увеличивает счётчик скачиваний.
	DownloadInvoice(ctx context.Context, orderID string) (*domain.Order, error)
}

// orderService — реализация OrderService.
type orderService struct {
	repo     repository.OrderRepository
	products repository.ProductRepository
	gateway  gateway.PaymentGateway
	redis    *redis.Client
	cfg      config.ShopConfig
}

// NewOrderService создаёт сервис заказов.
// redis может быть nil — тогда блокировка возврата опирается только на БД.
func NewOrderService(
	repo repository.OrderRepository,
	products repository.ProductRepository,
	gw gateway.PaymentGateway,
	redisClient *redis.Client,
	cfg config.ShopConfig,
) OrderService {
	return &orderService{
		repo:     repo,
		products: products,
		gateway:  gw,
		redis:    redisClient,
		cfg:      cfg,
	}
}

// CreateOrder создаёт новый заказ.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	orderID := uuid.New().String()
	now := time.Now()

	order := &domain.Order{
		ID:            orderID,
		Customer:      input.Customer,
		Address:       input.Address,
		Items:         input.Items,
		TotalAmount:   input.TotalAmount,
		UpfrontAmount: input.UpfrontAmount,
		PaymentMethod: input.PaymentMethod,
		Status:        domain.OrderStatusProcessing,
		PaymentStatus: domain.NormalizePaymentStatus(input.PaymentStatus),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := order.Validate(); err != nil {
		log.Warn().Err(err).Str("email", input.Customer.Email).Msg("Ошибка валидации заказа")
		return nil, err
	}

	if order.PaymentMethod == domain.PaymentMethodCOD {
		order.RemainingAmount = order.TotalAmount - order.UpfrontAmount
		if order.UpfrontAmount > 0 && order.PaymentStatus == domain.PaymentStatusPending {
			order.PaymentStatus = domain.PaymentStatusPendingUpfront
		}
	}

	order.InitRevenue()

	// Данные доставки и счёта — детерминированные функции заказа
	eta := domain.EstimateDeliveryDate(now, order.Address.State)
	order.Tracking = domain.Tracking{
		TrackingNumber:        domain.GenerateTrackingNumber(now, orderID),
		CourierProvider:       domain.AssignCourier(order.Address.State),
		EstimatedDeliveryDate: &eta,
	}
	order.Invoice = domain.Invoice{
		InvoiceNumber: domain.GenerateInvoiceNumber(now, orderID),
		GeneratedAt:   now,
	}

	// Заказ шлюза: полная сумма для онлайн-оплаты, предоплата для COD
	if chargeable := s.gatewayAmount(order); chargeable > 0 {
		gwOrder, err := s.gateway.CreateOrder(ctx, chargeable, orderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка создания заказа в платёжном шлюзе")
			return nil, fmt.Errorf("ошибка создания заказа в шлюзе: %w", err)
		}
		order.GatewayOrderID = gwOrder.ID
	}

	events, err := s.creationEvents(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateWithEvents(ctx, order, events); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка создания заказа")
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	metrics.OrdersCreatedTotal.WithLabelValues(string(order.PaymentMethod)).Inc()
	log.Info().
		Str("order_id", order.ID).
		Str("payment_method", string(order.PaymentMethod)).
		Int64("total_amount", order.TotalAmount).
		Int("items_count", len(order.Items)).
		Msg("Заказ успешно создан")

	return order, nil
}

// gatewayAmount возвращает сумму, которую нужно собрать через шлюз при создании.
func (s *orderService) gatewayAmount(o *domain.Order) int64 {
	if o.PaymentMethod == domain.PaymentMethodCOD {
		return o.UpfrontAmount
	}
	return o.TotalAmount
}

// creationEvents формирует записи outbox для созданного заказа.
func (s *orderService) creationEvents(ctx context.Context, order *domain.Order) ([]*outbox.Outbox, error) {
	adjustments := make([]event.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID == "" {
			continue // Индивидуальная позиция без товара каталога
		}
		adjustments = append(adjustments, event.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     -item.Quantity,
		})
	}

	payload, err := event.Wrap(event.TypeOrderCreated, order.ID, &event.OrderCreated{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		CustomerName:  order.Customer.Name,
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.TotalAmount,
		UpfrontAmount: order.UpfrontAmount,
		Stock:         adjustments,
		CreatedAt:     order.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события создания заказа: %w", err)
	}

	return []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeOrderCreated, payload, s.eventHeaders(ctx)),
	}, nil
}

// eventHeaders переносит trace_id запроса в заголовки события.
func (s *orderService) eventHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		headers["trace_id"] = traceID
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		headers["correlation_id"] = correlationID
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// wrapEvent сериализует событие заказа для outbox.
// Ошибка сериализации логируется и даёт nil: запись заказа —
// источник истины, событие не должно её блокировать.
func (s *orderService) wrapEvent(ctx context.Context, eventType, orderID string, payload any) []byte {
	data, err := event.Wrap(eventType, orderID, payload)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("order_id", orderID).
			Str("event_type", eventType).
			Msg("Сериализация события заказа")
		return nil
	}
	return data
}

// GetOrder возвращает заказ по ID.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// normalizePagination приводит параметры пагинации к допустимым значениям.
func normalizePagination(page, pageSize int) (offset, limit int) {
	if page < defaultPage {
		page = defaultPage
	}
	if pageSize < minPageSize {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

// ListOrders возвращает заказы с фильтром по статусу и пагинацией.
func (s *orderService) ListOrders(ctx context.Context, status *domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	offset, limit := normalizePagination(page, pageSize)
	return s.repo.List(ctx, status, offset, limit)
}

// ListOrdersByEmail возвращает заказы покупателя по email.
func (s *orderService) ListOrdersByEmail(ctx context.Context, email string, page, pageSize int) ([]*domain.Order, int64, error) {
	offset, limit := normalizePagination(page, pageSize)
	return s.repo.ListByEmail(ctx, email, offset, limit)
}

// UpdateStatus переводит заказ в новый статус.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Замороженный заказ отклоняет любые изменения
	if order.IsFrozen() {
		return nil, domain.ErrOrderFrozen
	}

	fromStatus := order.Status
	if err := order.Transition(newStatus, s.cfg.CommissionBps); err != nil {
		log.Warn().
			Str("order_id", orderID).
			Str("from", string(fromStatus)).
			Str("to", string(newStatus)).
			Msg("Недопустимый переход статуса заказа")
		return nil, err
	}

	payload, err := event.Wrap(event.TypeStatusChanged, order.ID, &event.StatusChanged{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		From:          string(fromStatus),
		To:            string(newStatus),
		PaymentStatus: string(order.PaymentStatus),
		RevenueStatus: string(order.RevenueStatus),
		ChangedAt:     order.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события смены статуса: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeStatusChanged, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка сохранения заказа")
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(fromStatus), string(newStatus)).Inc()
	log.Info().
		Str("order_id", orderID).
		Str("from", string(fromStatus)).
		Str("to", string(newStatus)).
		Str("revenue_status", string(order.RevenueStatus)).
		Msg("Статус заказа изменён")

	return order, nil
}

// ConfirmPayment обрабатывает callback платёжного шлюза об успешной оплате.
func (s *orderService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifySignature(order.GatewayOrderID, paymentID, signature) {
		log.Warn().
			Str("order_id", orderID).
			Str("payment_id", paymentID).
			Msg("Неверная подпись callback платёжного шлюза")
		return nil, domain.ErrInvalidSignature
	}

	if err := order.ConfirmPayment(paymentID, signature, s.cfg.CommissionBps); err != nil {
		return nil, err
	}

	// Предоплата COD подтверждена — остаток при доставке
	if order.PaymentMethod == domain.PaymentMethodCOD && order.RemainingAmount > 0 {
		order.PaymentStatus = domain.PaymentStatusPendingUpfront
		order.InitRevenue()
	}

	payload, err := event.Wrap(event.TypePaymentConfirmed, order.ID, &event.PaymentConfirmed{
		OrderID:          order.ID,
		CustomerEmail:    order.Customer.Email,
		GatewayPaymentID: paymentID,
		Amount:           order.ChargedAmount(),
		ConfirmedAt:      order.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события оплаты: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypePaymentConfirmed, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Ошибка сохранения заказа после оплаты")
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Str("payment_id", paymentID).
		Str("revenue_status", string(order.RevenueStatus)).
		Msg("Оплата подтверждена")

	return order, nil
}

// RequestCancellation подаёт запрос покупателя на отмену заказа.
func (s *orderService) RequestCancellation(ctx context.Context, orderID, email, reason string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Email служит подтверждением владения заказом; несовпадение логируем,
	// но запрос не отклоняем — решение остаётся за администратором
	if email != "" && email != order.Customer.Email {
		log.Warn().
			Str("order_id", orderID).
			Str("request_email", email).
			Msg("Email запроса отмены не совпадает с email заказа")
	}

	if err := order.RequestCancellation(reason); err != nil {
		return nil, err
	}

	payload, err := event.Wrap(event.TypeCancellationRequested, order.ID, &event.CancellationRequested{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		Reason:        reason,
		RequestedAt:   *order.Cancellation.RequestedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события запроса отмены: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeCancellationRequested, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	log.Info().Str("order_id", orderID).Msg("Подан запрос на отмену заказа")
	return order, nil
}

// DecideCancellation одобряет или отклоняет запрос на отмену.
func (s *orderService) DecideCancellation(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !approve {
		if err := order.RejectCancellation(adminID, reason); err != nil {
			return nil, err
		}

		payload, err := event.Wrap(event.TypeCancellationRejected, order.ID, &event.CancellationRejected{
			OrderID:       order.ID,
			CustomerEmail: order.Customer.Email,
			RejectedBy:    adminID,
			Reason:        reason,
			RejectedAt:    order.UpdatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("сериализация события отклонения отмены: %w", err)
		}

		events := []*outbox.Outbox{
			outbox.NewOrderRecord(order.ID, event.TypeCancellationRejected, payload, s.eventHeaders(ctx)),
		}
		if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
			return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
		}

		log.Info().Str("order_id", orderID).Str("admin_id", adminID).Msg("Запрос на отмену отклонён")
		return order, nil
	}

	fromStatus := order.Status
	requiresRefund, err := order.ApproveCancellation(adminID, s.cfg.CommissionBps)
	if err != nil {
		return nil, err
	}

	// Одобренная отмена восстанавливает остатки товаров
	adjustments := make([]event.StockAdjustment, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID == "" {
			continue
		}
		adjustments = append(adjustments, event.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
		})
	}

	payload, err := event.Wrap(event.TypeCancellationApproved, order.ID, &event.CancellationApproved{
		OrderID:        order.ID,
		CustomerEmail:  order.Customer.Email,
		ApprovedBy:     adminID,
		RequiresRefund: requiresRefund,
		RefundAmount:   order.Refund.Amount,
		Stock:          adjustments,
		ApprovedAt:     *order.Cancellation.ApprovedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события одобрения отмены: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeCancellationApproved, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(fromStatus), string(domain.OrderStatusCancelled)).Inc()
	log.Info().
		Str("order_id", orderID).
		Str("admin_id", adminID).
		Bool("requires_refund", requiresRefund).
		Int64("refund_amount", order.Refund.Amount).
		Msg("Запрос на отмену одобрен")

	return order, nil
}

// ProcessRefund выполняет денежный возврат по отменённому заказу.
func (s *orderService) ProcessRefund(ctx context.Context, orderID, adminID string) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	// Быстрая блокировка в Redis отсекает параллельные запросы до похода в БД.
	// Источник истины — условный UPDATE в ClaimRefund; Redis лишь оптимизация,
	// его недоступность не блокирует возврат.
	if s.redis != nil {
		lockKey := refundLockPrefix + orderID
		acquired, err := s.redis.SetNX(ctx, lockKey, adminID, s.cfg.RefundLockTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("Redis недоступен, блокировка возврата пропущена")
		} else if !acquired {
			return nil, domain.ErrRefundInProgress
		} else {
			defer s.redis.Del(context.WithoutCancel(ctx), lockKey)
		}
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.CheckRefundable(); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("Предусловия возврата не выполнены")
		return nil, err
	}

	// Атомарный захват: проигравший гонку получает ErrRefundInProgress
	if err := s.repo.ClaimRefund(ctx, orderID); err != nil {
		return nil, err
	}
	order.Refund.Status = domain.RefundProcessing

	paymentID, err := s.resolvePaymentID(ctx, order)
	if err != nil {
		s.failRefund(ctx, order, err.Error())
		return nil, err
	}

	if order.Refund.MerchantRefundID == "" {
		order.Refund.MerchantRefundID = uuid.New().String()
	}

	amount := order.RefundableAmount()
	result, err := s.gateway.Refund(ctx, paymentID, amount, map[string]string{
		"order_id":           order.ID,
		"merchant_refund_id": order.Refund.MerchantRefundID,
		"initiated_by":       adminID,
	})
	if err != nil {
		log.Error().Err(err).
			Str("order_id", orderID).
			Int64("amount", amount).
			Msg("Шлюз отклонил возврат средств")
		s.failRefund(ctx, order, err.Error())
		metrics.RefundsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	order.CompleteRefund(result.ID)

	// Средства уже возвращены шлюзом — завершённое состояние обязано
	// сохраниться даже при ошибке сериализации события
	payload := s.wrapEvent(ctx, event.TypeRefundCompleted, order.ID, &event.RefundCompleted{
		OrderID:         order.ID,
		CustomerEmail:   order.Customer.Email,
		GatewayRefundID: result.ID,
		Amount:          amount,
		CompletedAt:     *order.Refund.CompletedAt,
	})

	var events []*outbox.Outbox
	if payload != nil {
		events = append(events, outbox.NewOrderRecord(order.ID, event.TypeRefundCompleted, payload, s.eventHeaders(ctx)))
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		// Возврат в шлюзе прошёл, но состояние не сохранилось — требуется сверка
		log.Error().Err(err).
			Str("order_id", orderID).
			Str("gateway_refund_id", result.ID).
			Msg("КРИТИЧНО: возврат выполнен шлюзом, но не сохранён в БД")
		return nil, fmt.Errorf("ошибка сохранения возврата: %w", err)
	}

	metrics.RefundsTotal.WithLabelValues("completed").Inc()
	log.Info().
		Str("order_id", orderID).
		Str("gateway_refund_id", result.ID).
		Int64("amount", amount).
		Msg("Возврат средств выполнен")

	return order, nil
}

// resolvePaymentID возвращает идентификатор платежа для возврата.
// У COD заказа с предоплатой TransactionID может отсутствовать —
// транзакция ищется среди платежей заказа шлюза.
func (s *orderService) resolvePaymentID(ctx context.Context, order *domain.Order) (string, error) {
	if order.TransactionID != "" {
		return order.TransactionID, nil
	}

	payments, err := s.gateway.FetchPaymentsForOrder(ctx, order.GatewayOrderID)
	if err != nil {
		return "", fmt.Errorf("поиск транзакции предоплаты: %w", err)
	}

	for _, p := range payments {
		if p.Captured {
			return p.ID, nil
		}
	}
	return "", domain.ErrRefundNoUpfrontTransaction
}

// failRefund фиксирует неудачный возврат. Ошибка сохранения только логируется —
// исходная ошибка возврата важнее для вызывающего.
func (s *orderService) failRefund(ctx context.Context, order *domain.Order, reason string) {
	order.FailRefund(reason)

	payload := s.wrapEvent(ctx, event.TypeRefundFailed, order.ID, &event.RefundFailed{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		Reason:        reason,
		FailedAt:      order.UpdatedAt,
	})

	var events []*outbox.Outbox
	if payload != nil {
		events = append(events, outbox.NewOrderRecord(order.ID, event.TypeRefundFailed, payload, s.eventHeaders(ctx)))
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("order_id", order.ID).
			Msg("Ошибка сохранения неудачного возврата")
	}
}

// ConfirmRevenue подтверждает выручку доставленного заказа.
func (s *orderService) ConfirmRevenue(ctx context.Context, orderID string, adminAmount *int64) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.ConfirmRevenue(adminAmount); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateWithEvents(ctx, order, nil); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	log.Info().
		Str("order_id", orderID).
		Int64("admin_received_amount", order.AdminReceivedAmount).
		Msg("Выручка заказа подтверждена")

	return order, nil
}

// RequestReturn подаёт запрос на возврат товара после доставки.
func (s *orderService) RequestReturn(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.RequestReturn(reason); err != nil {
		return nil, err
	}

	payload, err := event.Wrap(event.TypeReturnRequested, order.ID, &event.ReturnRequested{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		Reason:        reason,
		RequestedAt:   *order.Return.RequestedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события запроса возврата товара: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeReturnRequested, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("order_id", orderID).Msg("Подан запрос на возврат товара")
	return order, nil
}

// DecideReturn одобряет или отклоняет запрос на возврат товара.
func (s *orderService) DecideReturn(ctx context.Context, orderID, adminID string, approve bool, reason string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if approve {
		err = order.ApproveReturn(adminID)
	} else {
		err = order.RejectReturn(adminID, reason)
	}
	if err != nil {
		return nil, err
	}

	payload, err := event.Wrap(event.TypeReturnDecided, order.ID, &event.ReturnDecided{
		OrderID:       order.ID,
		CustomerEmail: order.Customer.Email,
		Approved:      approve,
		DecidedBy:     adminID,
		Reason:        reason,
		DecidedAt:     order.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация события решения по возврату товара: %w", err)
	}

	events := []*outbox.Outbox{
		outbox.NewOrderRecord(order.ID, event.TypeReturnDecided, payload, s.eventHeaders(ctx)),
	}

	if err := s.repo.UpdateWithEvents(ctx, order, events); err != nil {
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("order_id", orderID).
		Str("admin_id", adminID).
		Bool("approved", approve).
		Msg("Решение по возврату товара принято")

	return order, nil
}

// DownloadInvoice возвращает заказ и увеличивает счётчик скачиваний счёта.
func (s *orderService) DownloadInvoice(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementInvoiceDownloads(ctx, orderID); err != nil {
		// Счётчик не критичен для выдачи счёта
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("order_id", orderID).
			Msg("Ошибка инкремента счётчика скачиваний счёта")
	} else {
		order.Invoice.DownloadCount++
	}

	return order, nil
}
