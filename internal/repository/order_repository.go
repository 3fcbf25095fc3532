// Package repository содержит реализацию доступа к данным магазина.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/pkg/outbox"
)

// OrderRepository определяет интерфейс для работы с заказами в БД.
type OrderRepository interface {
	// CreateWithEvents создаёт заказ с позициями и записями outbox
	// в одной транзакции. Событие и бизнес-данные либо записываются
	// вместе, либо не записываются вовсе.
	CreateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error

	// GetByID возвращает заказ по ID с загруженными позициями.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// ListByEmail возвращает заказы покупателя по email с пагинацией.
	// Email сравнивается в нижнем регистре.
	ListByEmail(ctx context.Context, email string, offset, limit int) ([]*domain.Order, int64, error)

	// List возвращает заказы с опциональным фильтром по статусу и пагинацией.
	// Возвращает список и общее количество записей (для пагинации).
	List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error)

	// UpdateWithEvents сохраняет изменённое состояние заказа и записи outbox
	// в одной транзакции. events может быть пустым.
	UpdateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error

	// ClaimRefund атомарно захватывает заказ для обработки возврата:
	// переводит refund_status в processing, если возврат ещё не обрабатывается
	// и не завершён. Возвращает ErrRefundInProgress при проигранной гонке.
	ClaimRefund(ctx context.Context, orderID string) error

	// IncrementInvoiceDownloads увеличивает счётчик скачиваний счёта.
	IncrementInvoiceDownloads(ctx context.Context, orderID string) error
}

// OrderModel — GORM модель для таблицы orders.
// Отделена от доменной сущности; вложенные записи (отмена, возврат,
// доставка, счёт) развёрнуты в колонки одной строки.
type OrderModel struct {
	ID string `gorm:"column:id;type:varchar(36);primaryKey"`

	CustomerName  string `gorm:"column:customer_name;type:varchar(255);not null"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(255);not null;index"`
	CustomerPhone string `gorm:"column:customer_phone;type:varchar(20);not null"`

	AddressStreet  string `gorm:"column:address_street;type:varchar(255);not null"`
	AddressCity    string `gorm:"column:address_city;type:varchar(100);not null"`
	AddressState   string `gorm:"column:address_state;type:varchar(100);not null"`
	AddressPincode string `gorm:"column:address_pincode;type:varchar(10);not null"`
	AddressCountry string `gorm:"column:address_country;type:varchar(100);not null"`

	TotalAmount     int64 `gorm:"column:total_amount;not null"`
	UpfrontAmount   int64 `gorm:"column:upfront_amount;not null;default:0"`
	RemainingAmount int64 `gorm:"column:remaining_amount;not null;default:0"`

	PaymentMethod string `gorm:"column:payment_method;type:varchar(20);not null"`
	Status        string `gorm:"column:status;type:varchar(20);not null;index"`
	PaymentStatus string `gorm:"column:payment_status;type:varchar(20);not null"`

	RevenueStatus       string `gorm:"column:revenue_status;type:varchar(20);not null"`
	RevenueAmount       int64  `gorm:"column:revenue_amount;not null;default:0"`
	AdminReceivedAmount int64  `gorm:"column:admin_received_amount;not null;default:0"`

	GatewayOrderID   string `gorm:"column:gateway_order_id;type:varchar(64)"`
	GatewayPaymentID string `gorm:"column:gateway_payment_id;type:varchar(64)"`
	GatewaySignature string `gorm:"column:gateway_signature;type:varchar(128)"`
	TransactionID    string `gorm:"column:transaction_id;type:varchar(64)"`

	CancellationRequested       bool       `gorm:"column:cancellation_requested;not null;default:false"`
	CancellationReason          string     `gorm:"column:cancellation_reason;type:text"`
	CancellationRequestedAt     *time.Time `gorm:"column:cancellation_requested_at"`
	CancellationStatus          string     `gorm:"column:cancellation_status;type:varchar(20);not null;default:'none'"`
	CancellationApprovedBy      string     `gorm:"column:cancellation_approved_by;type:varchar(36)"`
	CancellationApprovedAt      *time.Time `gorm:"column:cancellation_approved_at"`
	CancellationRejectionReason string     `gorm:"column:cancellation_rejection_reason;type:text"`

	RefundStatus           string     `gorm:"column:refund_status;type:varchar(20);not null;default:'none'"`
	RefundAmount           int64      `gorm:"column:refund_amount;not null;default:0"`
	RefundGatewayRefundID  string     `gorm:"column:refund_gateway_refund_id;type:varchar(64)"`
	RefundMerchantRefundID string     `gorm:"column:refund_merchant_refund_id;type:varchar(64)"`
	RefundInitiatedAt      *time.Time `gorm:"column:refund_initiated_at"`
	RefundCompletedAt      *time.Time `gorm:"column:refund_completed_at"`
	RefundFailedReason     string     `gorm:"column:refund_failed_reason;type:text"`
	RefundMethod           string     `gorm:"column:refund_method;type:varchar(20)"`

	ReturnRequested       bool       `gorm:"column:return_requested;not null;default:false"`
	ReturnReason          string     `gorm:"column:return_reason;type:text"`
	ReturnRequestedAt     *time.Time `gorm:"column:return_requested_at"`
	ReturnStatus          string     `gorm:"column:return_status;type:varchar(20);not null;default:'none'"`
	ReturnApprovedBy      string     `gorm:"column:return_approved_by;type:varchar(36)"`
	ReturnApprovedAt      *time.Time `gorm:"column:return_approved_at"`
	ReturnRejectionReason string     `gorm:"column:return_rejection_reason;type:text"`

	TrackingNumber        string     `gorm:"column:tracking_number;type:varchar(32);uniqueIndex"`
	CourierProvider       string     `gorm:"column:courier_provider;type:varchar(50)"`
	TrackingURL           string     `gorm:"column:tracking_url;type:varchar(255)"`
	EstimatedDeliveryDate *time.Time `gorm:"column:estimated_delivery_date"`
	ActualDeliveryDate    *time.Time `gorm:"column:actual_delivery_date"`

	InvoiceNumber        string    `gorm:"column:invoice_number;type:varchar(32);uniqueIndex"`
	InvoiceGeneratedAt   time.Time `gorm:"column:invoice_generated_at"`
	InvoiceDownloadCount int       `gorm:"column:invoice_download_count;not null;default:0"`

	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CancelledBy string     `gorm:"column:cancelled_by;type:varchar(20)"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName возвращает имя таблицы в БД.
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel — GORM модель для таблицы order_items.
type OrderItemModel struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   string `gorm:"column:order_id;type:varchar(36);not null;index"`
	ProductID string `gorm:"column:product_id;type:varchar(36)"`
	Name      string `gorm:"column:name;type:varchar(255);not null"`
	UnitPrice int64  `gorm:"column:unit_price;not null"`
	Quantity  int32  `gorm:"column:quantity;not null"`
	Image     string `gorm:"column:image;type:varchar(255)"`
}

// TableName возвращает имя таблицы в БД.
func (OrderItemModel) TableName() string {
	return "order_items"
}

// toDomain конвертирует GORM модель заказа в доменную сущность.
func (m *OrderModel) toDomain() *domain.Order {
	order := &domain.Order{
		ID: m.ID,
		Customer: domain.Customer{
			Name:  m.CustomerName,
			Email: m.CustomerEmail,
			Phone: m.CustomerPhone,
		},
		Address: domain.Address{
			Street:  m.AddressStreet,
			City:    m.AddressCity,
			State:   m.AddressState,
			Pincode: m.AddressPincode,
			Country: m.AddressCountry,
		},
		TotalAmount:         m.TotalAmount,
		UpfrontAmount:       m.UpfrontAmount,
		RemainingAmount:     m.RemainingAmount,
		PaymentMethod:       domain.PaymentMethod(m.PaymentMethod),
		Status:              domain.OrderStatus(m.Status),
		PaymentStatus:       domain.PaymentStatus(m.PaymentStatus),
		RevenueStatus:       domain.RevenueStatus(m.RevenueStatus),
		RevenueAmount:       m.RevenueAmount,
		AdminReceivedAmount: m.AdminReceivedAmount,
		GatewayOrderID:      m.GatewayOrderID,
		GatewayPaymentID:    m.GatewayPaymentID,
		GatewaySignature:    m.GatewaySignature,
		TransactionID:       m.TransactionID,
		Cancellation: domain.Cancellation{
			Requested:       m.CancellationRequested,
			Reason:          m.CancellationReason,
			RequestedAt:     m.CancellationRequestedAt,
			Status:          domain.CancellationStatus(m.CancellationStatus),
			ApprovedBy:      m.CancellationApprovedBy,
			ApprovedAt:      m.CancellationApprovedAt,
			RejectionReason: m.CancellationRejectionReason,
		},
		Refund: domain.Refund{
			Status:           domain.RefundStatus(m.RefundStatus),
			Amount:           m.RefundAmount,
			GatewayRefundID:  m.RefundGatewayRefundID,
			MerchantRefundID: m.RefundMerchantRefundID,
			InitiatedAt:      m.RefundInitiatedAt,
			CompletedAt:      m.RefundCompletedAt,
			FailedReason:     m.RefundFailedReason,
			Method:           m.RefundMethod,
		},
		Return: domain.Return{
			Requested:       m.ReturnRequested,
			Reason:          m.ReturnReason,
			RequestedAt:     m.ReturnRequestedAt,
			Status:          domain.CancellationStatus(m.ReturnStatus),
			ApprovedBy:      m.ReturnApprovedBy,
			ApprovedAt:      m.ReturnApprovedAt,
			RejectionReason: m.ReturnRejectionReason,
		},
		Tracking: domain.Tracking{
			TrackingNumber:        m.TrackingNumber,
			CourierProvider:       m.CourierProvider,
			TrackingURL:           m.TrackingURL,
			EstimatedDeliveryDate: m.EstimatedDeliveryDate,
			ActualDeliveryDate:    m.ActualDeliveryDate,
		},
		Invoice: domain.Invoice{
			InvoiceNumber: m.InvoiceNumber,
			GeneratedAt:   m.InvoiceGeneratedAt,
			DownloadCount: m.InvoiceDownloadCount,
		},
		CancelledAt: m.CancelledAt,
		CancelledBy: m.CancelledBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Items:       make([]domain.OrderItem, len(m.Items)),
	}

	for i, item := range m.Items {
		order.Items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	return order
}

// orderModelFromDomain конвертирует доменную сущность заказа в GORM модель.
func orderModelFromDomain(o *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:                  o.ID,
		CustomerName:        o.Customer.Name,
		CustomerEmail:       strings.ToLower(o.Customer.Email),
		CustomerPhone:       o.Customer.Phone,
		AddressStreet:       o.Address.Street,
		AddressCity:         o.Address.City,
		AddressState:        o.Address.State,
		AddressPincode:      o.Address.Pincode,
		AddressCountry:      o.Address.Country,
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
		GatewayPaymentID:    o.GatewayPaymentID,
		GatewaySignature:    o.GatewaySignature,
		TransactionID:       o.TransactionID,

		CancellationRequested:       o.Cancellation.Requested,
		CancellationReason:          o.Cancellation.Reason,
		CancellationRequestedAt:     o.Cancellation.RequestedAt,
		CancellationStatus:          string(o.Cancellation.Status),
		CancellationApprovedBy:      o.Cancellation.ApprovedBy,
		CancellationApprovedAt:      o.Cancellation.ApprovedAt,
		CancellationRejectionReason: o.Cancellation.RejectionReason,

		RefundStatus:           string(o.Refund.Status),
		RefundAmount:           o.Refund.Amount,
		RefundGatewayRefundID:  o.Refund.GatewayRefundID,
		RefundMerchantRefundID: o.Refund.MerchantRefundID,
		RefundInitiatedAt:      o.Refund.InitiatedAt,
		RefundCompletedAt:      o.Refund.CompletedAt,
		RefundFailedReason:     o.Refund.FailedReason,
		RefundMethod:           o.Refund.Method,

		ReturnRequested:       o.Return.Requested,
		ReturnReason:          o.Return.Reason,
		ReturnRequestedAt:     o.Return.RequestedAt,
		ReturnStatus:          string(o.Return.Status),
		ReturnApprovedBy:      o.Return.ApprovedBy,
		ReturnApprovedAt:      o.Return.ApprovedAt,
		ReturnRejectionReason: o.Return.RejectionReason,

		TrackingNumber:        o.Tracking.TrackingNumber,
		CourierProvider:       o.Tracking.CourierProvider,
		TrackingURL:           o.Tracking.TrackingURL,
		EstimatedDeliveryDate: o.Tracking.EstimatedDeliveryDate,
		ActualDeliveryDate:    o.Tracking.ActualDeliveryDate,

		InvoiceNumber:        o.Invoice.InvoiceNumber,
		InvoiceGeneratedAt:   o.Invoice.GeneratedAt,
		InvoiceDownloadCount: o.Invoice.DownloadCount,

		CancelledAt: o.CancelledAt,
		CancelledBy: o.CancelledBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       make([]OrderItemModel, len(o.Items)),
	}

	// Пустые статусы вложенных записей приводим к "none" для БД
	if model.CancellationStatus == "" {
		model.CancellationStatus = string(domain.CancellationNone)
	}
	if model.RefundStatus == "" {
		model.RefundStatus = string(domain.RefundNone)
	}
	if model.ReturnStatus == "" {
		model.ReturnStatus = string(domain.CancellationNone)
	}

	for i, item := range o.Items {
		model.Items[i] = OrderItemModel{
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	return model
}

// orderRepository — GORM реализация OrderRepository.
type orderRepository struct {
	db     *gorm.DB
	outbox outbox.OutboxRepository
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *gorm.DB, outboxRepo outbox.OutboxRepository) OrderRepository {
	return &orderRepository{db: db, outbox: outboxRepo}
}

// CreateWithEvents создаёт заказ с позициями и записями outbox в одной транзакции.
func (r *orderRepository) CreateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error {
	model := orderModelFromDomain(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Создаём заказ (позиции GORM создаст через ассоциацию)
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		for _, evt := range events {
			if err := r.outbox.CreateTx(tx, evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID возвращает заказ по ID с загруженными позициями.
func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var model OrderModel

	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// ListByEmail возвращает заказы покупателя по email с пагинацией.
func (r *orderRepository) ListByEmail(ctx context.Context, email string, offset, limit int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("customer_email = ?", strings.ToLower(strings.TrimSpace(email)))

	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}

	return orders, totalCount, nil
}

// List возвращает заказы с опциональным фильтром по статусу и пагинацией.
func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&OrderModel{})

	if status != nil {
		query = query.Where("status = ?", string(*status))
	}

	// Подсчёт общего количества записей (до пагинации)
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	// Пагинация и сортировка (новые заказы первыми)
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = models[i].toDomain()
	}

	return orders, totalCount, nil
}

// UpdateWithEvents сохраняет состояние заказа и записи outbox в одной транзакции.
// Позиции заказа неизменяемы после создания и не перезаписываются.
func (r *orderRepository) UpdateWithEvents(ctx context.Context, order *domain.Order, events []*outbox.Outbox) error {
	model := orderModelFromDomain(order)
	model.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ?", model.ID).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrOrderNotFound
		}

		for _, evt := range events {
			if err := r.outbox.CreateTx(tx, evt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClaimRefund атомарно захватывает заказ для обработки возврата.
// Условный UPDATE исключает параллельную обработку одного возврата
// даже при нескольких экземплярах сервиса.
func (r *orderRepository) ClaimRefund(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND refund_status NOT IN ?", orderID,
			[]string{string(domain.RefundProcessing), string(domain.RefundCompleted)}).
		Updates(map[string]interface{}{
			"refund_status":       string(domain.RefundProcessing),
			"refund_initiated_at": time.Now(),
			"updated_at":          time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// Либо заказа нет, либо возврат уже захвачен/завершён
		var model OrderModel
		if err := r.db.WithContext(ctx).
			Select("refund_status").
			Where("id = ?", orderID).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}
		if model.RefundStatus == string(domain.RefundCompleted) {
			return domain.ErrRefundAlreadyCompleted
		}
		return domain.ErrRefundInProgress
	}

	return nil
}

// IncrementInvoiceDownloads увеличивает счётчик скачиваний счёта.
func (r *orderRepository) IncrementInvoiceDownloads(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", orderID).
		UpdateColumn("invoice_download_count", gorm.Expr("invoice_download_count + 1"))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
