// Package event содержит типы доменных событий заказа, публикуемых
// через outbox в Kafka. Единый источник правды для продюсера (сервис
// заказов) и консьюмера (воркер побочных эффектов) — исключает
// рассинхронизацию форматов.
package event

import (
	"encoding/json"
	"time"
)

// Типы событий заказа в топике orders.events.
const (
	// TypeOrderCreated — заказ создан, остатки товаров подлежат списанию.
	TypeOrderCreated = "order.created"

	// TypeStatusChanged — статус заказа изменён администратором или платёжным callback.
	TypeStatusChanged = "order.status_changed"

	// TypePaymentConfirmed — онлайн-платёж подтверждён шлюзом.
	TypePaymentConfirmed = "order.payment_confirmed"

	// TypeCancellationRequested — покупатель запросил отмену заказа.
	TypeCancellationRequested = "order.cancellation_requested"

	// TypeCancellationApproved — отмена одобрена, остатки подлежат восстановлению.
	TypeCancellationApproved = "order.cancellation_approved"

	// TypeCancellationRejected — отмена отклонена администратором.
	TypeCancellationRejected = "order.cancellation_rejected"

	// TypeRefundCompleted — возврат средств успешно проведён шлюзом.
	TypeRefundCompleted = "order.refund_completed"

	// TypeRefundFailed — возврат средств завершился ошибкой шлюза.
	TypeRefundFailed = "order.refund_failed"

	// TypeReturnRequested — покупатель запросил возврат товара после доставки.
	TypeReturnRequested = "order.return_requested"

	// TypeReturnDecided — администратор принял решение по возврату товара.
	TypeReturnDecided = "order.return_decided"
)

// StockAdjustment — изменение остатка товара в результате события.
// Положительный Delta восстанавливает остаток, отрицательный — списывает.
type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Delta     int32  `json:"delta"`
}

// OrderCreated публикуется после успешной записи заказа в базу.
type OrderCreated struct {
	OrderID       string            `json:"order_id"`
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	PaymentMethod string            `json:"payment_method"`
	TotalAmount   int64             `json:"total_amount"`
	UpfrontAmount int64             `json:"upfront_amount,omitempty"`
	Stock         []StockAdjustment `json:"stock,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// StatusChanged публикуется при каждом переходе статуса заказа.
type StatusChanged struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	PaymentStatus string    `json:"payment_status"`
	RevenueStatus string    `json:"revenue_status"`
	ChangedAt     time.Time `json:"changed_at"`
}

// PaymentConfirmed публикуется после проверки подписи callback шлюза.
type PaymentConfirmed struct {
	OrderID          string    `json:"order_id"`
	CustomerEmail    string    `json:"customer_email"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

// CancellationRequested публикуется при подаче запроса на отмену.
type CancellationRequested struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requested_at"`
}

// CancellationApproved публикуется при одобрении отмены.
// Stock содержит восстанавливаемые остатки по позициям заказа.
type CancellationApproved struct {
	OrderID        string            `json:"order_id"`
	CustomerEmail  string            `json:"customer_email"`
	ApprovedBy     string            `json:"approved_by"`
	RequiresRefund bool              `json:"requires_refund"`
	RefundAmount   int64             `json:"refund_amount,omitempty"`
	Stock          []StockAdjustment `json:"stock,omitempty"`
	ApprovedAt     time.Time         `json:"approved_at"`
}

// CancellationRejected публикуется при отклонении отмены.
type CancellationRejected struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	RejectedBy    string    `json:"rejected_by"`
	Reason        string    `json:"reason"`
	RejectedAt    time.Time `json:"rejected_at"`
}

// RefundCompleted публикуется после успешного возврата средств шлюзом.
type RefundCompleted struct {
	OrderID         string    `json:"order_id"`
	CustomerEmail   string    `json:"customer_email"`
	GatewayRefundID string    `json:"gateway_refund_id"`
	Amount          int64     `json:"amount"`
	CompletedAt     time.Time `json:"completed_at"`
}

// RefundFailed публикуется при ошибке возврата средств.
type RefundFailed struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}

// ReturnRequested публикуется при запросе возврата товара после доставки.
type ReturnRequested struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requested_at"`
}

// ReturnDecided публикуется при решении администратора по возврату товара.
type ReturnDecided struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Approved      bool      `json:"approved"`
	DecidedBy     string    `json:"decided_by"`
	Reason        string    `json:"reason,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
}

// Envelope — обёртка события в топике: тип + полезная нагрузка.
// Консьюмер сначала читает Type, затем разбирает Payload в конкретный тип.
type Envelope struct {
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Wrap упаковывает событие в Envelope и сериализует в JSON.
func Wrap(eventType, orderID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Envelope{
		Type:      eventType,
		OrderID:   orderID,
		Payload:   raw,
		Timestamp: time.Now(),
	})
}

// Unwrap разбирает Envelope из JSON.
func Unwrap(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Decode разбирает полезную нагрузку Envelope в конкретный тип события.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
