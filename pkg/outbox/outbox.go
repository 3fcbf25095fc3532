// Package outbox реализует Outbox Pattern для гарантированной доставки событий заказа в Kafka.
// В одной транзакции пишем бизнес-данные (заказ, остатки товара) + запись в outbox.
// Отдельный OutboxWorker читает outbox и отправляет события в Kafka.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"example.com/craftshop/pkg/kafka"
)

// AggregateOrder — тип агрегата для событий заказа.
const AggregateOrder = "order"

// Outbox — запись в таблице outbox для гарантированной доставки в Kafka.
type Outbox struct {
	ID            string            // UUID записи
	AggregateType string            // Тип агрегата (order)
	AggregateID   string            // ID агрегата (order_id)
	EventType     string            // Тип события (order.created / order.status_changed / ...)
	Topic         string            // Kafka топик
	MessageKey    string            // Ключ сообщения (для партиционирования)
	Payload       []byte            // JSON payload
	Headers       map[string]string // Headers для Kafka (trace_id, correlation_id)
	CreatedAt     time.Time         // Время создания
	ProcessedAt   *time.Time        // Время обработки (nil = не обработана)
	RetryCount    int               // Количество попыток отправки
	LastError     *string           // Последняя ошибка
}

// NewOrderRecord создаёт запись outbox для события заказа.
// Партиционирование по orderID гарантирует порядок событий одного заказа.
func NewOrderRecord(orderID, eventType string, payload []byte, headers map[string]string) *Outbox {
	return &Outbox{
		ID:            uuid.New().String(),
		AggregateType: AggregateOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Topic:         kafka.TopicOrderEvents,
		MessageKey:    orderID,
		Payload:       payload,
		Headers:       headers,
	}
}

// HeadersJSON возвращает headers в формате JSON для БД.
func (o *Outbox) HeadersJSON() ([]byte, error) {
	if o.Headers == nil {
		return nil, nil
	}
	return json.Marshal(o.Headers)
}

// SetHeadersFromJSON устанавливает headers из JSON.
func (o *Outbox) SetHeadersFromJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &o.Headers)
}
