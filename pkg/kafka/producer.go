package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/craftshop/pkg/logger"
)

// Producer отправляет сообщения в Kafka с поддержкой headers и трассировки.
type Producer struct {
	writer *kafka.Writer
	cfg    Config
}

// NewProducer создаёт новый Producer для отправки сообщений в Kafka.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond, // Быстрая отправка событий заказа
		RequiredAcks: kafka.RequireOne,      // Ждём подтверждения от лидера
		Async:        false,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Msg("Создан Kafka Producer")

	return &Producer{
		writer: writer,
		cfg:    cfg,
	}, nil
}

// SendMessage отправляет подготовленный Message.
// Стандартные headers (trace_id, correlation_id, timestamp) добавляются
// из context, если они не заданы явно.
func (p *Producer) SendMessage(ctx context.Context, msg *Message) error {
	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}

	if _, ok := msg.Headers[HeaderTraceID]; !ok {
		if traceID := TraceIDFromContext(ctx); traceID != "" {
			msg.Headers[HeaderTraceID] = traceID
		}
	}

	if _, ok := msg.Headers[HeaderCorrelationID]; !ok {
		if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
			msg.Headers[HeaderCorrelationID] = correlationID
		}
	}

	if _, ok := msg.Headers[HeaderTimestamp]; !ok {
		msg.Headers[HeaderTimestamp] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	kafkaMsg := msg.toKafkaMessage()
	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		logger.Error().
			Err(err).
			Str("topic", msg.Topic).
			Str("key", string(msg.Key)).
			Msg("Ошибка отправки сообщения в Kafka")
		return fmt.Errorf("ошибка отправки в Kafka: %w", err)
	}

	logger.Debug().
		Str("topic", msg.Topic).
		Str("key", string(msg.Key)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// SendToDLQ отправляет сообщение в Dead Letter Queue с информацией об ошибке.
func (p *Producer) SendToDLQ(ctx context.Context, originalMsg *Message, processingError error) error {
	dlqHeaders := make(map[string]string)
	for k, v := range originalMsg.Headers {
		dlqHeaders[k] = v
	}

	dlqHeaders["dlq_error"] = processingError.Error()
	dlqHeaders["dlq_original_topic"] = originalMsg.Topic
	dlqHeaders["dlq_timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	return p.SendMessage(ctx, &Message{
		Topic:   TopicDLQ,
		Key:     originalMsg.Key,
		Value:   originalMsg.Value,
		Headers: dlqHeaders,
	})
}

// Close закрывает соединение с Kafka.
// Должен вызываться при завершении работы приложения.
func (p *Producer) Close() error {
	logger.Info().Msg("Закрытие Kafka Producer")

	if err := p.writer.Close(); err != nil {
		logger.Error().Err(err).Msg("Ошибка при закрытии Kafka Producer")
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}

	return nil
}
