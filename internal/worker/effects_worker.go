// Package worker содержит обработчик побочных эффектов событий заказа.
// Воркер читает orders.events из Kafka и выполняет эффекты: изменение
// остатков товаров и отправку уведомлений. Необработанные сообщения
// уходят в DLQ.
package worker

import (
	"context"
	"fmt"

	"example.com/craftshop/internal/event"
	"example.com/craftshop/internal/notification"
	"example.com/craftshop/internal/repository"
	"example.com/craftshop/pkg/kafka"
	"example.com/craftshop/pkg/logger"
)

// maxHandlerRetries — число повторов обработки сообщения перед DLQ.
const maxHandlerRetries = 3

// EffectsWorker применяет побочные эффекты событий заказа.
type EffectsWorker struct {
	consumer *kafka.Consumer
	products repository.ProductRepository
	notifier *notification.Dispatcher
}

// NewEffectsWorker создаёт воркер побочных эффектов.
func NewEffectsWorker(
	consumer *kafka.Consumer,
	products repository.ProductRepository,
	notifier *notification.Dispatcher,
) *EffectsWorker {
	return &EffectsWorker{
		consumer: consumer,
		products: products,
		notifier: notifier,
	}
}

// Run запускает цикл потребления. Блокирует до отмены контекста.
func (w *EffectsWorker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info().Msg("Воркер побочных эффектов запущен")
	return w.consumer.ConsumeWithRetry(ctx, w.Handle, maxHandlerRetries)
}

// Handle обрабатывает одно событие заказа.
// Изменение остатков обязано выполниться (ошибка ведёт к повтору и DLQ);
// уведомления — best effort, их ошибки только логируются.
func (w *EffectsWorker) Handle(ctx context.Context, msg *kafka.Message) error {
	log := logger.FromContext(ctx)

	env, err := event.Unwrap(msg.Value)
	if err != nil {
		return fmt.Errorf("разбор события: %w", err)
	}

	log.Debug().
		Str("event_type", env.Type).
		Str("order_id", env.OrderID).
		Msg("Получено событие заказа")

	switch env.Type {
	case event.TypeOrderCreated:
		var payload event.OrderCreated
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		if err := w.applyStock(ctx, payload.Stock); err != nil {
			return err
		}
		w.notifier.OrderCreated(ctx, payload.CustomerEmail, payload.OrderID, payload.TotalAmount)

	case event.TypeStatusChanged:
		var payload event.StatusChanged
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		w.notifier.StatusChanged(ctx, payload.CustomerEmail, payload.OrderID, payload.To)

	case event.TypePaymentConfirmed:
		// Подтверждение оплаты не имеет отдельного эффекта:
		// письмо о статусе придёт при переходе в confirmed

	case event.TypeCancellationRequested:
		var payload event.CancellationRequested
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		w.notifier.CancellationRequested(ctx, payload.CustomerEmail, payload.OrderID)

	case event.TypeCancellationApproved:
		var payload event.CancellationApproved
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		if err := w.applyStock(ctx, payload.Stock); err != nil {
			return err
		}
		w.notifier.CancellationApproved(ctx, payload.CustomerEmail, payload.OrderID,
			payload.RequiresRefund, payload.RefundAmount)

	case event.TypeCancellationRejected:
		var payload event.CancellationRejected
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		w.notifier.CancellationRejected(ctx, payload.CustomerEmail, payload.OrderID, payload.Reason)

	case event.TypeRefundCompleted:
		var payload event.RefundCompleted
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		w.notifier.RefundCompleted(ctx, payload.CustomerEmail, payload.OrderID, payload.Amount)

	case event.TypeRefundFailed:
		// Неудачный возврат — операционная проблема, покупателя не беспокоим

	case event.TypeReturnRequested:
		// Запрос возврата товара обрабатывается администратором

	case event.TypeReturnDecided:
		var payload event.ReturnDecided
		if err := env.Decode(&payload); err != nil {
			return fmt.Errorf("разбор %s: %w", env.Type, err)
		}
		w.notifier.ReturnDecided(ctx, payload.CustomerEmail, payload.OrderID, payload.Approved, payload.Reason)

	default:
		// Неизвестный тип события не считаем ошибкой: обратная совместимость
		// при раскатке новых версий
		log.Warn().Str("event_type", env.Type).Msg("Неизвестный тип события, пропущено")
	}

	return nil
}

// applyStock применяет изменения остатков товаров.
func (w *EffectsWorker) applyStock(ctx context.Context, adjustments []event.StockAdjustment) error {
	for _, adj := range adjustments {
		if err := w.products.AdjustStock(ctx, adj.ProductID, adj.Delta); err != nil {
			return fmt.Errorf("изменение остатка товара %s: %w", adj.ProductID, err)
		}
		log := logger.FromContext(ctx)
		log.Debug().
			Str("product_id", adj.ProductID).
			Int32("delta", adj.Delta).
			Msg("Остаток товара изменён")
	}
	return nil
}
