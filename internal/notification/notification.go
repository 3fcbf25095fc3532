// Package notification отправляет покупателям письма о событиях заказа.
// Уведомления — побочный эффект: ошибка отправки логируется и учитывается
// в метриках, но никогда не прерывает обработку события.
package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/pkg/logger"
	"example.com/craftshop/pkg/metrics"
)

// Mailer отправляет одно письмо.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig — настройки SMTP отправителя.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPMailer — отправка через SMTP с PLAIN авторизацией.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer создаёт SMTP отправителя.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send отправляет письмо.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
}

// LogMailer — заглушка для разработки: пишет письмо в лог вместо отправки.
type LogMailer struct{}

// Send логирует письмо.
func (LogMailer) Send(ctx context.Context, to, subject, _ string) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Msg("Письмо не отправлено (LogMailer)")
	return nil
}

// Dispatcher формирует и отправляет уведомления по событиям заказа.
type Dispatcher struct {
	mailer Mailer
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(mailer Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer}
}

// send отправляет письмо, логируя ошибку вместо её возврата.
func (d *Dispatcher) send(ctx context.Context, eventType, to, subject, body string) {
	if err := d.mailer.Send(ctx, to, subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues(eventType, "error").Inc()
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("to", to).
			Msg("Ошибка отправки уведомления")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(eventType, "sent").Inc()
}

// OrderCreated уведомляет о принятом заказе.
func (d *Dispatcher) OrderCreated(ctx context.Context, to, orderID string, total int64) {
	d.send(ctx, "order.created", to,
		"Ваш заказ принят",
		fmt.Sprintf("Заказ %s принят в обработку. Сумма: %.2f INR.", orderID, paise(total)))
}

// StatusChanged уведомляет о смене статуса заказа.
func (d *Dispatcher) StatusChanged(ctx context.Context, to, orderID, newStatus string) {
	subjects := map[string]string{
		string(domain.OrderStatusConfirmed):     "Заказ подтверждён",
		string(domain.OrderStatusManufacturing): "Заказ в производстве",
		string(domain.OrderStatusShipped):       "Заказ передан курьеру",
		string(domain.OrderStatusDelivered):     "Заказ доставлен",
		string(domain.OrderStatusCancelled):     "Заказ отменён",
	}
	subject, ok := subjects[newStatus]
	if !ok {
		subject = "Статус заказа изменён"
	}

	d.send(ctx, "order.status_changed", to, subject,
		fmt.Sprintf("Статус заказа %s: %s.", orderID, newStatus))
}

// CancellationRequested уведомляет, что запрос на отмену принят в работу.
func (d *Dispatcher) CancellationRequested(ctx context.Context, to, orderID string) {
	d.send(ctx, "order.cancellation_requested", to,
		"Запрос на отмену получен",
		fmt.Sprintf("Запрос на отмену заказа %s получен и будет рассмотрен администратором.", orderID))
}

// CancellationApproved уведомляет об одобрении отмены.
// Если по заказу причитается возврат средств, письмо содержит сумму.
func (d *Dispatcher) CancellationApproved(ctx context.Context, to, orderID string, requiresRefund bool, refundAmount int64) {
	body := fmt.Sprintf("Запрос на отмену заказа %s одобрен.", orderID)
	if requiresRefund {
		body += fmt.Sprintf(" Возврат %.2f INR будет оформлен в ближайшее время.", paise(refundAmount))
	}
	d.send(ctx, "order.cancellation_approved", to, "Отмена заказа одобрена", body)
}

// CancellationRejected уведомляет об отклонении отмены с причиной.
func (d *Dispatcher) CancellationRejected(ctx context.Context, to, orderID, reason string) {
	d.send(ctx, "order.cancellation_rejected", to,
		"Отмена заказа отклонена",
		fmt.Sprintf("Запрос на отмену заказа %s отклонён. Причина: %s.", orderID, reason))
}

// RefundCompleted уведомляет об успешном возврате средств.
func (d *Dispatcher) RefundCompleted(ctx context.Context, to, orderID string, amount int64) {
	d.send(ctx, "order.refund_completed", to,
		"Возврат средств выполнен",
		fmt.Sprintf("По заказу %s возвращено %.2f INR. Средства поступят в течение 5-7 рабочих дней.",
			orderID, paise(amount)))
}

// ReturnDecided уведомляет о решении по возврату товара.
func (d *Dispatcher) ReturnDecided(ctx context.Context, to, orderID string, approved bool, reason string) {
	if approved {
		d.send(ctx, "order.return_decided", to,
			"Возврат товара одобрен",
			fmt.Sprintf("Запрос на возврат товара по заказу %s одобрен.", orderID))
		return
	}
	d.send(ctx, "order.return_decided", to,
		"Возврат товара отклонён",
		fmt.Sprintf("Запрос на возврат товара по заказу %s отклонён. Причина: %s.", orderID, reason))
}

// paise переводит минимальные единицы в рупии для текста письма.
func paise(amount int64) float64 {
	return float64(amount) / 100
}
