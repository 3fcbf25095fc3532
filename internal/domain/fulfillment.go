package domain

import (
	"fmt"
	"strings"
	"time"
)

// Курьерские службы по регионам доставки.
const (
	CourierExpress  = "BlueDart"  // Крупные города, быстрая доставка
	CourierStandard = "Delhivery" // Остальные регионы
	CourierRemote   = "India Post" // Труднодоступные регионы
)

// expressStates — штаты с экспресс-доставкой (крупные хабы).
var expressStates = map[string]bool{
	"delhi":       true,
	"maharashtra": true,
	"karnataka":   true,
	"telangana":   true,
	"tamil nadu":  true,
}

// remoteStates — труднодоступные регионы с увеличенным сроком доставки.
var remoteStates = map[string]bool{
	"andaman and nicobar islands": true,
	"lakshadweep":                 true,
	"arunachal pradesh":           true,
	"mizoram":                     true,
	"nagaland":                    true,
	"manipur":                     true,
	"sikkim":                      true,
	"ladakh":                      true,
}

// Сроки доставки по регионам в днях.
const (
	deliveryDaysExpress  = 5
	deliveryDaysStandard = 7
	deliveryDaysRemote   = 12
)

// GenerateTrackingNumber формирует номер отслеживания заказа.
// Детерминированная функция даты создания и ID заказа — уникальность
// обеспечивается уникальностью ID.
func GenerateTrackingNumber(createdAt time.Time, orderID string) string {
	return fmt.Sprintf("TRK-%s-%s", createdAt.Format("20060102"), shortID(orderID))
}

// GenerateInvoiceNumber формирует номер счёта заказа.
func GenerateInvoiceNumber(createdAt time.Time, orderID string) string {
	return fmt.Sprintf("INV-%s-%s", createdAt.Format("20060102"), shortID(orderID))
}

// AssignCourier выбирает курьерскую службу по штату доставки.
func AssignCourier(state string) string {
	key := strings.ToLower(strings.TrimSpace(state))
	switch {
	case expressStates[key]:
		return CourierExpress
	case remoteStates[key]:
		return CourierRemote
	default:
		return CourierStandard
	}
}

// EstimateDeliveryDate рассчитывает ожидаемую дату доставки
// от даты создания заказа и штата назначения.
func EstimateDeliveryDate(createdAt time.Time, state string) time.Time {
	key := strings.ToLower(strings.TrimSpace(state))
	days := deliveryDaysStandard
	switch {
	case expressStates[key]:
		days = deliveryDaysExpress
	case remoteStates[key]:
		days = deliveryDaysRemote
	}
	return createdAt.AddDate(0, 0, days)
}

// shortID возвращает первые 8 символов ID в верхнем регистре.
func shortID(id string) string {
	cleaned := strings.ReplaceAll(id, "-", "")
	if len(cleaned) > 8 {
		cleaned = cleaned[:8]
	}
	return strings.ToUpper(cleaned)
}
