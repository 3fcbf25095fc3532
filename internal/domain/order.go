package domain

import (
	"strings"
	"time"
)

// OrderStatus — статус заказа в системе.
type OrderStatus string

const (
	// OrderStatusProcessing — заказ создан, принят в обработку.
	OrderStatusProcessing OrderStatus = "processing"

	// OrderStatusConfirmed — заказ подтверждён магазином.
	OrderStatusConfirmed OrderStatus = "confirmed"

	// OrderStatusManufacturing — заказ в производстве.
	OrderStatusManufacturing OrderStatus = "manufacturing"

	// OrderStatusShipped — заказ передан курьеру.
	OrderStatusShipped OrderStatus = "shipped"

	// OrderStatusDelivered — заказ доставлен покупателю (терминальный).
	OrderStatusDelivered OrderStatus = "delivered"

	// OrderStatusCancelled — заказ отменён (терминальный).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod — способ оплаты заказа. Неизменяем после создания.
type PaymentMethod string

const (
	// PaymentMethodCOD — оплата при получении (наложенный платёж).
	PaymentMethodCOD PaymentMethod = "cod"

	// PaymentMethodRazorpay — онлайн-оплата через платёжный шлюз.
	PaymentMethodRazorpay PaymentMethod = "razorpay"
)

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата ожидается.
	PaymentStatusPending PaymentStatus = "pending"

	// PaymentStatusCompleted — оплата получена полностью.
	PaymentStatusCompleted PaymentStatus = "completed"

	// PaymentStatusFailed — оплата не прошла.
	PaymentStatusFailed PaymentStatus = "failed"

	// PaymentStatusPendingUpfront — получена предоплата, остаток при доставке.
	PaymentStatusPendingUpfront PaymentStatus = "pending_upfront"
)

// RevenueStatus — статус признания выручки.
// Ведётся независимо от статуса заказа и оплаты.
type RevenueStatus string

const (
	// RevenuePending — выручка не признана (деньги ещё не заработаны).
	RevenuePending RevenueStatus = "pending"

	// RevenueEarned — выручка начислена (доставка состоялась), ждёт подтверждения админа.
	RevenueEarned RevenueStatus = "earned"

	// RevenueConfirmed — выручка подтверждена (оплата получена и сверена).
	RevenueConfirmed RevenueStatus = "confirmed"

	// RevenueCancelled — выручка аннулирована (заказ отменён без возврата денег).
	RevenueCancelled RevenueStatus = "cancelled"

	// RevenueRefunded — выручка возвращена покупателю.
	RevenueRefunded RevenueStatus = "refunded"
)

// CancellationStatus — статус запроса на отмену (также используется для возврата товара).
type CancellationStatus string

const (
	// CancellationNone — запрос не подавался.
	CancellationNone CancellationStatus = "none"

	// CancellationRequested — запрос подан, ждёт решения администратора.
	CancellationRequested CancellationStatus = "requested"

	// CancellationApproved — запрос одобрен (терминальный для запроса).
	CancellationApproved CancellationStatus = "approved"

	// CancellationRejected — запрос отклонён; заказ продолжает обычный поток.
	CancellationRejected CancellationStatus = "rejected"
)

// RefundStatus — статус возврата денежных средств.
type RefundStatus string

const (
	// RefundNone — возврат не требуется.
	RefundNone RefundStatus = "none"

	// RefundPending — заказ помечен как подлежащий возврату, возврат не запущен.
	RefundPending RefundStatus = "pending"

	// RefundProcessing — возврат обрабатывается (запрос к шлюзу в полёте).
	RefundProcessing RefundStatus = "processing"

	// RefundCompleted — возврат выполнен шлюзом.
	RefundCompleted RefundStatus = "completed"

	// RefundFailed — шлюз отклонил возврат.
	RefundFailed RefundStatus = "failed"
)

// allowedTransitions описывает допустимые переходы статуса заказа.
// processing → confirmed → manufacturing → shipped → delivered;
// cancelled достижим из любого нетерминального статуса.
// delivered и cancelled — терминальные.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:     {OrderStatusManufacturing, OrderStatusCancelled},
	OrderStatusManufacturing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:       {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:     {},
	OrderStatusCancelled:     {},
}

// CanTransition проверяет допустимость перехода из статуса from в статус to.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus возвращает true для терминальных статусов заказа.
func IsTerminalStatus(s OrderStatus) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// NormalizePaymentStatus приводит произвольное значение статуса оплаты к допустимому enum.
// Исторические значения ("partial", "processing") и всё неизвестное трактуются как pending.
// Вызывается на границе (HTTP/создание заказа), а не внутри бизнес-логики.
func NormalizePaymentStatus(raw string) PaymentStatus {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentStatusCompleted:
		return PaymentStatusCompleted
	case PaymentStatusFailed:
		return PaymentStatusFailed
	case PaymentStatusPendingUpfront:
		return PaymentStatusPendingUpfront
	default:
		return PaymentStatusPending
	}
}

// Customer — данные покупателя. Email хранится в нижнем регистре.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Address — адрес доставки. Все поля обязательны.
type Address struct {
	Street  string
	City    string
	State   string
	Pincode string
	Country string
}

// Validate проверяет, что все поля адреса заполнены.
func (a *Address) Validate() error {
	fields := []string{a.Street, a.City, a.State, a.Pincode, a.Country}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

// OrderItem — позиция заказа.
// Цена денормализована на момент создания (история не меняется при смене цены товара).
type OrderItem struct {
	ProductID string // ID товара (опционален — позиция может быть индивидуальной)
	Name      string // Название товара
	UnitPrice int64  // Цена за единицу в минимальных единицах (пайсы)
	Quantity  int32  // Количество единиц
	Image     string // URL изображения
}

// Validate проверяет корректность полей позиции заказа.
func (oi *OrderItem) Validate() error {
	if strings.TrimSpace(oi.Name) == "" {
		return ErrInvalidItemName
	}

	if oi.UnitPrice <= 0 {
		return ErrInvalidPrice
	}

	if oi.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	return nil
}

// Total возвращает общую стоимость позиции (количество * цена за единицу).
func (oi *OrderItem) Total() int64 {
	return oi.UnitPrice * int64(oi.Quantity)
}

// Cancellation — запрос на отмену заказа.
type Cancellation struct {
	Requested       bool
	Reason          string
	RequestedAt     *time.Time
	Status          CancellationStatus
	ApprovedBy      string // ID администратора, принявшего решение
	ApprovedAt      *time.Time
	RejectionReason string
}

// Refund — данные возврата денежных средств.
type Refund struct {
	Status           RefundStatus
	Amount           int64  // Сумма возврата в минимальных единицах
	GatewayRefundID  string // ID возврата на стороне шлюза
	MerchantRefundID string // Внутренний идемпотентный ключ возврата
	InitiatedAt      *time.Time
	CompletedAt      *time.Time
	FailedReason     string
	Method           string // Способ возврата (razorpay)
}

// Return — запрос на возврат товара после доставки. Повторяет форму Cancellation.
type Return struct {
	Requested       bool
	Reason          string
	RequestedAt     *time.Time
	Status          CancellationStatus
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string
}

// Tracking — данные доставки.
type Tracking struct {
	TrackingNumber        string // Уникальный номер отслеживания
	CourierProvider       string
	TrackingURL           string
	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time
}

// Invoice — данные счёта.
type Invoice struct {
	InvoiceNumber string // Уникальный номер счёта
	GeneratedAt   time.Time
	DownloadCount int
}

// Order — заказ в системе.
// Это доменная сущность без зависимостей от инфраструктуры (GORM, HTTP).
// Все денежные суммы — int64 в минимальных единицах (пайсы).
type Order struct {
	ID       string // Уникальный идентификатор заказа (UUID)
	Customer Customer
	Address  Address
	Items    []OrderItem

	TotalAmount     int64 // Общая сумма заказа (предрассчитана на витрине, см. Validate)
	UpfrontAmount   int64 // Предоплата COD заказа; 0 для полного COD
	RemainingAmount int64 // Остаток к оплате при доставке

	PaymentMethod PaymentMethod
	Status        OrderStatus
	PaymentStatus PaymentStatus

	RevenueStatus       RevenueStatus
	RevenueAmount       int64 // Признанная выручка; производное значение
	AdminReceivedAmount int64 // Фактически полученная сумма; производное значение

	// Ссылки на платёжный шлюз, заполняются после callback.
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	TransactionID    string

	Cancellation Cancellation
	Refund       Refund
	Return       Return
	Tracking     Tracking
	Invoice      Invoice

	CancelledAt *time.Time
	CancelledBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность полей заказа перед созданием.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.Customer.Name) == "" {
		return ErrInvalidCustomerName
	}

	if !strings.Contains(o.Customer.Email, "@") {
		return ErrInvalidCustomerEmail
	}

	if strings.TrimSpace(o.Customer.Phone) == "" {
		return ErrInvalidCustomerPhone
	}

	if err := o.Address.Validate(); err != nil {
		return err
	}

	if len(o.Items) == 0 {
		return ErrEmptyOrderItems
	}

	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}

	if o.TotalAmount <= 0 {
		return ErrInvalidTotalAmount
	}

	switch o.PaymentMethod {
	case PaymentMethodCOD, PaymentMethodRazorpay:
	default:
		return ErrInvalidPaymentMethod
	}

	// Предоплата всегда строго меньше общей суммы
	if o.PaymentMethod == PaymentMethodCOD && o.UpfrontAmount >= o.TotalAmount {
		return ErrUpfrontExceedsTotal
	}

	return nil
}

// IsFrozen возвращает true, если отмена заказа одобрена.
// Замороженный заказ отклоняет любые изменения статуса и выручки.
func (o *Order) IsFrozen() bool {
	return o.Cancellation.Status == CancellationApproved
}

// ChargedAmount возвращает фактически списанную с покупателя сумму:
// предоплата для COD, полная сумма для онлайн-оплаты.
func (o *Order) ChargedAmount() int64 {
	if o.PaymentMethod == PaymentMethodCOD {
		return o.UpfrontAmount
	}
	return o.TotalAmount
}

// CommissionAmount возвращает комиссию площадки от суммы в базисных пунктах.
func CommissionAmount(total int64, commissionBps int64) int64 {
	return total * commissionBps / 10000
}

// nextPaymentStatus вычисляет статус оплаты после перехода заказа в newStatus.
// Для COD доставка означает получение наличных — статус принудительно completed.
// Это осознанная связка статусов заказа и оплаты, вынесенная в явную функцию.
func nextPaymentStatus(o *Order, newStatus OrderStatus) PaymentStatus {
	if o.PaymentMethod == PaymentMethodCOD && newStatus == OrderStatusDelivered {
		return PaymentStatusCompleted
	}
	return o.PaymentStatus
}

// InitRevenue выставляет начальное состояние выручки при создании заказа.
// Онлайн-заказ остаётся pending до подтверждения оплаты шлюзом;
// COD с предоплатой учитывает предоплату как полученную сумму.
func (o *Order) InitRevenue() {
	o.RevenueStatus = RevenuePending
	if o.PaymentMethod == PaymentMethodCOD && o.UpfrontAmount > 0 {
		o.RevenueAmount = o.UpfrontAmount
		o.AdminReceivedAmount = o.UpfrontAmount
		return
	}
	o.RevenueAmount = 0
	o.AdminReceivedAmount = 0
}

// applyRevenueOnTransition пересчитывает выручку при смене статуса заказа.
// Таблица признания выручки:
//   - cod, processing..shipped  → pending, предоплата (или 0)
//   - cod, delivered            → earned, total − комиссия; получено = предоплата
//   - razorpay, delivered       → без изменений (confirmed с момента оплаты)
//   - cancelled, cod            → cancelled, 0, 0
//   - cancelled, razorpay       → без изменений (удерживается до возврата)
func (o *Order) applyRevenueOnTransition(newStatus OrderStatus, commissionBps int64) {
	switch {
	case newStatus == OrderStatusCancelled:
		if o.PaymentMethod == PaymentMethodCOD {
			o.RevenueStatus = RevenueCancelled
			o.RevenueAmount = 0
			o.AdminReceivedAmount = 0
		}
		// Онлайн: выручка удерживается как есть до обработки возврата

	case newStatus == OrderStatusDelivered:
		if o.PaymentMethod == PaymentMethodCOD {
			o.RevenueStatus = RevenueEarned
			o.RevenueAmount = o.TotalAmount - CommissionAmount(o.TotalAmount, commissionBps)
			o.AdminReceivedAmount = o.UpfrontAmount // До подтверждения администратором
		}
		// Онлайн: confirmed с момента оплаты, пересчёт не понижает статус

	default:
		// processing..shipped: COD остаётся pending с учётом предоплаты
		if o.PaymentMethod == PaymentMethodCOD && o.RevenueStatus == RevenuePending {
			if o.UpfrontAmount > 0 {
				o.RevenueAmount = o.UpfrontAmount
				o.AdminReceivedAmount = o.UpfrontAmount
			}
		}
	}
}

// Transition переводит заказ в новый статус.
// Применяет связку оплаты (nextPaymentStatus) и пересчёт выручки.
// Замороженность заказа проверяется на входе в операцию (слой сервиса),
// здесь — только допустимость перехода.
func (o *Order) Transition(newStatus OrderStatus, commissionBps int64) error {
	if !CanTransition(o.Status, newStatus) {
		return ErrIllegalTransition
	}

	now := time.Now()

	o.PaymentStatus = nextPaymentStatus(o, newStatus)
	o.applyRevenueOnTransition(newStatus, commissionBps)

	if newStatus == OrderStatusDelivered {
		o.Tracking.ActualDeliveryDate = &now
	}

	if newStatus == OrderStatusCancelled {
		o.CancelledAt = &now
	}

	o.Status = newStatus
	o.UpdatedAt = now
	return nil
}

// ConfirmPayment фиксирует успешное подтверждение онлайн-оплаты шлюзом.
// Выручка признаётся в момент оплаты (confirmed), не в момент доставки.
func (o *Order) ConfirmPayment(paymentID, signature string, commissionBps int64) error {
	if o.PaymentStatus == PaymentStatusCompleted {
		return ErrPaymentAlreadyCompleted
	}

	o.GatewayPaymentID = paymentID
	o.GatewaySignature = signature
	o.TransactionID = paymentID
	o.PaymentStatus = PaymentStatusCompleted

	o.RevenueStatus = RevenueConfirmed
	o.RevenueAmount = o.TotalAmount - CommissionAmount(o.TotalAmount, commissionBps)
	o.AdminReceivedAmount = o.RevenueAmount

	o.UpdatedAt = time.Now()
	return nil
}

// CanRequestCancellation проверяет, доступен ли запрос на отмену.
// Онлайн-заказ можно отменять только в processing;
// COD — в любом статусе до доставки.
func (o *Order) CanRequestCancellation() bool {
	if IsTerminalStatus(o.Status) {
		return false
	}
	if o.PaymentMethod == PaymentMethodCOD {
		return o.Status != OrderStatusDelivered
	}
	return o.Status == OrderStatusProcessing
}

// RequestCancellation подаёт запрос на отмену заказа.
// Повторный запрос после отклонения допустим; дубликат активного запроса — нет.
func (o *Order) RequestCancellation(reason string) error {
	if o.Cancellation.Status == CancellationRequested {
		return ErrCancellationAlreadyRequested
	}

	if !o.CanRequestCancellation() {
		return ErrCancellationNotAllowed
	}

	now := time.Now()
	o.Cancellation = Cancellation{
		Requested:   true,
		Reason:      reason,
		RequestedAt: &now,
		Status:      CancellationRequested,
	}
	o.UpdatedAt = now
	return nil
}

// RequiresRefund вычисляет, подлежит ли заказ денежному возврату при отмене:
// онлайн-заказ с завершённой оплатой либо COD с полученной предоплатой.
func (o *Order) RequiresRefund() bool {
	if o.PaymentMethod != PaymentMethodCOD {
		return o.PaymentStatus == PaymentStatusCompleted
	}
	return o.UpfrontAmount > 0 &&
		(o.PaymentStatus == PaymentStatusPendingUpfront || o.PaymentStatus == PaymentStatusCompleted)
}

// ApproveCancellation одобряет запрос на отмену.
// Принудительно переводит заказ в cancelled, помечает возврат как pending
// при наличии списанных средств и применяет аннулирование выручки.
// Возвращает true, если заказ подлежит денежному возврату.
func (o *Order) ApproveCancellation(adminID string, commissionBps int64) (bool, error) {
	if o.Cancellation.Status != CancellationRequested {
		return false, ErrCancellationNotRequested
	}

	requiresRefund := o.RequiresRefund()

	now := time.Now()
	o.Cancellation.Status = CancellationApproved
	o.Cancellation.ApprovedBy = adminID
	o.Cancellation.ApprovedAt = &now

	o.applyRevenueOnTransition(OrderStatusCancelled, commissionBps)
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelledBy = "user"

	if requiresRefund {
		o.Refund.Status = RefundPending
		o.Refund.Amount = o.ChargedAmount()
		o.Refund.Method = string(PaymentMethodRazorpay)
	}

	o.UpdatedAt = now
	return requiresRefund, nil
}

// RejectCancellation отклоняет запрос на отмену. Причина обязательна.
// Статус заказа не меняется — заказ продолжает обычный поток.
func (o *Order) RejectCancellation(adminID, reason string) error {
	if o.Cancellation.Status != CancellationRequested {
		return ErrCancellationNotRequested
	}

	if strings.TrimSpace(reason) == "" {
		return ErrRejectionReasonRequired
	}

	now := time.Now()
	o.Cancellation.Status = CancellationRejected
	o.Cancellation.RejectionReason = reason
	o.Cancellation.ApprovedBy = adminID
	o.Cancellation.ApprovedAt = &now
	o.UpdatedAt = now
	return nil
}

// CheckRefundable проверяет предусловия денежного возврата.
// Проверки упорядочены, каждая возвращает свою ошибку:
//  1. заказ отменён;
//  2. есть что возвращать (COD без предоплаты не подлежит возврату);
//  3. для COD существует транзакция предоплаты;
//  4. для онлайн-оплаты платёж завершён;
//  5. для онлайн-оплаты есть идентификатор транзакции;
//  6. возврат не выполнен и не обрабатывается (идемпотентность).
func (o *Order) CheckRefundable() error {
	if o.Status != OrderStatusCancelled {
		return ErrRefundOrderNotCancelled
	}

	if o.PaymentMethod == PaymentMethodCOD {
		if o.UpfrontAmount == 0 {
			return ErrRefundNothingToRefund
		}
		if o.GatewayOrderID == "" && o.TransactionID == "" {
			return ErrRefundNoUpfrontTransaction
		}
	} else {
		if o.PaymentStatus != PaymentStatusCompleted {
			return ErrRefundPaymentNotCompleted
		}
		if o.TransactionID == "" {
			return ErrRefundNoTransaction
		}
	}

	if o.Refund.Status == RefundCompleted {
		return ErrRefundAlreadyCompleted
	}
	if o.Refund.Status == RefundProcessing {
		return ErrRefundInProgress
	}

	return nil
}

// RefundableAmount возвращает сумму к возврату:
// предоплата для COD; для онлайн — зафиксированная при отмене сумма или полная.
// Инвариант: сумма возврата не превышает фактически списанную.
func (o *Order) RefundableAmount() int64 {
	if o.PaymentMethod == PaymentMethodCOD {
		return o.UpfrontAmount
	}
	if o.Refund.Amount > 0 {
		return o.Refund.Amount
	}
	return o.TotalAmount
}

// CompleteRefund фиксирует успешный возврат средств.
// Для онлайн-заказа выручка переходит в refunded, для COD — в cancelled.
func (o *Order) CompleteRefund(gatewayRefundID string) {
	now := time.Now()
	o.Refund.Status = RefundCompleted
	o.Refund.GatewayRefundID = gatewayRefundID
	o.Refund.CompletedAt = &now

	if o.PaymentMethod == PaymentMethodCOD {
		o.RevenueStatus = RevenueCancelled
	} else {
		o.RevenueStatus = RevenueRefunded
	}
	o.RevenueAmount = 0
	o.AdminReceivedAmount = 0
	o.UpdatedAt = now
}

// FailRefund фиксирует отказ шлюза в возврате.
// Выручка не меняется — заказ остаётся подлежащим повторной попытке.
func (o *Order) FailRefund(reason string) {
	o.Refund.Status = RefundFailed
	o.Refund.FailedReason = reason
	o.UpdatedAt = time.Now()
}

// ConfirmRevenue подтверждает выручку администратором.
// Доступно только для доставленного заказа с выручкой в статусе earned.
// Если сумма не указана: COD без предоплаты получает расчётную выручку,
// а при предоплате уже зафиксированная сумма не перезаписывается.
func (o *Order) ConfirmRevenue(adminAmount *int64) error {
	if o.Status != OrderStatusDelivered {
		return ErrRevenueNotDelivered
	}

	if o.RevenueStatus != RevenueEarned {
		return ErrRevenueNotEarned
	}

	o.RevenueStatus = RevenueConfirmed
	switch {
	case adminAmount != nil:
		o.AdminReceivedAmount = *adminAmount
	case o.UpfrontAmount == 0:
		o.AdminReceivedAmount = o.RevenueAmount
	default:
		// Предоплата уже получена — AdminReceivedAmount остаётся прежним
	}

	o.UpdatedAt = time.Now()
	return nil
}

// CanRequestReturn проверяет, доступен ли запрос на возврат товара.
// Возврат товара возможен только после доставки.
func (o *Order) CanRequestReturn() bool {
	return o.Status == OrderStatusDelivered
}

// RequestReturn подаёт запрос на возврат товара после доставки.
func (o *Order) RequestReturn(reason string) error {
	if o.Return.Status == CancellationRequested {
		return ErrReturnAlreadyRequested
	}

	if !o.CanRequestReturn() {
		return ErrReturnNotDelivered
	}

	now := time.Now()
	o.Return = Return{
		Requested:   true,
		Reason:      reason,
		RequestedAt: &now,
		Status:      CancellationRequested,
	}
	o.UpdatedAt = now
	return nil
}

// ApproveReturn одобряет запрос на возврат товара.
func (o *Order) ApproveReturn(adminID string) error {
	if o.Return.Status != CancellationRequested {
		return ErrReturnNotRequested
	}

	now := time.Now()
	o.Return.Status = CancellationApproved
	o.Return.ApprovedBy = adminID
	o.Return.ApprovedAt = &now
	o.UpdatedAt = now
	return nil
}

// RejectReturn отклоняет запрос на возврат товара. Причина обязательна.
func (o *Order) RejectReturn(adminID, reason string) error {
	if o.Return.Status != CancellationRequested {
		return ErrReturnNotRequested
	}

	if strings.TrimSpace(reason) == "" {
		return ErrRejectionReasonRequired
	}

	now := time.Now()
	o.Return.Status = CancellationRejected
	o.Return.RejectionReason = reason
	o.Return.ApprovedBy = adminID
	o.Return.ApprovedAt = &now
	o.UpdatedAt = now
	return nil
}
