package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestOrder создаёт валидный заказ для тестов.
func newTestOrder(method PaymentMethod, total, upfront int64) *Order {
	o := &Order{
		ID: "order-test-1",
		Customer: Customer{
			Name:  "Иван Петров",
			Email: "ivan@example.com",
			Phone: "+79001234567",
		},
		Address: Address{
			Street:  "ул. Ленина, 1",
			City:    "Mumbai",
			State:   "Maharashtra",
			Pincode: "400001",
			Country: "India",
		},
		Items: []OrderItem{
			{ProductID: "prod-1", Name: "Кружка ручной работы", UnitPrice: total, Quantity: 1},
		},
		TotalAmount:   total,
		UpfrontAmount: upfront,
		PaymentMethod: method,
		Status:        OrderStatusProcessing,
		PaymentStatus: PaymentStatusPending,
		CreatedAt:     time.Now(),
	}
	if method == PaymentMethodCOD && upfront > 0 {
		o.PaymentStatus = PaymentStatusPendingUpfront
		o.RemainingAmount = total - upfront
	}
	o.InitRevenue()
	return o
}

// ==================== Валидация заказа ====================

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr error
	}{
		{
			name:    "валидный COD заказ",
			mutate:  func(o *Order) {},
			wantErr: nil,
		},
		{
			name:    "пустое имя покупателя",
			mutate:  func(o *Order) { o.Customer.Name = "  " },
			wantErr: ErrInvalidCustomerName,
		},
		{
			name:    "некорректный email",
			mutate:  func(o *Order) { o.Customer.Email = "not-an-email" },
			wantErr: ErrInvalidCustomerEmail,
		},
		{
			name:    "пустой телефон",
			mutate:  func(o *Order) { o.Customer.Phone = "" },
			wantErr: ErrInvalidCustomerPhone,
		},
		{
			name:    "не заполнен pincode адреса",
			mutate:  func(o *Order) { o.Address.Pincode = "" },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "заказ без позиций",
			mutate:  func(o *Order) { o.Items = nil },
			wantErr: ErrEmptyOrderItems,
		},
		{
			name:    "позиция без названия",
			mutate:  func(o *Order) { o.Items[0].Name = "" },
			wantErr: ErrInvalidItemName,
		},
		{
			name:    "нулевая цена позиции",
			mutate:  func(o *Order) { o.Items[0].UnitPrice = 0 },
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "нулевое количество",
			mutate:  func(o *Order) { o.Items[0].Quantity = 0 },
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "нулевая сумма заказа",
			mutate:  func(o *Order) { o.TotalAmount = 0 },
			wantErr: ErrInvalidTotalAmount,
		},
		{
			name:    "неизвестный способ оплаты",
			mutate:  func(o *Order) { o.PaymentMethod = "bitcoin" },
			wantErr: ErrInvalidPaymentMethod,
		},
		{
			name:    "предоплата равна общей сумме",
			mutate:  func(o *Order) { o.UpfrontAmount = o.TotalAmount },
			wantErr: ErrUpfrontExceedsTotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder(PaymentMethodCOD, 100000, 0)
			tt.mutate(o)

			err := o.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==================== Машина состояний статуса ====================

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"processing → confirmed", OrderStatusProcessing, OrderStatusConfirmed, true},
		{"confirmed → manufacturing", OrderStatusConfirmed, OrderStatusManufacturing, true},
		{"manufacturing → shipped", OrderStatusManufacturing, OrderStatusShipped, true},
		{"shipped → delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"processing → cancelled", OrderStatusProcessing, OrderStatusCancelled, true},
		{"shipped → cancelled", OrderStatusShipped, OrderStatusCancelled, true},
		{"перескок processing → shipped запрещён", OrderStatusProcessing, OrderStatusShipped, false},
		{"откат confirmed → processing запрещён", OrderStatusConfirmed, OrderStatusProcessing, false},
		{"delivered терминален", OrderStatusDelivered, OrderStatusCancelled, false},
		{"cancelled терминален", OrderStatusCancelled, OrderStatusConfirmed, false},
		{"delivered → delivered запрещён", OrderStatusDelivered, OrderStatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrder_Transition_FullPath(t *testing.T) {
	// Полный путь по DAG: processing → confirmed → manufacturing → shipped → delivered
	o := newTestOrder(PaymentMethodCOD, 100000, 0)

	path := []OrderStatus{
		OrderStatusConfirmed,
		OrderStatusManufacturing,
		OrderStatusShipped,
		OrderStatusDelivered,
	}

	for _, next := range path {
		require.NoError(t, o.Transition(next, 0))
		assert.Equal(t, next, o.Status)
	}

	// Из delivered переходов нет
	err := o.Transition(OrderStatusCancelled, 0)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestOrder_Transition_Delivered_RecordsActualDate(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD, 100000, 0)
	o.Status = OrderStatusShipped

	require.NoError(t, o.Transition(OrderStatusDelivered, 0))
	require.NotNil(t, o.Tracking.ActualDeliveryDate)
	assert.WithinDuration(t, time.Now(), *o.Tracking.ActualDeliveryDate, time.Second)
}

// ==================== Связка оплаты и доставки (COD) ====================

func TestOrder_Transition_CODDeliveryCompletesPayment(t *testing.T) {
	// Сценарий 1: COD без предоплаты, total=1000 рупий (100000 пайс)
	o := newTestOrder(PaymentMethodCOD, 100000, 0)

	assert.Equal(t, RevenuePending, o.RevenueStatus)
	assert.Equal(t, int64(0), o.RevenueAmount)

	o.Status = OrderStatusShipped
	require.NoError(t, o.Transition(OrderStatusDelivered, 0))

	// Доставка COD закрывает оплату наличными
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
	assert.Equal(t, RevenueEarned, o.RevenueStatus)
	assert.Equal(t, int64(100000), o.RevenueAmount, "комиссия 0 — выручка равна сумме")
}

func TestOrder_Transition_CODDeliveryWithCommission(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD, 100000, 0)
	o.Status = OrderStatusShipped

	// Комиссия 250 б.п. = 2.5%
	require.NoError(t, o.Transition(OrderStatusDelivered, 250))

	assert.Equal(t, int64(97500), o.RevenueAmount)
	assert.Equal(t, int64(0), o.AdminReceivedAmount, "получено = предоплата (0) до подтверждения")
}

func TestOrder_Transition_OnlineDeliveryKeepsConfirmedRevenue(t *testing.T) {
	// P4: выручка онлайн-заказа подтверждается при оплате, доставка её не понижает
	o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
	o.GatewayOrderID = "order_gw1"

	require.NoError(t, o.ConfirmPayment("pay_123", "sig", 0))
	assert.Equal(t, RevenueConfirmed, o.RevenueStatus)
	assert.Equal(t, int64(500000), o.RevenueAmount)
	assert.Equal(t, int64(500000), o.AdminReceivedAmount)

	for _, next := range []OrderStatus{OrderStatusConfirmed, OrderStatusManufacturing, OrderStatusShipped, OrderStatusDelivered} {
		require.NoError(t, o.Transition(next, 0))
	}

	assert.Equal(t, RevenueConfirmed, o.RevenueStatus, "пересчёт не понижает статус выручки")
	assert.Equal(t, int64(500000), o.RevenueAmount)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
}

func TestOrder_ConfirmPayment_Idempotent(t *testing.T) {
	o := newTestOrder(PaymentMethodRazorpay, 500000, 0)

	require.NoError(t, o.ConfirmPayment("pay_123", "sig", 0))

	err := o.ConfirmPayment("pay_456", "sig2", 0)
	assert.ErrorIs(t, err, ErrPaymentAlreadyCompleted)
	assert.Equal(t, "pay_123", o.GatewayPaymentID, "повторный callback не перезаписывает платёж")
}

// ==================== Нормализация статуса оплаты ====================

func TestNormalizePaymentStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentStatus
	}{
		{"pending", PaymentStatusPending},
		{"completed", PaymentStatusCompleted},
		{"failed", PaymentStatusFailed},
		{"pending_upfront", PaymentStatusPendingUpfront},
		{"partial", PaymentStatusPending},    // историческое значение
		{"processing", PaymentStatusPending}, // историческое значение
		{"COMPLETED", PaymentStatusCompleted},
		{"  pending  ", PaymentStatusPending},
		{"", PaymentStatusPending},
		{"мусор", PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePaymentStatus(tt.raw))
		})
	}
}

// ==================== Отмена заказа ====================

func TestOrder_RequestCancellation(t *testing.T) {
	t.Run("онлайн-заказ: только в processing", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.RequestCancellation("передумал"))
		assert.Equal(t, CancellationRequested, o.Cancellation.Status)
		assert.True(t, o.Cancellation.Requested)
		assert.NotNil(t, o.Cancellation.RequestedAt)
	})

	t.Run("онлайн-заказ: в confirmed запрещено", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		o.Status = OrderStatusConfirmed

		err := o.RequestCancellation("передумал")
		assert.ErrorIs(t, err, ErrCancellationNotAllowed)
	})

	t.Run("COD: допустимо до доставки", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		o.Status = OrderStatusShipped

		require.NoError(t, o.RequestCancellation("долго ждать"))
		assert.Equal(t, CancellationRequested, o.Cancellation.Status)
	})

	t.Run("COD: после доставки запрещено", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		o.Status = OrderStatusDelivered

		err := o.RequestCancellation("не подошло")
		assert.ErrorIs(t, err, ErrCancellationNotAllowed)
	})

	t.Run("дубликат активного запроса", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.RequestCancellation("первый"))

		err := o.RequestCancellation("второй")
		assert.ErrorIs(t, err, ErrCancellationAlreadyRequested)
	})

	t.Run("повторный запрос после отклонения допустим", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.RequestCancellation("первый"))
		require.NoError(t, o.RejectCancellation("admin-1", "уже в работе"))

		err := o.RequestCancellation("всё-таки отмените")
		require.NoError(t, err)
		assert.Equal(t, CancellationRequested, o.Cancellation.Status)
	})
}

func TestOrder_RejectCancellation(t *testing.T) {
	// Сценарий 2: онлайн-заказ, оплата подтверждена, отмена отклонена
	o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
	require.NoError(t, o.ConfirmPayment("pay_s2", "sig", 0))
	require.NoError(t, o.RequestCancellation("передумал"))

	t.Run("причина обязательна", func(t *testing.T) {
		err := o.RejectCancellation("admin-1", "   ")
		assert.ErrorIs(t, err, ErrRejectionReasonRequired)
		assert.Equal(t, CancellationRequested, o.Cancellation.Status)
	})

	t.Run("отклонение с причиной", func(t *testing.T) {
		require.NoError(t, o.RejectCancellation("admin-1", "already shipped"))

		assert.Equal(t, CancellationRejected, o.Cancellation.Status)
		assert.Equal(t, "already shipped", o.Cancellation.RejectionReason)
		assert.Equal(t, "admin-1", o.Cancellation.ApprovedBy)
		assert.Equal(t, OrderStatusProcessing, o.Status, "статус заказа не меняется")
	})

	t.Run("решение без активного запроса", func(t *testing.T) {
		err := o.RejectCancellation("admin-1", "причина")
		assert.ErrorIs(t, err, ErrCancellationNotRequested)
	})
}

func TestOrder_ApproveCancellation(t *testing.T) {
	t.Run("онлайн-заказ с завершённой оплатой → возврат полной суммы", func(t *testing.T) {
		// Сценарий 3
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.ConfirmPayment("pay_s3", "sig", 0))
		require.NoError(t, o.RequestCancellation("передумал"))

		requiresRefund, err := o.ApproveCancellation("admin-1", 0)
		require.NoError(t, err)

		assert.True(t, requiresRefund)
		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.Equal(t, CancellationApproved, o.Cancellation.Status)
		assert.Equal(t, RefundPending, o.Refund.Status)
		assert.Equal(t, int64(500000), o.Refund.Amount)
		assert.Equal(t, RevenueConfirmed, o.RevenueStatus, "выручка удерживается до возврата")
		assert.NotNil(t, o.CancelledAt)
		assert.Equal(t, "user", o.CancelledBy)
	})

	t.Run("COD с предоплатой → возврат только предоплаты", func(t *testing.T) {
		// Сценарий 4: upfront=300, total=1000, предоплата получена
		o := newTestOrder(PaymentMethodCOD, 100000, 30000)
		o.PaymentStatus = PaymentStatusCompleted
		o.GatewayOrderID = "order_gw4"
		o.TransactionID = "pay_gw4"
		require.NoError(t, o.RequestCancellation("не нужно"))

		requiresRefund, err := o.ApproveCancellation("admin-1", 0)
		require.NoError(t, err)

		assert.True(t, requiresRefund)
		assert.Equal(t, RefundPending, o.Refund.Status)
		assert.Equal(t, int64(30000), o.Refund.Amount, "возврат предоплаты, не полной суммы")
		assert.Equal(t, RevenueCancelled, o.RevenueStatus)
		assert.Equal(t, int64(0), o.RevenueAmount)
		assert.Equal(t, int64(0), o.AdminReceivedAmount)
	})

	t.Run("COD без предоплаты → возврат не требуется", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		require.NoError(t, o.RequestCancellation("не нужно"))

		requiresRefund, err := o.ApproveCancellation("admin-1", 0)
		require.NoError(t, err)

		assert.False(t, requiresRefund)
		assert.Equal(t, RefundNone, o.Refund.Status)
		assert.Equal(t, RevenueCancelled, o.RevenueStatus)
	})

	t.Run("онлайн-заказ без завершённой оплаты → возврат не требуется", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.RequestCancellation("передумал"))

		requiresRefund, err := o.ApproveCancellation("admin-1", 0)
		require.NoError(t, err)
		assert.False(t, requiresRefund)
	})

	t.Run("одобрение без активного запроса", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)

		_, err := o.ApproveCancellation("admin-1", 0)
		assert.ErrorIs(t, err, ErrCancellationNotRequested)
	})
}

func TestOrder_FrozenAfterApproval(t *testing.T) {
	// P2: после одобренной отмены заказ заморожен
	o := newTestOrder(PaymentMethodCOD, 100000, 0)
	require.NoError(t, o.RequestCancellation("не нужно"))
	_, err := o.ApproveCancellation("admin-1", 0)
	require.NoError(t, err)

	assert.True(t, o.IsFrozen())

	// Статусные переходы из cancelled недопустимы
	err = o.Transition(OrderStatusConfirmed, 0)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// Подтверждение выручки по замороженному заказу недоступно
	err = o.ConfirmRevenue(nil)
	assert.ErrorIs(t, err, ErrRevenueNotDelivered)
}

// ==================== Предусловия возврата ====================

func TestOrder_CheckRefundable(t *testing.T) {
	cancelledOnline := func() *Order {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		o.Status = OrderStatusCancelled
		o.PaymentStatus = PaymentStatusCompleted
		o.TransactionID = "pay_1"
		o.Refund.Status = RefundPending
		return o
	}

	t.Run("заказ не отменён", func(t *testing.T) {
		// Сценарий 5
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundOrderNotCancelled)
	})

	t.Run("COD без предоплаты — нечего возвращать", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		o.Status = OrderStatusCancelled
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundNothingToRefund)
	})

	t.Run("COD с предоплатой без транзакции", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 30000)
		o.Status = OrderStatusCancelled
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundNoUpfrontTransaction)
	})

	t.Run("онлайн с незавершённой оплатой", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		o.Status = OrderStatusCancelled
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundPaymentNotCompleted)
	})

	t.Run("онлайн без идентификатора транзакции", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		o.Status = OrderStatusCancelled
		o.PaymentStatus = PaymentStatusCompleted
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundNoTransaction)
	})

	t.Run("возврат уже выполнен — идемпотентность", func(t *testing.T) {
		// Сценарий 6
		o := cancelledOnline()
		o.Refund.Status = RefundCompleted
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundAlreadyCompleted)
	})

	t.Run("возврат уже обрабатывается", func(t *testing.T) {
		o := cancelledOnline()
		o.Refund.Status = RefundProcessing
		assert.ErrorIs(t, o.CheckRefundable(), ErrRefundInProgress)
	})

	t.Run("все предусловия выполнены", func(t *testing.T) {
		o := cancelledOnline()
		assert.NoError(t, o.CheckRefundable())
	})
}

func TestOrder_RefundableAmount(t *testing.T) {
	t.Run("COD — предоплата", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 30000)
		assert.Equal(t, int64(30000), o.RefundableAmount())
	})

	t.Run("онлайн — зафиксированная при отмене сумма", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		o.Refund.Amount = 500000
		assert.Equal(t, int64(500000), o.RefundableAmount())
	})

	t.Run("онлайн без зафиксированной суммы — полная", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		assert.Equal(t, int64(500000), o.RefundableAmount())
	})

	// P6: сумма возврата не превышает фактически списанную
	t.Run("возврат ограничен списанной суммой", func(t *testing.T) {
		cod := newTestOrder(PaymentMethodCOD, 100000, 30000)
		assert.LessOrEqual(t, cod.RefundableAmount(), cod.ChargedAmount())

		online := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		assert.LessOrEqual(t, online.RefundableAmount(), online.ChargedAmount())
	})
}

func TestOrder_CompleteRefund(t *testing.T) {
	t.Run("онлайн — выручка refunded", func(t *testing.T) {
		o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
		require.NoError(t, o.ConfirmPayment("pay_1", "sig", 0))
		o.Status = OrderStatusCancelled
		o.Refund.Status = RefundProcessing

		o.CompleteRefund("rfnd_1")

		assert.Equal(t, RefundCompleted, o.Refund.Status)
		assert.Equal(t, "rfnd_1", o.Refund.GatewayRefundID)
		assert.Equal(t, RevenueRefunded, o.RevenueStatus)
		assert.Equal(t, int64(0), o.RevenueAmount)
		assert.NotNil(t, o.Refund.CompletedAt)
	})

	t.Run("COD — выручка cancelled", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 30000)
		o.Status = OrderStatusCancelled
		o.Refund.Status = RefundProcessing

		o.CompleteRefund("rfnd_2")

		assert.Equal(t, RevenueCancelled, o.RevenueStatus)
	})
}

func TestOrder_FailRefund(t *testing.T) {
	o := newTestOrder(PaymentMethodRazorpay, 500000, 0)
	o.Status = OrderStatusCancelled
	o.Refund.Status = RefundProcessing
	o.RevenueStatus = RevenueConfirmed
	o.RevenueAmount = 500000

	o.FailRefund("gateway timeout")

	assert.Equal(t, RefundFailed, o.Refund.Status)
	assert.Equal(t, "gateway timeout", o.Refund.FailedReason)
	// Выручка не тронута — заказ подлежит повторной попытке
	assert.Equal(t, RevenueConfirmed, o.RevenueStatus)
	assert.Equal(t, int64(500000), o.RevenueAmount)
}

// ==================== Подтверждение выручки ====================

func TestOrder_ConfirmRevenue(t *testing.T) {
	deliveredCOD := func(upfront int64) *Order {
		o := newTestOrder(PaymentMethodCOD, 100000, upfront)
		o.Status = OrderStatusShipped
		if upfront > 0 {
			o.PaymentStatus = PaymentStatusPendingUpfront
		}
		_ = o.Transition(OrderStatusDelivered, 0)
		return o
	}

	t.Run("только после доставки", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		assert.ErrorIs(t, o.ConfirmRevenue(nil), ErrRevenueNotDelivered)
	})

	t.Run("только из earned", func(t *testing.T) {
		o := deliveredCOD(0)
		require.NoError(t, o.ConfirmRevenue(nil))

		// Повторное подтверждение недоступно
		assert.ErrorIs(t, o.ConfirmRevenue(nil), ErrRevenueNotEarned)
	})

	t.Run("COD без предоплаты: по умолчанию расчётная выручка", func(t *testing.T) {
		o := deliveredCOD(0)

		require.NoError(t, o.ConfirmRevenue(nil))
		assert.Equal(t, RevenueConfirmed, o.RevenueStatus)
		assert.Equal(t, int64(100000), o.AdminReceivedAmount)
	})

	t.Run("COD с предоплатой: полученная предоплата не перезаписывается", func(t *testing.T) {
		o := deliveredCOD(30000)
		require.Equal(t, int64(30000), o.AdminReceivedAmount)

		require.NoError(t, o.ConfirmRevenue(nil))
		assert.Equal(t, RevenueConfirmed, o.RevenueStatus)
		assert.Equal(t, int64(30000), o.AdminReceivedAmount)
		assert.Equal(t, int64(100000), o.RevenueAmount)
	})

	t.Run("сумма от администратора", func(t *testing.T) {
		o := deliveredCOD(0)
		amount := int64(99000)

		require.NoError(t, o.ConfirmRevenue(&amount))
		assert.Equal(t, int64(99000), o.AdminReceivedAmount)
	})
}

// ==================== Возврат товара после доставки ====================

func TestOrder_ReturnWorkflow(t *testing.T) {
	delivered := func() *Order {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		o.Status = OrderStatusShipped
		_ = o.Transition(OrderStatusDelivered, 0)
		return o
	}

	t.Run("запрос до доставки запрещён", func(t *testing.T) {
		o := newTestOrder(PaymentMethodCOD, 100000, 0)
		assert.ErrorIs(t, o.RequestReturn("брак"), ErrReturnNotDelivered)
	})

	t.Run("полный цикл: запрос → одобрение", func(t *testing.T) {
		o := delivered()

		require.NoError(t, o.RequestReturn("не подошёл размер"))
		assert.Equal(t, CancellationRequested, o.Return.Status)

		require.NoError(t, o.ApproveReturn("admin-1"))
		assert.Equal(t, CancellationApproved, o.Return.Status)
		assert.Equal(t, "admin-1", o.Return.ApprovedBy)
	})

	t.Run("отклонение требует причину", func(t *testing.T) {
		o := delivered()
		require.NoError(t, o.RequestReturn("брак"))

		assert.ErrorIs(t, o.RejectReturn("admin-1", ""), ErrRejectionReasonRequired)
		require.NoError(t, o.RejectReturn("admin-1", "следы использования"))
		assert.Equal(t, CancellationRejected, o.Return.Status)
	})

	t.Run("дубликат запроса", func(t *testing.T) {
		o := delivered()
		require.NoError(t, o.RequestReturn("брак"))
		assert.ErrorIs(t, o.RequestReturn("брак"), ErrReturnAlreadyRequested)
	})
}

// ==================== Вспомогательные расчёты ====================

func TestCommissionAmount(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		bps   int64
		want  int64
	}{
		{"нулевая комиссия", 100000, 0, 0},
		{"2.5 процента", 100000, 250, 2500},
		{"10 процентов", 100000, 1000, 10000},
		{"округление вниз", 999, 250, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommissionAmount(tt.total, tt.bps))
		})
	}
}

func TestOrder_ChargedAmount(t *testing.T) {
	cod := newTestOrder(PaymentMethodCOD, 100000, 30000)
	assert.Equal(t, int64(30000), cod.ChargedAmount())

	online := newTestOrder(PaymentMethodRazorpay, 500000, 0)
	assert.Equal(t, int64(500000), online.ChargedAmount())
}
