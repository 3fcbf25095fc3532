// Package domain содержит бизнес-сущности и доменные ошибки магазина.
package domain

import "errors"

// Доменные ошибки.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrOrderNotFound возвращается, когда заказ не найден в базе данных.
	ErrOrderNotFound = errors.New("заказ не найден")

	// ErrProductNotFound возвращается, когда товар не найден в базе данных.
	ErrProductNotFound = errors.New("товар не найден")

	// ErrEmptyOrderItems возвращается при попытке создать заказ без позиций.
	ErrEmptyOrderItems = errors.New("заказ должен содержать хотя бы одну позицию")

	// ErrInvalidCustomerName возвращается при пустом имени покупателя.
	ErrInvalidCustomerName = errors.New("имя покупателя не может быть пустым")

	// ErrInvalidCustomerEmail возвращается при пустом или некорректном email покупателя.
	ErrInvalidCustomerEmail = errors.New("некорректный email покупателя")

	// ErrInvalidCustomerPhone возвращается при пустом телефоне покупателя.
	ErrInvalidCustomerPhone = errors.New("телефон покупателя не может быть пустым")

	// ErrInvalidAddress возвращается, когда не заполнено обязательное поле адреса доставки.
	ErrInvalidAddress = errors.New("все поля адреса доставки обязательны")

	// ErrInvalidItemName возвращается при пустом названии позиции заказа.
	ErrInvalidItemName = errors.New("название товара не может быть пустым")

	// ErrInvalidQuantity возвращается, когда количество товара меньше или равно нулю.
	ErrInvalidQuantity = errors.New("количество должно быть больше нуля")

	// ErrInvalidPrice возвращается, когда цена товара меньше или равна нулю.
	ErrInvalidPrice = errors.New("цена должна быть больше нуля")

	// ErrInvalidTotalAmount возвращается, когда сумма заказа меньше или равна нулю.
	ErrInvalidTotalAmount = errors.New("сумма заказа должна быть больше нуля")

	// ErrInvalidPaymentMethod возвращается при неизвестном способе оплаты.
	ErrInvalidPaymentMethod = errors.New("неизвестный способ оплаты")

	// ErrUpfrontExceedsTotal возвращается, когда предоплата COD заказа не меньше общей суммы.
	ErrUpfrontExceedsTotal = errors.New("предоплата должна быть меньше общей суммы заказа")

	// ErrIllegalTransition возвращается при недопустимом переходе статуса заказа.
	ErrIllegalTransition = errors.New("недопустимый переход статуса заказа")

	// ErrOrderFrozen возвращается при попытке изменить заказ с одобренной отменой.
	ErrOrderFrozen = errors.New("заказ отменён и заморожен для изменений")

	// ErrCancellationNotAllowed возвращается, когда отмена недоступна в текущем статусе заказа.
	ErrCancellationNotAllowed = errors.New("отмена недоступна в текущем статусе заказа")

	// ErrCancellationAlreadyRequested возвращается при повторном запросе отмены.
	ErrCancellationAlreadyRequested = errors.New("запрос на отмену уже подан")

	// ErrCancellationNotRequested возвращается при решении по отмене без активного запроса.
	ErrCancellationNotRequested = errors.New("нет активного запроса на отмену")

	// ErrRejectionReasonRequired возвращается при отклонении запроса без причины.
	ErrRejectionReasonRequired = errors.New("причина отклонения обязательна")

	// ErrRefundOrderNotCancelled возвращается при попытке возврата по неотменённому заказу.
	ErrRefundOrderNotCancelled = errors.New("возврат возможен только по отменённому заказу")

	// ErrRefundNothingToRefund возвращается для COD заказа без предоплаты.
	ErrRefundNothingToRefund = errors.New("нечего возвращать: COD заказ без предоплаты")

	// ErrRefundNoUpfrontTransaction возвращается, когда у COD заказа нет транзакции предоплаты.
	ErrRefundNoUpfrontTransaction = errors.New("транзакция предоплаты не найдена")

	// ErrRefundPaymentNotCompleted возвращается, когда онлайн-платёж не завершён.
	ErrRefundPaymentNotCompleted = errors.New("платёж не завершён, возврат невозможен")

	// ErrRefundNoTransaction возвращается, когда у заказа нет идентификатора транзакции.
	ErrRefundNoTransaction = errors.New("идентификатор транзакции не найден")

	// ErrRefundAlreadyCompleted возвращается при повторном возврате (идемпотентность).
	ErrRefundAlreadyCompleted = errors.New("возврат уже выполнен")

	// ErrRefundInProgress возвращается, когда возврат уже обрабатывается.
	ErrRefundInProgress = errors.New("возврат уже обрабатывается")

	// ErrRevenueNotDelivered возвращается при подтверждении выручки до доставки заказа.
	ErrRevenueNotDelivered = errors.New("подтверждение выручки доступно только после доставки")

	// ErrRevenueNotEarned возвращается, когда выручка ещё не начислена или уже подтверждена.
	ErrRevenueNotEarned = errors.New("выручка не в статусе earned")

	// ErrReturnNotDelivered возвращается при запросе возврата товара до доставки.
	ErrReturnNotDelivered = errors.New("возврат товара доступен только после доставки")

	// ErrReturnAlreadyRequested возвращается при повторном запросе возврата товара.
	ErrReturnAlreadyRequested = errors.New("запрос на возврат товара уже подан")

	// ErrReturnNotRequested возвращается при решении по возврату без активного запроса.
	ErrReturnNotRequested = errors.New("нет активного запроса на возврат товара")

	// ErrInvalidSignature возвращается при неверной подписи callback платёжного шлюза.
	ErrInvalidSignature = errors.New("неверная подпись платёжного шлюза")

	// ErrPaymentAlreadyCompleted возвращается при повторном подтверждении оплаты.
	ErrPaymentAlreadyCompleted = errors.New("оплата уже подтверждена")
)
