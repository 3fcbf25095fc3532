// Package handler содержит HTTP обработчики REST API магазина.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/craftshop/internal/domain"
	"example.com/craftshop/internal/gateway"
	"example.com/craftshop/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Группы доменных ошибок для маппинга в HTTP статусы.
var (
	notFoundErrors = []error{
		domain.ErrOrderNotFound,
		domain.ErrProductNotFound,
	}

	validationErrors = []error{
		domain.ErrEmptyOrderItems,
		domain.ErrInvalidCustomerName,
		domain.ErrInvalidCustomerEmail,
		domain.ErrInvalidCustomerPhone,
		domain.ErrInvalidAddress,
		domain.ErrInvalidItemName,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidPrice,
		domain.ErrInvalidTotalAmount,
		domain.ErrInvalidPaymentMethod,
		domain.ErrUpfrontExceedsTotal,
		domain.ErrRejectionReasonRequired,
		domain.ErrInvalidSignature,
	}

	conflictErrors = []error{
		domain.ErrIllegalTransition,
		domain.ErrOrderFrozen,
		domain.ErrCancellationNotAllowed,
		domain.ErrCancellationAlreadyRequested,
		domain.ErrCancellationNotRequested,
		domain.ErrRefundOrderNotCancelled,
		domain.ErrRefundNothingToRefund,
		domain.ErrRefundNoUpfrontTransaction,
		domain.ErrRefundPaymentNotCompleted,
		domain.ErrRefundNoTransaction,
		domain.ErrRefundAlreadyCompleted,
		domain.ErrRefundInProgress,
		domain.ErrRevenueNotDelivered,
		domain.ErrRevenueNotEarned,
		domain.ErrReturnNotDelivered,
		domain.ErrReturnAlreadyRequested,
		domain.ErrReturnNotRequested,
		domain.ErrPaymentAlreadyCompleted,
	}

	gatewayErrors = []error{
		gateway.ErrGatewayUnavailable,
		gateway.ErrRefundRejected,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// HandleServiceError преобразует ошибку сервисного слоя в HTTP ответ.
// Доменные ошибки отдаются клиенту с исходным текстом,
// всё неизвестное скрывается за 500.
func HandleServiceError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	var httpStatus int
	var errorCode string

	switch {
	case err == nil:
		// nil ошибка — баг в вызывающем коде
		log.Error().Str("method", method).Msg("HandleServiceError вызван с nil ошибкой")
		httpStatus = http.StatusInternalServerError
		errorCode = "internal_error"

	case matchesAny(err, notFoundErrors):
		httpStatus = http.StatusNotFound
		errorCode = "not_found"

	case matchesAny(err, validationErrors):
		httpStatus = http.StatusBadRequest
		errorCode = "invalid_request"

	case matchesAny(err, conflictErrors):
		httpStatus = http.StatusConflict
		errorCode = "conflict"

	case matchesAny(err, gatewayErrors):
		httpStatus = http.StatusBadGateway
		errorCode = "gateway_error"

	default:
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	message := "Внутренняя ошибка сервера"
	if err != nil {
		message = err.Error()
		log.Warn().Err(err).Str("method", method).Int("status", httpStatus).Msg("Бизнес-ошибка")
	}

	c.JSON(httpStatus, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
