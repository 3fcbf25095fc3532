// Package gateway содержит адаптер платёжного шлюза Razorpay.
// Ядро приложения работает только с интерфейсом PaymentGateway —
// конкретная реализация внедряется при сборке приложения.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/craftshop/pkg/circuitbreaker"
	"example.com/craftshop/pkg/logger"
)

// Ошибки адаптера шлюза.
var (
	// ErrGatewayUnavailable возвращается при сетевой ошибке или открытом circuit breaker.
	ErrGatewayUnavailable = errors.New("платёжный шлюз недоступен")

	// ErrInvalidAmount возвращается при неположительной сумме операции.
	ErrInvalidAmount = errors.New("сумма операции должна быть больше нуля")

	// ErrRefundRejected возвращается, когда шлюз отклонил возврат.
	ErrRefundRejected = errors.New("шлюз отклонил возврат")
)

// GatewayOrder — созданный на стороне шлюза заказ на оплату.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // В минимальных единицах (пайсы)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayPayment — платёж на стороне шлюза.
type GatewayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"` // created, authorized, captured, refunded, failed
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
}

// RefundResult — результат возврата средств.
type RefundResult struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// PaymentGateway определяет операции платёжного шлюза, нужные ядру.
// Все суммы — в минимальных единицах.
type PaymentGateway interface {
	// CreateOrder создаёт заказ на оплату на стороне шлюза.
	CreateOrder(ctx context.Context, amount int64, receipt string) (*GatewayOrder, error)

	// VerifySignature проверяет подпись callback об успешной оплате.
	VerifySignature(gatewayOrderID, paymentID, signature string) bool

	// FetchPaymentsForOrder возвращает платежи по заказу шлюза.
	// Используется для поиска транзакции предоплаты COD заказа.
	FetchPaymentsForOrder(ctx context.Context, gatewayOrderID string) ([]GatewayPayment, error)

	// Refund инициирует возврат средств по платежу.
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*RefundResult, error)
}

// Config — настройки клиента Razorpay.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string        // По умолчанию https://api.razorpay.com/v1
	Timeout   time.Duration // По умолчанию 15s
}

// Client — HTTP клиент Razorpay с circuit breaker.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.Breaker
}

// NewClient создаёт клиент Razorpay.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New("razorpay"),
	}
}

// CreateOrder создаёт заказ на оплату на стороне шлюза.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*GatewayOrder, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	body := map[string]any{
		"amount":   amount,
		"currency": "INR",
		"receipt":  receipt,
	}

	var order GatewayOrder
	if err := c.call(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifySignature проверяет подпись callback об успешной оплате.
// Подпись — HMAC-SHA256 от "{order_id}|{payment_id}" секретным ключом.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchPaymentsForOrder возвращает платежи по заказу шлюза.
func (c *Client) FetchPaymentsForOrder(ctx context.Context, gatewayOrderID string) ([]GatewayPayment, error) {
	var resp struct {
		Count int              `json:"count"`
		Items []GatewayPayment `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/orders/"+gatewayOrderID+"/payments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Refund инициирует возврат средств по платежу.
func (c *Client) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*RefundResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	body := map[string]any{
		"amount": amount,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var result RefundResult
	if err := c.call(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &result); err != nil {
		if isPermanentStatus(err) {
			return nil, fmt.Errorf("%w: %s", ErrRefundRejected, err.Error())
		}
		return nil, err
	}
	return &result, nil
}

// apiError — ошибка уровня HTTP от шлюза. Бизнес-отказы (4xx) не должны
// открывать circuit breaker — помечаются Permanent.
type apiError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("razorpay: статус %d, код %s: %s", e.StatusCode, e.Code, e.Description)
}

func isPermanentStatus(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// call выполняет запрос к шлюзу через circuit breaker.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	result, err := c.breaker.Do(func() (any, error) {
		return c.doRequest(ctx, method, path, body)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrBreakerOpen) {
			log := logger.FromContext(ctx)
			log.Warn().
				Str("path", path).
				Msg("Circuit breaker платёжного шлюза открыт")
			return ErrGatewayUnavailable
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(result.([]byte), out); err != nil {
			return fmt.Errorf("разбор ответа шлюза: %w", err)
		}
	}
	return nil
}

// doRequest выполняет один HTTP запрос с basic-авторизацией ключами мерчанта.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, circuitbreaker.Permanent(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, circuitbreaker.Permanent(err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		gwErr := &apiError{StatusCode: resp.StatusCode}
		var errResp struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil {
			gwErr.Code = errResp.Error.Code
			gwErr.Description = errResp.Error.Description
		}

		// 4xx — бизнес-отказ, не считаем отказом шлюза
		if resp.StatusCode < 500 {
			return nil, circuitbreaker.Permanent(gwErr)
		}
		return nil, gwErr
	}

	return data, nil
}
