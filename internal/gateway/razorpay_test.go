package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient создаёт клиент, направленный на тестовый сервер.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		KeyID:     "rzp_test_key",
		KeySecret: "test_secret",
		BaseURL:   srv.URL,
	})
	return client, srv
}

func TestClient_CreateOrder(t *testing.T) {
	t.Run("успешное создание", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/orders", r.URL.Path)

			// Basic-авторизация ключами мерчанта
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "rzp_test_key", user)
			assert.Equal(t, "test_secret", pass)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(50000), body["amount"])
			assert.Equal(t, "INR", body["currency"])

			_ = json.NewEncoder(w).Encode(GatewayOrder{
				ID:       "order_gw123",
				Amount:   50000,
				Currency: "INR",
				Status:   "created",
			})
		})

		order, err := client.CreateOrder(context.Background(), 50000, "order-internal-1")

		require.NoError(t, err)
		assert.Equal(t, "order_gw123", order.ID)
		assert.Equal(t, int64(50000), order.Amount)
	})

	t.Run("нулевая сумма отклоняется без запроса", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("запрос к шлюзу не должен выполняться")
		})

		_, err := client.CreateOrder(context.Background(), 0, "order-internal-1")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("ошибка 400 от шлюза", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
		})

		_, err := client.CreateOrder(context.Background(), 100, "order-internal-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
	})
}

func TestClient_VerifySignature(t *testing.T) {
	client := NewClient(Config{KeyID: "k", KeySecret: "test_secret"})

	sign := func(orderID, paymentID string) string {
		mac := hmac.New(sha256.New, []byte("test_secret"))
		mac.Write([]byte(orderID + "|" + paymentID))
		return hex.EncodeToString(mac.Sum(nil))
	}

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{
			name:      "корректная подпись",
			orderID:   "order_gw1",
			paymentID: "pay_1",
			signature: sign("order_gw1", "pay_1"),
			want:      true,
		},
		{
			name:      "подпись от другого платежа",
			orderID:   "order_gw1",
			paymentID: "pay_1",
			signature: sign("order_gw1", "pay_2"),
			want:      false,
		},
		{
			name:      "пустая подпись",
			orderID:   "order_gw1",
			paymentID: "pay_1",
			signature: "",
			want:      false,
		},
		{
			name:      "мусор вместо подписи",
			orderID:   "order_gw1",
			paymentID: "pay_1",
			signature: "deadbeef",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.VerifySignature(tt.orderID, tt.paymentID, tt.signature))
		})
	}
}

func TestClient_FetchPaymentsForOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/order_gw1/payments", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"count": 2,
			"items": [
				{"id": "pay_1", "order_id": "order_gw1", "amount": 30000, "status": "captured", "captured": true},
				{"id": "pay_0", "order_id": "order_gw1", "amount": 30000, "status": "failed", "captured": false}
			]
		}`))
	})

	payments, err := client.FetchPaymentsForOrder(context.Background(), "order_gw1")

	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "pay_1", payments[0].ID)
	assert.True(t, payments[0].Captured)
}

func TestClient_Refund(t *testing.T) {
	t.Run("успешный возврат", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/pay_1/refund", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(30000), body["amount"])

			_ = json.NewEncoder(w).Encode(RefundResult{
				ID:        "rfnd_1",
				PaymentID: "pay_1",
				Amount:    30000,
				Status:    "processed",
			})
		})

		result, err := client.Refund(context.Background(), "pay_1", 30000,
			map[string]string{"order_id": "order-internal-1"})

		require.NoError(t, err)
		assert.Equal(t, "rfnd_1", result.ID)
		assert.Equal(t, int64(30000), result.Amount)
	})

	t.Run("отказ шлюза в возврате", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"fully refunded already"}}`))
		})

		_, err := client.Refund(context.Background(), "pay_1", 30000, nil)

		assert.ErrorIs(t, err, ErrRefundRejected)
	})

	t.Run("нулевая сумма отклоняется", func(t *testing.T) {
		client := NewClient(Config{KeyID: "k", KeySecret: "s"})

		_, err := client.Refund(context.Background(), "pay_1", 0, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestClient_GatewayUnavailable(t *testing.T) {
	client := NewClient(Config{
		KeyID:     "k",
		KeySecret: "s",
		BaseURL:   "http://127.0.0.1:1", // Заведомо недоступный адрес
	})

	_, err := client.CreateOrder(context.Background(), 50000, "order-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
