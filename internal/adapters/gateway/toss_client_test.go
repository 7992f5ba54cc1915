package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"genieq-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *TossClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTossClient(Config{BaseURL: srv.URL, SecretKey: "test_sk", Timeout: timeout})
}

func TestConfirmSendsCaptureRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/confirm", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "test_sk", user)
		require.Empty(t, pass)
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "pk_1", body["paymentKey"])
		require.Equal(t, "order_1", body["orderId"])
		require.Equal(t, float64(9900), body["amount"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"paymentKey": "pk_1",
			"orderId": "order_1",
			"status": "DONE",
			"method": "카드",
			"totalAmount": 9900,
			"requestedAt": "2024-02-13T12:17:57+09:00",
			"approvedAt": "2024-02-13T12:18:14+09:00"
		}`))
	}, time.Second)

	approval, err := client.Confirm(context.Background(), "pk_1", "order_1", decimal.NewFromInt(9900))
	require.NoError(t, err)
	require.Equal(t, domain.GatewayStatusDone, approval.Status)
	require.Equal(t, "카드", approval.Method)
	require.True(t, decimal.NewFromInt(9900).Equal(approval.TotalAmount))
	require.False(t, approval.ApprovedAt.IsZero())
	require.True(t, approval.ApprovedAt.After(approval.RequestedAt))
	require.NotEmpty(t, approval.Raw)
}

func TestConfirmMapsGatewayRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"REJECT_CARD_PAYMENT","message":"한도초과"}`))
	}, time.Second)

	_, err := client.Confirm(context.Background(), "pk_1", "order_1", decimal.NewFromInt(9900))
	require.ErrorIs(t, err, domain.ErrGateway)

	var gwErr *domain.GatewayError
	require.True(t, errors.As(err, &gwErr))
	require.Equal(t, "REJECT_CARD_PAYMENT", gwErr.Code)
	require.Equal(t, http.StatusForbidden, gwErr.StatusCode)
}

func TestConfirmUnreadableSuccessIsNotARejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalAmount":{"v":9900}}`))
	}, time.Second)

	_, err := client.Confirm(context.Background(), "pk_1", "order_1", decimal.NewFromInt(9900))
	require.ErrorIs(t, err, domain.ErrGatewayResponse)
	require.NotErrorIs(t, err, domain.ErrGateway)

	var gwErr *domain.GatewayError
	require.False(t, errors.As(err, &gwErr))
}

func TestConfirmTimesOut(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	_, err := client.Confirm(context.Background(), "pk_1", "order_1", decimal.NewFromInt(9900))
	require.Less(t, time.Since(start), 2*time.Second)

	var gwErr *domain.GatewayError
	require.True(t, errors.As(err, &gwErr))
	require.Equal(t, CodeUnavailable, gwErr.Code)
	require.Zero(t, gwErr.StatusCode)
}

func TestCancelAndLookup(t *testing.T) {
	var cancelBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/pk_1/cancel":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cancelBody))
			_, _ = w.Write([]byte(`{"paymentKey":"pk_1","orderId":"order_1","status":"CANCELED","totalAmount":9900}`))
		case "/v1/payments/orders/order_1":
			require.Equal(t, http.MethodGet, r.Method)
			require.Empty(t, r.Header.Get("Idempotency-Key"))
			_, _ = w.Write([]byte(`{"paymentKey":"pk_1","orderId":"order_1","status":"DONE","totalAmount":9900}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"NOT_FOUND_PAYMENT","message":"not found"}`))
		}
	}, time.Second)
	ctx := context.Background()

	require.NoError(t, client.Cancel(ctx, "pk_1", "local persistence failed", decimal.NewFromInt(9900)))
	require.Equal(t, "local persistence failed", cancelBody["cancelReason"])
	require.Equal(t, float64(9900), cancelBody["cancelAmount"])

	approval, err := client.Lookup(ctx, "order_1")
	require.NoError(t, err)
	require.Equal(t, "pk_1", approval.PaymentKey)
	require.True(t, approval.ApprovedAt.IsZero())

	_, err = client.Lookup(ctx, "order_404")
	var gwErr *domain.GatewayError
	require.True(t, errors.As(err, &gwErr))
	require.Equal(t, "NOT_FOUND_PAYMENT", gwErr.Code)
}
