package chapa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/payment"
)

func initiateRequest() payment.InitiateRequest {
	return payment.InitiateRequest{
		TxRef:       "tx-123",
		Amount:      decimal.RequireFromString("150.5"),
		Currency:    "ETB",
		Payer:       payment.Payer{Email: "hana@example.com", FirstName: "Hana", LastName: "Bekele"},
		CallbackURL: "https://api.example.com/payments/callback",
		ReturnURL:   "https://app.example.com/done",
	}
}

func TestInitiate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "150.50", body["amount"])
		assert.Equal(t, "ETB", body["currency"])
		assert.Equal(t, "hana@example.com", body["email"])
		assert.Equal(t, "tx-123", body["tx_ref"])
		assert.Equal(t, "https://api.example.com/payments/callback", body["callback_url"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/checkout/payment/abc"}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "sk_test", time.Second).Initiate(context.Background(), initiateRequest())
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "https://checkout.chapa.co/checkout/payment/abc", resp.CheckoutURL)
	assert.Equal(t, "tx-123", resp.TxRef)
	assert.Contains(t, string(resp.Raw), "Hosted Link")
}

func TestInitiate_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":{"currency":["The selected currency is invalid."]},"status":"failed","data":null}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "sk_test", time.Second).Initiate(context.Background(), initiateRequest())
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, payment.GatewayFailed, resp.Status)
	assert.Contains(t, resp.Message, "currency")
	assert.JSONEq(t, `{"message":{"currency":["The selected currency is invalid."]},"status":"failed","data":null}`, string(resp.Raw))
}

func TestInitiate_ServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Initiate(context.Background(), initiateRequest())
	assert.Error(t, err)
}

func TestInitiate_SuccessWithoutCheckoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok","status":"success","data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Initiate(context.Background(), initiateRequest())
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"settled", http.StatusOK, `{"message":"Payment details","status":"success","data":{"status":"success","tx_ref":"tx-123"}}`, payment.GatewaySuccess},
		{"still pending", http.StatusOK, `{"message":"Payment details","status":"success","data":{"status":"pending"}}`, payment.GatewayPending},
		{"declined", http.StatusOK, `{"message":"Payment details","status":"success","data":{"status":"failed"}}`, payment.GatewayFailed},
		{"cancelled by payer", http.StatusOK, `{"message":"Payment details","status":"success","data":{"status":"cancelled"}}`, payment.GatewayFailed},
		{"unknown transaction", http.StatusNotFound, `{"message":"Invalid transaction or Transaction not found","status":"failed","data":null}`, payment.GatewayFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/tx-123", r.URL.Path)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "tx-123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestVerify_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, "sk_test", 50*time.Millisecond).Verify(context.Background(), "tx-123")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestVerify_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "tx-123")
	assert.Error(t, err)
}

func TestVerify_NoDecision(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"malformed data", http.StatusOK, `{"status":"success","data":"oops"}`},
		{"missing data", http.StatusOK, `{"status":"success","data":null}`},
		{"unknown data status", http.StatusOK, `{"status":"success","data":{"status":"refunded_partial"}}`},
		{"unknown envelope status", http.StatusOK, `{"status":"queued","data":null}`},
		{"bad api key", http.StatusUnauthorized, `{"status":"failed","message":"Invalid API Key"}`},
		{"forbidden", http.StatusForbidden, `{"status":"failed","message":"Forbidden"}`},
		{"throttled", http.StatusTooManyRequests, `{"status":"failed","message":"Too many requests"}`},
		{"server error", http.StatusInternalServerError, `{"status":"failed","message":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "tx-123")
			require.Error(t, err)
			assert.Nil(t, resp)

			var gerr *payment.GatewayError
			require.ErrorAs(t, err, &gerr)
			assert.JSONEq(t, tt.body, string(gerr.Payload()))
		})
	}
}

func TestGatewayError_PayloadQuotesNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_test", time.Second).Verify(context.Background(), "tx-123")
	var gerr *payment.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusBadGateway, gerr.StatusCode)
	assert.Equal(t, `"\u003chtml\u003ebad gateway\u003c/html\u003e"`, string(gerr.Payload()))
}
