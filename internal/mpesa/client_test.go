package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:             baseURL,
		ConsumerKey:         "key",
		ConsumerSecret:      "secret",
		Shortcode:           "174379",
		LipaShortcode:       "174379",
		LipaShortcodeSecret: "lipa-secret",
		Paybill:             "600000",
		Passkey:             "passkey",
		CallbackURL:         "https://shop.test/api/v2/payment/callback",
		HTTPClient:          http.DefaultClient,
	}
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v1/generate", r.URL.Path)
		require.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", user)
		require.Equal(t, "secret", pass)

		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-123", "expires_in": "3599"})
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL).AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "token-123", token)
}

func TestAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).AccessToken(context.Background())
	require.Error(t, err)
}

func TestInitiatePayment(t *testing.T) {
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token-123"})
		case "/mpesa/stkpush/v1/processrequest":
			require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode":      "0",
				"CheckoutRequestID": "ws_CO_123",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).InitiatePayment(context.Background(), 150, "254700000000", "ORDER-1")
	require.NoError(t, err)
	require.Equal(t, "ws_CO_123", resp["CheckoutRequestID"])

	require.Equal(t, "174379", gotPayload["BusinessShortcode"])
	require.Equal(t, "254700000000", gotPayload["PhoneNumber"])
	require.Equal(t, "254700000000", gotPayload["PartyA"])
	require.Equal(t, "600000", gotPayload["PartyB"])
	require.Equal(t, float64(150), gotPayload["Amount"])
	require.Equal(t, "ORDER-1", gotPayload["AccountReference"])
	require.Equal(t, "PayBill", gotPayload["TransactionType"])
	require.Equal(t, "https://shop.test/api/v2/payment/callback", gotPayload["CallBackURL"])
}

func TestInitiatePaymentTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).InitiatePayment(context.Background(), 150, "254700000000", "ORDER-1")
	require.Error(t, err)
}

func TestCallbackSucceeded(t *testing.T) {
	raw := `{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok"}}}`
	var payload CallbackPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.True(t, payload.Succeeded())
	require.Equal(t, "ws_CO_1", payload.Body.StkCallback.CheckoutRequestID)

	raw = `{"Body":{"stkCallback":{"ResultCode":1032,"ResultDesc":"cancelled"}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.False(t, payload.Succeeded())
}
