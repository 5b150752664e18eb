package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KeithOmondi/kian-optics/internal/events"
)

func TestProcessPayment(t *testing.T) {
	env := newTestEnv(t)
	env.Gateway.resp = map[string]interface{}{
		"ResponseCode":      "0",
		"CheckoutRequestID": "ws_CO_123",
	}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v2/payment/process", map[string]interface{}{
		"amount":        150.0,
		"phoneNumber":   "254700000000",
		"accountNumber": "ORDER-1",
	})
	require.NoError(t, env.Payment.ProcessPayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Payment initiated successfully", body["message"])
	data := body["data"].(map[string]interface{})
	require.Equal(t, "ws_CO_123", data["CheckoutRequestID"])
}

func TestProcessPaymentGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Gateway.err = errors.New("gateway unreachable")

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v2/payment/process", map[string]interface{}{
		"amount":      150.0,
		"phoneNumber": "254700000000",
	})
	require.NoError(t, env.Payment.ProcessPayment(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Payment initiation failed", body["message"])
}

func TestProcessPaymentRejectsMissingAmount(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v2/payment/process", map[string]interface{}{
		"phoneNumber": "254700000000",
	})
	requireHTTPError(t, env.Payment.ProcessPayment(c), http.StatusBadRequest)
}

func TestPaymentCallbackAlwaysAcknowledges(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
			},
		},
	}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v2/payment/callback", payload)
	require.NoError(t, env.Payment.Callback(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())

	// The callback is published with the checkout request id as the
	// correlation key.
	require.Len(t, env.Producer.events, 1)
	require.Equal(t, events.TopicPayments, env.Producer.events[0].Topic)
	require.Equal(t, "ws_CO_191220191020363925", env.Producer.events[0].Key)
}

func TestPaymentCallbackUnreadableBody(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v2/payment/callback", "not-json")
	require.NoError(t, env.Payment.Callback(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}
