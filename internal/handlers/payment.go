package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KeithOmondi/kian-optics/internal/events"
	"github.com/KeithOmondi/kian-optics/internal/logging"
	"github.com/KeithOmondi/kian-optics/internal/mpesa"
)

// Gateway is the slice of the mobile-money client the handler needs.
type Gateway interface {
	InitiatePayment(ctx context.Context, amount float64, phoneNumber, accountNumber string) (map[string]interface{}, error)
}

type PaymentHandler struct {
	Gateway  Gateway
	Producer events.Publisher
}

type processPaymentRequest struct {
	Amount        float64 `json:"amount"        validate:"required,gt=0"`
	PhoneNumber   string  `json:"phoneNumber"   validate:"required"`
	AccountNumber string  `json:"accountNumber"`
}

// ProcessPayment initiates a push payment against the gateway. Gateway errors
// are logged and reported as a generic failure.
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	var req processPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	data, err := h.Gateway.InitiatePayment(ctx, req.Amount, req.PhoneNumber, req.AccountNumber)
	if err != nil {
		logging.FromContext(ctx).Error("payment initiation failed", "phone", req.PhoneNumber, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "Payment initiation failed",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Payment initiated successfully",
		"data":    data,
	})
}

// Callback receives the gateway's asynchronous notification. It always
// acknowledges with 200 "OK" per the gateway contract; the parsed result is
// logged and published with the checkout request id as correlation key so a
// downstream consumer can reconcile it against pending payments.
func (h *PaymentHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	log := logging.FromContext(ctx)

	var payload mpesa.CallbackPayload
	if err := c.Bind(&payload); err != nil {
		log.Warn("payment callback with unreadable body", "error", err)
		return c.String(http.StatusOK, "OK")
	}

	cb := payload.Body.StkCallback
	log.Info("payment callback received",
		"checkoutRequestID", cb.CheckoutRequestID,
		"resultCode", cb.ResultCode,
		"resultDesc", cb.ResultDesc,
	)

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	event := map[string]interface{}{
		"type":              "payment_callback",
		"checkoutRequestID": cb.CheckoutRequestID,
		"merchantRequestID": cb.MerchantRequestID,
		"resultCode":        cb.ResultCode,
		"resultDesc":        cb.ResultDesc,
		"succeeded":         payload.Succeeded(),
	}
	if err := h.Producer.PublishEvent(pubCtx, events.TopicPayments, cb.CheckoutRequestID, event); err != nil {
		log.Error("event publish failed", "topic", events.TopicPayments, "error", err)
	}

	return c.String(http.StatusOK, "OK")
}
