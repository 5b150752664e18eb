package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/KeithOmondi/kian-optics/internal/events"
	"github.com/KeithOmondi/kian-optics/internal/logging"
	"github.com/KeithOmondi/kian-optics/internal/mailer"
	"github.com/KeithOmondi/kian-optics/internal/middleware/auth"
	"github.com/KeithOmondi/kian-optics/internal/models"
)

type OrderHandler struct {
	DB       *gorm.DB
	Mailer   mailer.Sender
	Producer events.Publisher
}

type createOrderRequest struct {
	Cart            []models.CartLine  `json:"cart"`
	ShippingAddress models.Address     `json:"shippingAddress"`
	User            models.OrderUser   `json:"user"`
	TotalPrice      float64            `json:"totalPrice"`
	PaymentInfo     models.PaymentInfo `json:"paymentInfo"`
}

// CreateOrder partitions the cart by shop, preserving first-seen order, and
// persists one order per shop. Every order carries the original request's
// shipping address, user and total price. Already-created orders are not
// rolled back when a later create fails.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Cart) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	shopOrder := make([]uint, 0, len(req.Cart))
	shopItems := make(map[uint][]models.CartLine)
	for _, line := range req.Cart {
		if _, seen := shopItems[line.ShopID]; !seen {
			shopOrder = append(shopOrder, line.ShopID)
		}
		shopItems[line.ShopID] = append(shopItems[line.ShopID], line)
	}

	orders := make([]models.Order, 0, len(shopOrder))
	for _, shopID := range shopOrder {
		order := models.Order{
			UserID:          req.User.ID,
			ShopID:          shopID,
			Cart:            shopItems[shopID],
			ShippingAddress: req.ShippingAddress,
			User:            req.User,
			TotalPrice:      req.TotalPrice,
			PaymentInfo:     req.PaymentInfo,
			Status:          models.StatusProcessing,
		}
		if err := h.DB.Create(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		orders = append(orders, order)
	}

	msg := mailer.OrderConfirmation(req.User.Email, req.User.Name, orders[0].ID, req.TotalPrice)
	if err := h.Mailer.Send(msg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for _, order := range orders {
		h.publish(c, events.TopicOrders, fmt.Sprint(order.ID), map[string]interface{}{
			"type":    "order_created",
			"orderID": order.ID,
			"shopID":  order.ShopID,
			"userID":  order.UserID,
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

// GetUserOrders lists a user's orders, newest first.
func (h *OrderHandler) GetUserOrders(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

// GetSellerOrders lists the orders containing a shop's cart lines, newest first.
func (h *OrderHandler) GetSellerOrders(c echo.Context) error {
	shopID, err := strconv.Atoi(c.Param("shopId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	var orders []models.Order
	if err := h.DB.Where("shop_id = ?", shopID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

// UpdateOrderStatus applies a seller-initiated status transition and its side
// effects. Handing the order to the delivery partner moves each cart line's
// quantity from stock to sold_out; delivery stamps the timestamp, marks the
// payment succeeded and credits the seller's balance minus the service charge.
// Inventory updates run as an awaited batch and partial failure surfaces as a
// 500 instead of being discarded.
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	order, httpErr := h.findOrder(c.Param("id"))
	if httpErr != nil {
		return httpErr
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Status == models.StatusTransferred {
		if err := h.adjustInventory(c.Request().Context(), order.Cart, false); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	order.Status = req.Status

	if req.Status == models.StatusDelivered {
		now := time.Now()
		order.DeliveredAt = &now
		order.PaymentInfo.Status = models.PaymentSucceeded

		shopID, err := auth.ShopID(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		serviceCharge := order.TotalPrice * models.ServiceChargeRate
		if err := h.creditShop(shopID, order.TotalPrice-serviceCharge); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	msg := mailer.StatusUpdate(order.User.Email, order.User.Name, order.ID, order.Status, order.TotalPrice)
	if err := h.Mailer.Send(msg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, events.TopicOrders, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"order":   order,
	})
}

// RequestRefund is the buyer side of the two-step refund: it only moves the
// order into the requested status.
func (h *OrderHandler) RequestRefund(c echo.Context) error {
	order, httpErr := h.findOrder(c.Param("id"))
	if httpErr != nil {
		return httpErr
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order.Status = req.Status
	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, events.TopicOrders, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_refund_requested",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"order":   order,
		"message": "Order Refund Request successfully!",
	})
}

// ApproveRefund is the seller side of the refund. A "Refund Success" status
// restores stock and reduces sold_out for every cart line, the inverse of
// fulfillment, again as an awaited batch.
func (h *OrderHandler) ApproveRefund(c echo.Context) error {
	order, httpErr := h.findOrder(c.Param("id"))
	if httpErr != nil {
		return httpErr
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order.Status = req.Status
	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Status == models.StatusRefundSuccess {
		if err := h.adjustInventory(c.Request().Context(), order.Cart, true); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	h.publish(c, events.TopicOrders, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_refund_approved",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Order Refund successfull!",
	})
}

// AdminAllOrders lists every order, most recently delivered first, then most
// recently created.
func (h *OrderHandler) AdminAllOrders(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Order("delivered_at DESC").Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"orders":  orders,
	})
}

func (h *OrderHandler) findOrder(idParam string) (*models.Order, *echo.HTTPError) {
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Order not found with this id")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &order, nil
}

// adjustInventory applies the stock/sold_out transition for every cart line
// and collects per-product failures instead of dropping them.
func (h *OrderHandler) adjustInventory(ctx context.Context, cart []models.CartLine, refund bool) error {
	var errs []error
	for _, line := range cart {
		var product models.Product
		if err := h.DB.WithContext(ctx).First(&product, line.ProductID).Error; err != nil {
			errs = append(errs, fmt.Errorf("product %d: %w", line.ProductID, err))
			continue
		}
		if refund {
			product.ApplyRefund(line.Qty)
		} else {
			product.ApplyFulfillment(line.Qty)
		}
		if err := h.DB.WithContext(ctx).Save(&product).Error; err != nil {
			errs = append(errs, fmt.Errorf("product %d: %w", line.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (h *OrderHandler) creditShop(shopID uint, amount float64) error {
	var shop models.Shop
	if err := h.DB.First(&shop, shopID).Error; err != nil {
		return fmt.Errorf("shop %d: %w", shopID, err)
	}
	shop.CreditBalance(amount)
	if err := h.DB.Save(&shop).Error; err != nil {
		return fmt.Errorf("shop %d: %w", shopID, err)
	}
	return nil
}

func (h *OrderHandler) publish(c echo.Context, topic, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "topic", topic, "error", err)
	}
}
