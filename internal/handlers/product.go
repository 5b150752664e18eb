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
	"github.com/KeithOmondi/kian-optics/internal/imghost"
	"github.com/KeithOmondi/kian-optics/internal/logging"
	"github.com/KeithOmondi/kian-optics/internal/middleware/auth"
	"github.com/KeithOmondi/kian-optics/internal/models"
	"github.com/KeithOmondi/kian-optics/internal/search"
	"github.com/KeithOmondi/kian-optics/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Uploader imghost.Uploader
	Index    search.Indexer
	Producer events.Publisher
}

type createProductRequest struct {
	ShopID      uint     `json:"shopId"`
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"       validate:"gte=0"`
	Stock       int      `json:"stock"       validate:"gte=0"`
	Images      []string `json:"images"`
}

// CreateProduct uploads the submitted images to the hosting service and
// persists the product for the seller's shop.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var shop models.Shop
	if err := h.DB.First(&shop, req.ShopID).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Shop Id is invalid!")
	}

	ctx := c.Request().Context()
	images := make([]models.Image, 0, len(req.Images))
	for _, img := range req.Images {
		result, err := h.Uploader.Upload(ctx, img, "products")
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Image upload failed")
		}
		images = append(images, models.Image{PublicID: result.PublicID, URL: result.SecureURL})
	}

	product := models.Product{
		ShopID:      shop.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      images,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.Index.IndexProduct(ctx, &product); err != nil {
		logging.FromContext(ctx).Error("product indexing failed", "productID", product.ID, "error", err)
	}

	h.publish(c, fmt.Sprint(product.ID), map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID,
		"shopID":    product.ShopID,
		"name":      product.Name,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"product": product,
	})
}

// GetShopProducts lists every product belonging to one shop.
func (h *ProductHandler) GetShopProducts(c echo.Context) error {
	shopID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	var products []models.Product
	if err := h.DB.Where("shop_id = ?", shopID).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": products,
	})
}

// DeleteShopProduct removes a product, destroying its hosted images first.
// Image-host failures are logged and do not block the delete.
func (h *ProductHandler) DeleteShopProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found with this id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ctx := c.Request().Context()
	for _, img := range product.Images {
		if err := h.Uploader.Destroy(ctx, img.PublicID); err != nil {
			logging.FromContext(ctx).Error("image destroy failed", "publicID", img.PublicID, "error", err)
		}
	}

	if err := h.DB.Delete(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.Index.DeleteProduct(ctx, product.ID); err != nil {
		logging.FromContext(ctx).Error("product deindexing failed", "productID", product.ID, "error", err)
	}

	h.publish(c, fmt.Sprint(product.ID), map[string]interface{}{
		"type":      "product_deleted",
		"productID": product.ID,
		"shopID":    product.ShopID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product deleted successfully!",
	})
}

// GetAllProducts lists products for the storefront, newest first, paginated.
func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	var products []models.Product
	if err := h.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": products,
	})
}

type createReviewRequest struct {
	Rating    float64 `json:"rating"  validate:"required,gte=1,lte=5"`
	Comment   string  `json:"comment"`
	ProductID uint    `json:"productId" validate:"required"`
	OrderID   uint    `json:"orderId"   validate:"required"`
}

// CreateReview upserts the caller's review on a product bought through the
// given order and recomputes the aggregate rating. The product must be part
// of the order's cart; the matching cart line is flagged as reviewed.
func (h *ProductHandler) CreateReview(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product or order ID")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var order models.Order
	if err := h.DB.First(&order, req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	inOrder := false
	for _, line := range order.Cart {
		if line.ProductID == req.ProductID {
			inOrder = true
			break
		}
	}
	if !inOrder {
		return echo.NewHTTPError(http.StatusBadRequest, "This product is not part of the order")
	}

	product.UpsertReview(models.Review{
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		ProductID: req.ProductID,
	})
	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for i := range order.Cart {
		if order.Cart[i].ProductID == req.ProductID {
			order.Cart[i].IsReviewed = true
		}
	}
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ctx := c.Request().Context()
	if err := h.Index.IndexProduct(ctx, &product); err != nil {
		logging.FromContext(ctx).Error("product reindexing failed", "productID", product.ID, "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Reviewed successfully!",
	})
}

// AdminAllProducts lists every product, newest first.
func (h *ProductHandler) AdminAllProducts(c echo.Context) error {
	var products []models.Product
	if err := h.DB.Order("created_at DESC").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": products,
	})
}

// SearchProducts runs a fuzzy full-text query over the product index.
func (h *ProductHandler) SearchProducts(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, products, err := h.Index.Search(c.Request().Context(), q, from, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"total":    total,
		"products": products,
	})
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicProducts, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "topic", events.TopicProducts, "error", err)
	}
}
