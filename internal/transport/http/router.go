package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/KeithOmondi/kian-optics/internal/handlers"
	"github.com/KeithOmondi/kian-optics/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	Auth           *auth.Middleware
	AuthHandler    *handlers.AuthHandler
	OrderHandler   *handlers.OrderHandler
	ProductHandler *handlers.ProductHandler
	PaymentHandler *handlers.PaymentHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v2 := e.Group("/api/v2")

	user := v2.Group("/user")
	user.POST("/register", d.AuthHandler.Register)
	user.POST("/login", d.AuthHandler.Login)
	user.POST("/logout", d.AuthHandler.Logout)

	order := v2.Group("/order")
	order.POST("/create-order", d.OrderHandler.CreateOrder)
	order.GET("/get-all-orders/:userId", d.OrderHandler.GetUserOrders)
	order.GET("/get-seller-all-orders/:shopId", d.OrderHandler.GetSellerOrders)
	order.PUT("/update-order-status/:id", d.OrderHandler.UpdateOrderStatus, d.Auth.RequireSeller)
	order.PUT("/order-refund/:id", d.OrderHandler.RequestRefund)
	order.PUT("/order-refund-success/:id", d.OrderHandler.ApproveRefund, d.Auth.RequireSeller)
	order.GET("/admin-all-orders", d.OrderHandler.AdminAllOrders, d.Auth.RequireAdmin)

	product := v2.Group("/product")
	product.POST("/create-product", d.ProductHandler.CreateProduct, d.Auth.RequireSeller)
	product.GET("/get-all-products-shop/:id", d.ProductHandler.GetShopProducts)
	product.DELETE("/delete-shop-product/:id", d.ProductHandler.DeleteShopProduct, d.Auth.RequireSeller)
	product.GET("/get-all-products", d.ProductHandler.GetAllProducts)
	product.PUT("/create-new-review", d.ProductHandler.CreateReview, d.Auth.RequireAuth)
	product.GET("/admin-all-products", d.ProductHandler.AdminAllProducts, d.Auth.RequireAdmin)
	product.GET("/search", d.ProductHandler.SearchProducts)

	payment := v2.Group("/payment")
	payment.POST("/process", d.PaymentHandler.ProcessPayment)
	payment.POST("/callback", d.PaymentHandler.Callback)
}
