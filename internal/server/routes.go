package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// ルート登録に使うハンドラ一式
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Coupon       *handler.CouponHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Return       *handler.ReturnHandler
	Address      *handler.AddressHandler
	Upload       *handler.UploadHandler
	AdminUser    *handler.AdminUserHandler
}

// 認証系ミドルウェアを組む
func NewMiddlewares(jwtSecret string, users repository.UserRepository) handler.Middlewares {
	auth := []echo.MiddlewareFunc{
		middleware.AuthJWT(jwtSecret),
		middleware.TokenVersionGuard(users),
	}
	return handler.Middlewares{
		Auth: auth,
		Optional: []echo.MiddlewareFunc{
			middleware.OptionalAuthJWT(jwtSecret),
			middleware.TokenVersionGuard(users),
		},
		Admin: append(append([]echo.MiddlewareFunc{}, auth...), middleware.AdminRoleGuard()),
	}
}

func RegisterRoutes(e *echo.Echo, h Handlers, mw handler.Middlewares) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", metrics.Handler())

	h.Auth.RegisterRoutes(e, mw)
	h.Product.RegisterRoutes(e)
	h.AdminProduct.RegisterRoutes(e, mw)
	h.Cart.RegisterRoutes(e, mw)
	h.Coupon.RegisterRoutes(e, mw)
	h.Order.RegisterRoutes(e, mw)
	h.AdminOrder.RegisterRoutes(e, mw)
	h.Return.RegisterRoutes(e, mw)
	h.Address.RegisterRoutes(e, mw)
	h.Upload.RegisterRoutes(e, mw)
	h.AdminUser.RegisterRoutes(e, mw)
}
