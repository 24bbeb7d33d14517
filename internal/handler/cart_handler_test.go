package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// AuthJWT の代わりに user_id を入れる
func asUser(id int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserIDKey, id)
			c.Set(middleware.CtxUserRoleKey, string(model.RoleUser))
			return next(c)
		}
	}
}

func newCartServer(t *testing.T, mw handler.Middlewares) (*echo.Echo, *productRepoMock) {
	t.Helper()
	products := new(productRepoMock)
	products.On("FindByID", mock.Anything, int64(5)).Return(model.Product{
		ID:       5,
		Name:     "Hoodie",
		Price:    model.NewMoney(1500),
		IsActive: true,
		Variants: []model.ProductVariant{{ID: 50, ProductID: 5, Size: "M", Color: "Grey", Stock: 3}},
	}, nil).Maybe()

	uc := usecase.NewCartUsecase(cache.NewMemoryCartStore(), products, fixedClock{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	e := echo.New()
	handler.NewCartHandler(uc).RegisterRoutes(e, mw)
	return e, products
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestCartHandler_AddAndRemove(t *testing.T) {
	e, _ := newCartServer(t, handler.Middlewares{Auth: []echo.MiddlewareFunc{asUser(7)}})

	rec := do(e, jsonRequest(http.MethodPost, "/cart", `{"product_id":5,"size":"M","color":"Grey","quantity":2}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"subtotal":3000`)

	// 在庫 3 を超える
	rec = do(e, jsonRequest(http.MethodPost, "/cart", `{"product_id":5,"size":"M","color":"Grey","quantity":2}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient stock", decodeError(t, rec))

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/cart/items?product_id=5&size=M&color=Grey", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/cart/items?product_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid product_id", decodeError(t, rec))
}

func TestCartHandler_Clear(t *testing.T) {
	e, _ := newCartServer(t, handler.Middlewares{Auth: []echo.MiddlewareFunc{asUser(7)}})

	rec := do(e, jsonRequest(http.MethodPost, "/cart", `{"product_id":5,"size":"M","color":"Grey","quantity":1}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/cart", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestCartHandler_Unauthorized(t *testing.T) {
	// user_id が入っていない
	e, _ := newCartServer(t, handler.Middlewares{})

	rec := do(e, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec))
}

func TestCartHandler_InvalidBody(t *testing.T) {
	e, _ := newCartServer(t, handler.Middlewares{Auth: []echo.MiddlewareFunc{asUser(7)}})

	rec := do(e, jsonRequest(http.MethodPost, "/cart", `{"product_id":"five"`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeError(t, rec))
}
