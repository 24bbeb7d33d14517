package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, msg := bindListProducts(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// id でも slug でも引ける
func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.uc.GetProductDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// 一覧のクエリ。公開と管理で共通
func bindListProducts(c echo.Context) (usecase.ListProductsInput, string) {
	// page（default 1）/ limit（default 20）
	page, limit, msg := parsePaging(c)
	if msg != "" {
		return usecase.ListProductsInput{}, msg
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}

	in := usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Gender:   c.QueryParam("gender"),
		Sort:     c.QueryParam("sort"),
	}

	if v := c.QueryParam("min_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			return usecase.ListProductsInput{}, "invalid min_price"
		}
		in.MinPrice = &x
	}
	if v := c.QueryParam("max_price"); v != "" {
		x, err := decimal.NewFromString(v)
		if err != nil {
			return usecase.ListProductsInput{}, "invalid max_price"
		}
		in.MaxPrice = &x
	}
	if v := c.QueryParam("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return usecase.ListProductsInput{}, "invalid featured"
		}
		in.Featured = &b
	}
	return in, ""
}
