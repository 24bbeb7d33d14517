package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "http error with order id",
			err:    &usecase.HTTPError{Status: http.StatusBadGateway, Message: "payment initiation failed", OrderID: 42},
			status: http.StatusBadGateway,
			body:   `{"error":"payment initiation failed","order_id":42}`,
		},
		{
			name:   "sentinel",
			err:    usecase.ErrNotFound,
			status: http.StatusNotFound,
			body:   `{"error":"not found"}`,
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal error"}`,
		},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestParsePaging(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=2&limit=30", nil), httptest.NewRecorder())
	page, limit, msg := parsePaging(c)
	assert.Equal(t, 2, page)
	assert.Equal(t, 30, limit)
	assert.Empty(t, msg)

	// 未指定は 0
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	page, limit, msg = parsePaging(c)
	assert.Zero(t, page)
	assert.Zero(t, limit)
	assert.Empty(t, msg)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=x", nil), httptest.NewRecorder())
	_, _, msg = parsePaging(c)
	assert.Equal(t, "invalid limit", msg)
}
