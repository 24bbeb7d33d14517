package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 画像アップロード
type UploadHandler struct {
	uc *usecase.UploadUsecase
}

func NewUploadHandler(uc *usecase.UploadUsecase) *UploadHandler {
	return &UploadHandler{uc: uc}
}

func (h *UploadHandler) RegisterRoutes(e *echo.Echo, mw Middlewares) {
	e.POST("/uploads", h.upload, mw.Auth...)
}

// multipart の file フィールド
func (h *UploadHandler) upload(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "invalid file")
	}
	defer f.Close()

	out, err := h.uc.Upload(c.Request().Context(), userID, usecase.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
