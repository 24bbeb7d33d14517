package usecase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

const MaxUploadSize = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type UploadUsecase struct {
	storage ObjectStorage
	ids     IDGenerator
}

// storage が nil なら未設定扱い（503）
func NewUploadUsecase(storage ObjectStorage, ids IDGenerator) *UploadUsecase {
	return &UploadUsecase{storage: storage, ids: ids}
}

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadOutput struct {
	URL string `json:"url"`
}

func (u *UploadUsecase) Upload(ctx context.Context, userID int64, in UploadInput) (UploadOutput, error) {
	if userID <= 0 {
		return UploadOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if u.storage == nil {
		return UploadOutput{}, NewHTTPError(http.StatusServiceUnavailable, "storage not configured")
	}
	if in.Size <= 0 {
		return UploadOutput{}, badRequest("empty file")
	}
	if in.Size > MaxUploadSize {
		return UploadOutput{}, NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	ct := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	ext, ok := allowedImageTypes[ct]
	if !ok {
		return UploadOutput{}, badRequest("only image files are allowed")
	}

	key := path.Join("uploads", fmt.Sprintf("%d", userID), u.ids.NewID()+ext)
	url, err := u.storage.Put(ctx, key, ct, in.Body, in.Size)
	if err != nil {
		return UploadOutput{}, NewHTTPError(http.StatusBadGateway, "upload failed")
	}
	return UploadOutput{URL: url}, nil
}
