package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// handler でそのままレスポンスにするエラー
type HTTPError struct {
	Status  int
	Message string
	// 決済失敗時など、どの注文か返したいとき
	OrderID int64
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

func badRequest(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

func dbError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

// sentinel も HTTPError に寄せる
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	switch {
	case errors.Is(err, ErrValidation):
		return &HTTPError{Status: http.StatusBadRequest, Message: err.Error()}, true
	case errors.Is(err, ErrUnauthorized):
		return &HTTPError{Status: http.StatusUnauthorized, Message: "unauthorized"}, true
	case errors.Is(err, ErrForbidden):
		return &HTTPError{Status: http.StatusForbidden, Message: "forbidden"}, true
	case errors.Is(err, ErrNotFound):
		return &HTTPError{Status: http.StatusNotFound, Message: "not found"}, true
	case errors.Is(err, ErrConflict):
		return &HTTPError{Status: http.StatusConflict, Message: err.Error()}, true
	}
	return nil, false
}
