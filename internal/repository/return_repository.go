package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ReturnListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
}

type ReturnRepository interface {
	// Rejected 以外の申請が既にあれば ErrConflict
	Create(ctx context.Context, r model.ReturnRequest) (model.ReturnRequest, error)
	FindByID(ctx context.Context, id int64) (model.ReturnRequest, error)
	HasOpenForOrder(ctx context.Context, orderID int64) (bool, error)
	List(ctx context.Context, f ReturnListFilter) ([]model.ReturnRequest, int64, error)
	// 現在が from のときだけ更新
	UpdateStatus(ctx context.Context, id int64, from, to model.ReturnStatus, note string) (bool, error)
}
