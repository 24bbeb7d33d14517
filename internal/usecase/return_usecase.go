package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

type ReturnUsecase struct {
	tx       repo.TransactionManager
	returns  repo.ReturnRepository
	reverser PaymentReverser
	events   EventPublisher
	clock    Clock
}

func NewReturnUsecase(tx repo.TransactionManager, returns repo.ReturnRepository, reverser PaymentReverser, events EventPublisher, clock Clock) *ReturnUsecase {
	return &ReturnUsecase{tx: tx, returns: returns, reverser: reverser, events: events, clock: clock}
}

type ReturnItemInput struct {
	ProductID int64               `json:"product_id"`
	Size      string              `json:"size"`
	Color     string              `json:"color"`
	Quantity  int64               `json:"quantity"`
	Reason    string              `json:"reason"`
	Condition model.ItemCondition `json:"condition"`
}

type CreateReturnInput struct {
	OrderID int64             `json:"order_id"`
	Items   []ReturnItemInput `json:"items"`
}

type UpdateReturnStatusInput struct {
	Status    model.ReturnStatus `json:"status"`
	AdminNote string             `json:"admin_note"`
}

type ReturnListOutput struct {
	Items []model.ReturnRequest `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func validateReturnItems(items []ReturnItemInput) error {
	if len(items) == 0 {
		return badRequest("return items required")
	}
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return badRequest("invalid return item")
		}
		if strings.TrimSpace(it.Reason) == "" {
			return badRequest("reason required")
		}
		if !it.Condition.IsValid() {
			return badRequest("invalid condition")
		}
	}
	return nil
}

// 配達済みの本人の注文だけ。開いている返品があれば 409
func (u *ReturnUsecase) Create(ctx context.Context, userID int64, in CreateReturnInput) (model.ReturnRequest, error) {
	if userID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return model.ReturnRequest{}, badRequest("invalid order id")
	}
	if err := validateReturnItems(in.Items); err != nil {
		return model.ReturnRequest{}, err
	}

	var out model.ReturnRequest
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じ注文への同時申請は注文行ロックで直列化
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if o.Status != model.OrderStatusDelivered {
			return badRequest("only delivered orders can be returned")
		}

		open, err := r.Returns().HasOpenForOrder(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		if open {
			return NewHTTPError(http.StatusConflict, "return request already exists for this order")
		}

		// 同じ明細の数量を合算して注文数量と比べる
		requested := map[cart.Key]int64{}
		items := make([]model.ReturnItem, 0, len(in.Items))
		for _, it := range in.Items {
			k := cart.Key{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
			requested[k] += it.Quantity
			ordered := o.OrderedQuantity(it.ProductID, it.Size, it.Color)
			if ordered == 0 {
				return badRequest(fmt.Sprintf("product %d (%s/%s) is not in this order", it.ProductID, it.Size, it.Color))
			}
			if requested[k] > ordered {
				return badRequest(fmt.Sprintf("return quantity exceeds ordered quantity for product %d", it.ProductID))
			}
			items = append(items, model.ReturnItem{
				ProductID: it.ProductID,
				Size:      it.Size,
				Color:     it.Color,
				Quantity:  it.Quantity,
				Reason:    strings.TrimSpace(it.Reason),
				Condition: it.Condition,
			})
		}

		now := u.clock.Now()
		created, err := r.Returns().Create(ctx, model.ReturnRequest{
			OrderID:   o.ID,
			UserID:    userID,
			Items:     items,
			Status:    model.ReturnStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "return request already exists for this order")
		}
		if err != nil {
			return dbError()
		}
		out = created
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	if err := u.events.Publish(ctx, EventReturnRequested, out); err != nil {
		logrus.WithError(err).WithField("return_id", out.ID).Warn("failed to publish return event")
	}
	return out, nil
}

func (u *ReturnUsecase) ListMine(ctx context.Context, userID int64, page, limit int) (ReturnListOutput, error) {
	if userID <= 0 {
		return ReturnListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.list(ctx, repo.ReturnListFilter{Page: page, Limit: limit, UserID: &userID})
}

func (u *ReturnUsecase) AdminList(ctx context.Context, f repo.ReturnListFilter) (ReturnListOutput, error) {
	if f.Status != "" && !model.ReturnStatus(f.Status).IsValid() {
		return ReturnListOutput{}, badRequest("invalid status")
	}
	return u.list(ctx, f)
}

func (u *ReturnUsecase) list(ctx context.Context, f repo.ReturnListFilter) (ReturnListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	items, total, err := u.returns.List(ctx, f)
	if err != nil {
		return ReturnListOutput{}, dbError()
	}
	return ReturnListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *ReturnUsecase) Get(ctx context.Context, userID int64, isAdmin bool, returnID int64) (model.ReturnRequest, error) {
	rr, err := u.returns.FindByID(ctx, returnID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !isAdmin && rr.UserID != userID) {
		return model.ReturnRequest{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.ReturnRequest{}, dbError()
	}
	return rr, nil
}

// Refunded で返金を呼ぶ。失敗したら遷移ごと戻す
func (u *ReturnUsecase) AdminUpdateStatus(ctx context.Context, actorAdminUserID, returnID int64, in UpdateReturnStatusInput) (model.ReturnRequest, error) {
	if actorAdminUserID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	next := in.Status
	if !next.IsValid() {
		return model.ReturnRequest{}, badRequest("invalid status")
	}

	var out model.ReturnRequest
	changed := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rr, err := r.Returns().FindByID(ctx, returnID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if rr.Status == next {
			out = rr
			return nil
		}
		if !rr.Status.CanTransitionTo(next) {
			return badRequest(fmt.Sprintf("invalid status transition: %s -> %s", rr.Status, next))
		}

		note := strings.TrimSpace(in.AdminNote)
		ok, err := r.Returns().UpdateStatus(ctx, rr.ID, rr.Status, next, note)
		if err != nil {
			return dbError()
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "return status changed")
		}

		if next == model.ReturnStatusRefunded {
			o, err := r.Orders().FindByID(ctx, rr.OrderID)
			if err != nil {
				return dbError()
			}
			if err := u.reverser.Reverse(ctx, o, rr); err != nil {
				logrus.WithError(err).WithField("return_id", rr.ID).Error("refund failed")
				return NewHTTPError(http.StatusBadGateway, "refund failed")
			}
		}

		before := rr.Status
		rr.Status = next
		if note != "" {
			rr.AdminNote = note
		}
		out, changed = rr, true

		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateReturnStatus,
			ResourceType: model.AuditResourceReturn,
			ResourceID:   rr.ID,
			CreatedAt:    u.clock.Now(),
		}, map[string]string{"status": string(before)}, map[string]string{"status": string(next)})
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	if changed {
		if err := u.events.Publish(ctx, EventReturnStatus, out); err != nil {
			logrus.WithError(err).WithField("return_id", out.ID).Warn("failed to publish return event")
		}
	}
	return out, nil
}
