package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// Tx内で呼ぶ。ステータスを Cancelled にし、在庫とクーポンを戻す
// actorUserID が 0 ならシステム操作（決済失敗時の補償など）
func cancelInTx(ctx context.Context, r repo.TxRepos, order model.Order, actorUserID int64, now time.Time) error {
	ok, err := r.Orders().UpdateStatus(ctx, order.ID, order.Status, model.OrderStatusCancelled, now)
	if err != nil {
		return dbError()
	}
	if !ok {
		return NewHTTPError(http.StatusConflict, "order status changed")
	}

	if err := restoreStock(ctx, r.Inventory(), order.Items); err != nil {
		return err
	}
	if _, err := r.Coupons().ReleaseForOrder(ctx, order.ID); err != nil {
		return dbError()
	}

	return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionCancelOrder,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   order.ID,
		CreatedAt:    now,
	}, map[string]string{"status": string(order.Status)}, map[string]string{"status": string(model.OrderStatusCancelled)})
}

// 削除済みバリアントは戻し先がないので飛ばす
func restoreStock(ctx context.Context, inv repo.InventoryRepository, items []model.OrderItem) error {
	for _, it := range items {
		err := inv.IncreaseStock(ctx, it.VariantID, it.Quantity)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return dbError()
		}
	}
	return nil
}
