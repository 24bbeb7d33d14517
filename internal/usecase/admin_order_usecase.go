package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	users    repo.UserRepository
	labeler  ShippingLabeler
	notifier Notifier
	events   EventPublisher
	clock    Clock
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	labeler ShippingLabeler,
	notifier Notifier,
	events EventPublisher,
	clock Clock,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:       tx,
		orders:   orders,
		users:    users,
		labeler:  labeler,
		notifier: notifier,
		events:   events,
		clock:    clock,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status model.OrderStatus `json:"status"`
	// Shipped のときだけ使う。空ならラベル発行で採番
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

type AdminShippingInput struct {
	TrackingNumber   string `json:"tracking_number"`
	Carrier          string `json:"carrier"`
	ShippingLabelURL string `json:"shipping_label_url"`
}

func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Status != "" && !model.OrderStatus(f.Status).IsValid() {
		return OrderListOutput{}, badRequest("invalid status")
	}
	if f.PaymentMethod != "" && !model.PaymentMethod(f.PaymentMethod).IsValid() {
		return OrderListOutput{}, badRequest("invalid payment_method")
	}

	items, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, dbError()
	}
	return OrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (model.Order, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, dbError()
	}
	return o, nil
}

// 遷移表に沿ってステータスを進める。同じステータスなら何もしない
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, badRequest("invalid id")
	}
	next := model.OrderStatus(strings.TrimSpace(string(in.Status)))
	if !next.IsValid() {
		return model.Order{}, badRequest("invalid status")
	}

	var out model.Order
	changed := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}

		// すでに同じなら何もしない（200）
		if o.Status == next {
			out = o
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return badRequest(fmt.Sprintf("invalid status transition: %s -> %s", o.Status, next))
		}

		now := u.clock.Now()
		if next == model.OrderStatusCancelled {
			//在庫戻し・クーポン解放・監査ログまで
			if err := cancelInTx(ctx, r, o, actorAdminUserID, now); err != nil {
				return err
			}
			o.Status = next
			out, changed = o, true
			return nil
		}

		ok, err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next, now)
		if err != nil {
			return dbError()
		}
		if !ok {
			return NewHTTPError(http.StatusConflict, "order status changed")
		}
		before := o.Status
		o.Status = next
		if next == model.OrderStatusDelivered {
			o.DeliveredAt = &now
		}

		if next == model.OrderStatusShipped {
			info, err := u.shippingInfo(ctx, o, in)
			if err != nil {
				return err
			}
			if info.TrackingNumber != "" {
				if err := r.Orders().UpdateShipping(ctx, orderID, info); err != nil {
					return dbError()
				}
				o.TrackingNumber = info.TrackingNumber
				o.Carrier = info.Carrier
				o.ShippingLabelURL = info.ShippingLabelURL
			}
		}

		if err := writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			CreatedAt:    now,
		}, map[string]string{"status": string(before)}, map[string]string{"status": string(next)}); err != nil {
			return err
		}

		out, changed = o, true
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if changed {
		u.afterStatusChanged(ctx, out)
	}
	return out, nil
}

// 管理者が指定しなければラベル発行に任せる
func (u *AdminOrderUsecase) shippingInfo(ctx context.Context, o model.Order, in AdminUpdateOrderStatusInput) (repo.ShippingInfo, error) {
	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking != "" {
		return repo.ShippingInfo{
			TrackingNumber:   tracking,
			Carrier:          strings.TrimSpace(in.Carrier),
			ShippingLabelURL: o.ShippingLabelURL,
		}, nil
	}
	if o.TrackingNumber != "" || u.labeler == nil {
		return repo.ShippingInfo{}, nil
	}

	label, err := u.labeler.CreateLabel(ctx, o)
	if err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Error("shipping label failed")
		return repo.ShippingInfo{}, NewHTTPError(http.StatusBadGateway, "shipping label failed")
	}
	return repo.ShippingInfo{
		TrackingNumber:   label.TrackingNumber,
		Carrier:          label.Carrier,
		ShippingLabelURL: label.LabelURL,
	}, nil
}

func (u *AdminOrderUsecase) afterStatusChanged(ctx context.Context, o model.Order) {
	log := logrus.WithFields(logrus.Fields{"order_id": o.ID, "status": o.Status})
	metrics.OrdersTotal.WithLabelValues(string(o.Status), string(o.PaymentMethod)).Inc()

	key := EventOrderStatusChanged
	if o.Status == model.OrderStatusCancelled {
		key = EventOrderCancelled
	}
	if err := u.events.Publish(ctx, key, o); err != nil {
		log.WithError(err).Warn("failed to publish order event")
	}

	if o.Status != model.OrderStatusShipped {
		return
	}
	user, err := u.users.FindByID(ctx, o.UserID)
	if err != nil {
		log.WithError(err).Warn("failed to load user for shipping mail")
		return
	}
	if err := u.notifier.ShippingUpdate(ctx, user.Email, o); err != nil {
		log.WithError(err).Warn("failed to send shipping update")
	}
}

// 決済確認後に管理者が入金済みにする
func (u *AdminOrderUsecase) MarkPaid(ctx context.Context, actorAdminUserID, orderID int64, reference string) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if o.Status == model.OrderStatusCancelled {
			return badRequest("cannot mark cancelled order as paid")
		}
		if o.IsPaid {
			out = o
			return nil
		}

		now := u.clock.Now()
		ref := strings.TrimSpace(reference)
		if err := r.Orders().MarkPaid(ctx, orderID, ref, now); err != nil {
			return dbError()
		}
		o.IsPaid = true
		o.PaidAt = &now
		if ref != "" {
			o.PaymentReference = ref
		}
		out = o

		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionMarkOrderPaid,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			CreatedAt:    now,
		}, map[string]bool{"is_paid": false}, map[string]interface{}{"is_paid": true, "payment_reference": ref})
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// 配送情報の手動修正（キャンセル済みは不可）
func (u *AdminOrderUsecase) UpdateShipping(ctx context.Context, actorAdminUserID, orderID int64, in AdminShippingInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	info := repo.ShippingInfo{
		TrackingNumber:   strings.TrimSpace(in.TrackingNumber),
		Carrier:          strings.TrimSpace(in.Carrier),
		ShippingLabelURL: strings.TrimSpace(in.ShippingLabelURL),
	}
	if info.TrackingNumber == "" {
		return model.Order{}, badRequest("tracking_number required")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if o.Status == model.OrderStatusCancelled {
			return badRequest("cannot ship cancelled order")
		}
		if err := r.Orders().UpdateShipping(ctx, orderID, info); err != nil {
			return dbError()
		}

		before := repo.ShippingInfo{
			TrackingNumber:   o.TrackingNumber,
			Carrier:          o.Carrier,
			ShippingLabelURL: o.ShippingLabelURL,
		}
		o.TrackingNumber = info.TrackingNumber
		o.Carrier = info.Carrier
		o.ShippingLabelURL = info.ShippingLabelURL
		out = o

		return writeAudit(ctx, r.AuditLogs(), model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateShipping,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			CreatedAt:    u.clock.Now(),
		}, before, info)
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}
