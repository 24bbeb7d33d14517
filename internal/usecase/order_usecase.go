package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// 同じ冪等キーの注文が同時に作られたとき（Tx外で取り直す）
var errIdempotencyRace = errors.New("idempotency race")

type OrderUsecaseDeps struct {
	Tx        repo.TransactionManager
	Orders    repo.OrderRepository
	Addresses repo.AddressRepository
	Users     repo.UserRepository
	Carts     repo.CartStore
	Gateways  map[model.PaymentMethod]PaymentGateway
	Notifier  Notifier
	Events    EventPublisher
	Shipping  pricing.ShippingPolicy
	Clock     Clock
	IDs       IDGenerator
}

type OrderUsecase struct {
	deps OrderUsecaseDeps
}

func NewOrderUsecase(deps OrderUsecaseDeps) *OrderUsecase {
	return &OrderUsecase{deps: deps}
}

type OrderItemInput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int64  `json:"quantity"`
}

type PlaceOrderInput struct {
	// 空ならサーバー側のカートを使う
	Items []OrderItemInput `json:"items"`
	// AddressID か ShippingAddress のどちらか
	AddressID       int64                  `json:"address_id"`
	ShippingAddress *model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   model.PaymentMethod    `json:"payment_method"`
	CouponCode      string                 `json:"coupon_code"`
	IdempotencyKey  string                 `json:"-"`
}

type PlaceOrderOutput struct {
	Order   model.Order        `json:"order"`
	Payment *PaymentInitiation `json:"payment,omitempty"`
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !in.PaymentMethod.IsValid() {
		return PlaceOrderOutput{}, badRequest("invalid payment_method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = u.deps.IDs.NewID()
	}
	if len(key) > 255 {
		return PlaceOrderOutput{}, badRequest("invalid idempotency key")
	}

	// 同じキーなら同じ結果（決済は再開始しない）
	if existing, found, err := u.deps.Orders.FindByIdempotencyKey(ctx, userID, key); err != nil {
		return PlaceOrderOutput{}, dbError()
	} else if found {
		return replayOrder(existing)
	}

	ship, err := u.resolveShipping(ctx, userID, in)
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	items, fromCart, err := u.resolveItems(ctx, userID, in.Items)
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	var order model.Order
	err = u.deps.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.deps.Clock.Now()

		orderItems := make([]model.OrderItem, 0, len(items))
		lines := make([]pricing.Line, 0, len(items))
		for _, it := range items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
				return badRequest(fmt.Sprintf("product %d not available", it.ProductID))
			}
			if err != nil {
				return dbError()
			}
			v, ok := p.FindVariant(it.Size, it.Color)
			if !ok {
				return badRequest(fmt.Sprintf("%s (%s/%s) not available", p.Name, it.Size, it.Color))
			}

			//在庫減算（足りないなら false）
			ok, err = r.Inventory().DecreaseStockIfEnough(ctx, v.ID, it.Quantity)
			if err != nil {
				return dbError()
			}
			if !ok {
				return badRequest(fmt.Sprintf("insufficient stock for %s (%s/%s)", p.Name, it.Size, it.Color))
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID: p.ID,
				VariantID: v.ID,
				Name:      p.Name,
				Image:     p.Image,
				Price:     p.UnitPrice(),
				Size:      it.Size,
				Color:     it.Color,
				Quantity:  it.Quantity,
				CreatedAt: now,
			})
			lines = append(lines, pricing.Line{UnitPrice: p.UnitPrice(), Quantity: it.Quantity})
		}

		// クーポンはサーバー側で再判定してから引き当てる
		var coupon *model.Coupon
		if code := normalizeCouponCode(in.CouponCode); code != "" {
			c, err := redeemCoupon(ctx, r, userID, code, pricing.ItemsPrice(lines), now)
			if err != nil {
				return err
			}
			coupon = &c
		}

		totals := pricing.Compute(lines, u.deps.Shipping.PriceFor(ship.Region), coupon)
		if totals.TotalPrice.IsNegative() {
			return badRequest("Coupon discount exceeds order amount")
		}

		order = model.Order{
			UserID:          userID,
			ShippingAddress: ship,
			PaymentMethod:   in.PaymentMethod,
			ItemsPrice:      totals.ItemsPrice,
			ShippingPrice:   totals.ShippingPrice,
			DiscountAmount:  totals.DiscountAmount,
			TotalPrice:      totals.TotalPrice,
			Status:          model.OrderStatusPending,
			IsPaid:          false,
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if coupon != nil {
			order.CouponCode = coupon.Code
		}

		orderID, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrConflict) {
			return errIdempotencyRace
		}
		if err != nil {
			return dbError()
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return dbError()
		}
		for i := range orderItems {
			orderItems[i].OrderID = orderID
		}
		order.Items = orderItems

		if coupon != nil {
			if err := r.Coupons().CreateRedemption(ctx, model.CouponRedemption{
				CouponID:  coupon.ID,
				UserID:    userID,
				OrderID:   orderID,
				CreatedAt: now,
			}); err != nil {
				return dbError()
			}
		}
		return nil
	})

	if errors.Is(err, errIdempotencyRace) {
		// 失敗したTxの中では読めないので外で取り直す
		existing, found, err := u.deps.Orders.FindByIdempotencyKey(ctx, userID, key)
		if err != nil || !found {
			return PlaceOrderOutput{}, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		return replayOrder(existing)
	}
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Status), string(order.PaymentMethod)).Inc()
	if order.CouponCode != "" {
		metrics.CouponRedemptions.WithLabelValues("redeemed").Inc()
	}

	if fromCart {
		if err := u.deps.Carts.Delete(ctx, userID); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("failed to clear cart")
		}
	}

	out := PlaceOrderOutput{Order: order}
	if order.PaymentMethod != model.PaymentCOD {
		init, err := u.initiatePayment(ctx, order)
		if err != nil {
			return PlaceOrderOutput{}, err
		}
		out.Payment = &init
		out.Order.PaymentReference = init.Reference
	}

	u.afterOrderPlaced(ctx, out.Order)
	return out, nil
}

// 取り消し済みの注文は返さない。やり直すなら新しいキーで送る
func replayOrder(existing model.Order) (PlaceOrderOutput, error) {
	if existing.Status == model.OrderStatusCancelled {
		return PlaceOrderOutput{}, &HTTPError{
			Status:  http.StatusConflict,
			Message: "order was cancelled, retry with a new idempotency key",
			OrderID: existing.ID,
		}
	}
	return PlaceOrderOutput{Order: existing}, nil
}

// 失敗したら注文を取り消して 502 を返す（自動リトライはしない）
func (u *OrderUsecase) initiatePayment(ctx context.Context, order model.Order) (PaymentInitiation, error) {
	log := logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"gateway":  order.PaymentMethod,
	})

	gw, ok := u.deps.Gateways[order.PaymentMethod]
	var init PaymentInitiation
	err := fmt.Errorf("gateway %s not configured", order.PaymentMethod)
	if ok {
		init, err = gw.Initiate(ctx, PaymentRequest{
			OrderID:       order.ID,
			Amount:        order.TotalPrice,
			TransactionID: u.deps.IDs.NewID(),
			OrderName:     fmt.Sprintf("Order #%d", order.ID),
		})
	}
	if err != nil {
		log.WithError(err).Error("payment initiation failed")
		if cerr := u.compensate(ctx, order.ID); cerr != nil {
			log.WithError(cerr).Error("failed to cancel order after payment failure")
		}
		return PaymentInitiation{}, &HTTPError{
			Status:  http.StatusBadGateway,
			Message: "payment initiation failed",
			OrderID: order.ID,
		}
	}

	if init.Reference != "" {
		if err := u.deps.Orders.SetPaymentReference(ctx, order.ID, init.Reference); err != nil {
			log.WithError(err).Warn("failed to save payment reference")
		}
	}
	return init, nil
}

func (u *OrderUsecase) compensate(ctx context.Context, orderID int64) error {
	err := u.deps.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return dbError()
		}
		if o.Status == model.OrderStatusCancelled {
			return nil
		}
		return cancelInTx(ctx, r, o, 0, u.deps.Clock.Now())
	})
	if err == nil {
		metrics.OrdersTotal.WithLabelValues(string(model.OrderStatusCancelled), "").Inc()
	}
	return err
}

// メールとイベントは失敗しても注文は成功扱い
func (u *OrderUsecase) afterOrderPlaced(ctx context.Context, order model.Order) {
	log := logrus.WithField("order_id", order.ID)

	if err := u.deps.Events.Publish(ctx, EventOrderCreated, order); err != nil {
		log.WithError(err).Warn("failed to publish order event")
	}

	user, err := u.deps.Users.FindByID(ctx, order.UserID)
	if err != nil {
		log.WithError(err).Warn("failed to load user for confirmation mail")
		return
	}
	if err := u.deps.Notifier.OrderConfirmation(ctx, user.Email, order); err != nil {
		log.WithError(err).Warn("failed to send order confirmation")
	}
}

func (u *OrderUsecase) resolveShipping(ctx context.Context, userID int64, in PlaceOrderInput) (model.ShippingAddress, error) {
	if in.AddressID > 0 {
		addr, err := u.deps.Addresses.FindByID(ctx, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.ShippingAddress{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.ShippingAddress{}, dbError()
		}
		//所有チェック（他人の住所なら403）
		if addr.UserID != userID {
			return model.ShippingAddress{}, NewHTTPError(http.StatusForbidden, "forbidden")
		}
		return addr.ToShipping(), nil
	}

	if in.ShippingAddress == nil {
		return model.ShippingAddress{}, badRequest("shipping address required")
	}
	s := model.ShippingAddress{
		FullName: strings.TrimSpace(in.ShippingAddress.FullName),
		Address:  strings.TrimSpace(in.ShippingAddress.Address),
		City:     strings.TrimSpace(in.ShippingAddress.City),
		Phone:    strings.TrimSpace(in.ShippingAddress.Phone),
		Region:   in.ShippingAddress.Region,
	}
	if err := validateAddressFields(s.FullName, s.Address, s.City, s.Phone, s.Region); err != nil {
		return model.ShippingAddress{}, err
	}
	return s, nil
}

// 同じ (product, size, color) はまとめる
func (u *OrderUsecase) resolveItems(ctx context.Context, userID int64, in []OrderItemInput) ([]OrderItemInput, bool, error) {
	fromCart := false
	if len(in) == 0 {
		c, err := u.deps.Carts.Get(ctx, userID)
		if err != nil {
			return nil, false, NewHTTPError(http.StatusInternalServerError, "cart error")
		}
		for _, it := range c.Items {
			in = append(in, OrderItemInput{ProductID: it.ProductID, Size: it.Size, Color: it.Color, Quantity: it.Quantity})
		}
		fromCart = true
	}
	if len(in) == 0 {
		return nil, false, badRequest("no order items")
	}

	merged := make([]OrderItemInput, 0, len(in))
	index := map[cart.Key]int{}
	for _, it := range in {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, false, badRequest("invalid order item")
		}
		k := cart.Key{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
		if i, ok := index[k]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[k] = len(merged)
		merged = append(merged, it)
	}

	// 行ロックを取る順番を注文間で揃える
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Color < b.Color
	})
	return merged, fromCart, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, total, err := u.deps.Orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, dbError()
	}
	return OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 他人の注文は存在を見せない（404）
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, badRequest("invalid order id")
	}
	o, err := u.deps.Orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, dbError()
	}
	return o, nil
}

// Pending の間だけ本人がキャンセルできる
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Order
	err := u.deps.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError()
		}
		if o.Status != model.OrderStatusPending {
			return badRequest("only pending orders can be cancelled")
		}
		if err := cancelInTx(ctx, r, o, userID, u.deps.Clock.Now()); err != nil {
			return err
		}
		o.Status = model.OrderStatusCancelled
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	metrics.OrdersTotal.WithLabelValues(string(out.Status), string(out.PaymentMethod)).Inc()
	if err := u.deps.Events.Publish(ctx, EventOrderCancelled, out); err != nil {
		logrus.WithError(err).WithField("order_id", out.ID).Warn("failed to publish order event")
	}
	return out, nil
}
