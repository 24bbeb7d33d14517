package usecase

import (
	"context"
	"io"
	"time"

	"storefront/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// 決済ゲートウェイに渡す内容
type PaymentRequest struct {
	OrderID       int64
	Amount        model.Money
	TransactionID string
	OrderName     string
}

// リダイレクト用フォーム or URL
type PaymentInitiation struct {
	Gateway     model.PaymentMethod `json:"gateway"`
	Reference   string              `json:"reference"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	FormURL     string              `json:"form_url,omitempty"`
	FormFields  map[string]string   `json:"form_fields,omitempty"`
}

type PaymentGateway interface {
	Initiate(ctx context.Context, req PaymentRequest) (PaymentInitiation, error)
}

// 返金（Refunded 時）
type PaymentReverser interface {
	Reverse(ctx context.Context, order model.Order, ret model.ReturnRequest) error
}

// 注文確認・発送通知メール
type Notifier interface {
	OrderConfirmation(ctx context.Context, to string, order model.Order) error
	ShippingUpdate(ctx context.Context, to string, order model.Order) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

type ShippingLabel struct {
	TrackingNumber string
	Carrier        string
	LabelURL       string
}

type ShippingLabeler interface {
	CreateLabel(ctx context.Context, order model.Order) (ShippingLabel, error)
}

// アップロード先。保存したオブジェクトの公開URLを返す
type ObjectStorage interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader, size int64) (string, error)
}

// クーポンの読み取りキャッシュ
type CouponCache interface {
	Get(ctx context.Context, code string) (model.Coupon, bool)
	Set(ctx context.Context, c model.Coupon)
	Invalidate(ctx context.Context, code string)
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventReturnRequested    = "return.requested"
	EventReturnStatus       = "return.status_changed"
)
