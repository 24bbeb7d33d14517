package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentESewa  PaymentMethod = "eSewa"
	PaymentKhalti PaymentMethod = "Khalti"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCOD, PaymentESewa, PaymentKhalti:
		return true
	}
	return false
}

// 注文時点の配送先（住所帳の変更に影響されない）
type ShippingAddress struct {
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Address  string `gorm:"type:varchar(255);not null" json:"address"`
	City     string `gorm:"type:varchar(255);not null" json:"city"`
	Phone    string `gorm:"type:varchar(30);not null" json:"phone"`
	Region   Region `gorm:"type:varchar(30);not null" json:"region"`
}

type Order struct {
	ID     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64       `gorm:"not null;index;uniqueIndex:idx_order_idem,priority:1" json:"user_id"`
	Items  []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	// ゲートウェイの参照（pidx / transaction_uuid）
	PaymentReference string `gorm:"type:varchar(255)" json:"payment_reference,omitempty"`

	ItemsPrice     Money  `gorm:"type:numeric(12,2);not null" json:"items_price"`
	ShippingPrice  Money  `gorm:"type:numeric(12,2);not null" json:"shipping_price"`
	DiscountAmount Money  `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	CouponCode     string `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	TotalPrice     Money  `gorm:"type:numeric(12,2);not null" json:"total_price"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	IsPaid      bool       `gorm:"not null;default:false" json:"is_paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	//配送情報
	TrackingNumber   string `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	Carrier          string `gorm:"type:varchar(100)" json:"carrier,omitempty"`
	ShippingLabelURL string `gorm:"type:varchar(500)" json:"shipping_label_url,omitempty"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_order_idem,priority:2" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文数量からサイズ・カラー単位の数量を引けるようにする
func (o Order) OrderedQuantity(productID int64, size, color string) int64 {
	var total int64
	for _, it := range o.Items {
		if it.ProductID == productID && it.Size == size && it.Color == color {
			total += it.Quantity
		}
	}
	return total
}
