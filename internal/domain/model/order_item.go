package model

import "time"

// 注文明細。商品名・価格などは注文時点のスナップショット
type OrderItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	VariantID int64     `gorm:"not null" json:"variant_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Image     string    `gorm:"type:varchar(500)" json:"image"`
	Price     Money     `gorm:"type:numeric(12,2);not null" json:"price"`
	Size      string    `gorm:"type:varchar(50);not null" json:"size"`
	Color     string    `gorm:"type:varchar(50);not null" json:"color"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) LineTotal() Money {
	return i.Price.Mul(NewMoney(i.Quantity))
}
