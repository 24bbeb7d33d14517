package model

import (
	"time"

	"gorm.io/gorm"
)

type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderUnisex Gender = "Unisex"
	GenderKids   Gender = "Kids"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMen, GenderWomen, GenderUnisex, GenderKids:
		return true
	}
	return false
}

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Price       Money  `gorm:"type:numeric(12,2);not null" json:"price"`
	// 割引価格（あれば price より小さい）
	DiscountPrice *Money           `gorm:"type:numeric(12,2)" json:"discount_price,omitempty"`
	Category      string           `gorm:"type:varchar(100);not null;index" json:"category"`
	Gender        Gender           `gorm:"type:varchar(20);not null;index" json:"gender"`
	Image         string           `gorm:"type:varchar(500)" json:"image"`
	IsFeatured    bool             `gorm:"not null;default:false;index" json:"is_featured"`
	IsActive      bool             `gorm:"not null;default:false" json:"is_active"`
	Variants      []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// 実際に請求する単価（discountPrice ?? price）
func (p Product) UnitPrice() Money {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

func (p Product) FindVariant(size, color string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.Size == size && v.Color == color {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// サイズ×カラーごとの在庫
type ProductVariant struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_variant_key,priority:1" json:"product_id"`
	Size      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_variant_key,priority:2" json:"size"`
	Color     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_variant_key,priority:3" json:"color"`
	Stock     int64     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
