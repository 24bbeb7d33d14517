package model

import "time"

type AddressLabel string

const (
	AddressLabelHome  AddressLabel = "Home"
	AddressLabelWork  AddressLabel = "Work"
	AddressLabelOther AddressLabel = "Other"
)

func (l AddressLabel) IsValid() bool {
	switch l {
	case AddressLabelHome, AddressLabelWork, AddressLabelOther:
		return true
	}
	return false
}

// 配送地域
type Region string

const (
	RegionKathmanduValley Region = "Kathmandu Valley"
	RegionOutsideValley   Region = "Outside Valley"
)

func (r Region) IsValid() bool {
	return r == RegionKathmanduValley || r == RegionOutsideValley
}

// 配送先住所（アドレス帳）
type Address struct {
	ID     int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64        `gorm:"not null;index" json:"user_id"`
	Label  AddressLabel `gorm:"type:varchar(20);not null;default:'Home'" json:"label"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`

	//番地など
	Address string `gorm:"type:varchar(255);not null" json:"address"`

	City string `gorm:"type:varchar(255);not null" json:"city"`

	//電話番号
	Phone string `gorm:"type:varchar(30);not null" json:"phone"`

	Region Region `gorm:"type:varchar(30);not null" json:"region"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// 住所帳からコピーする
func (a Address) ToShipping() ShippingAddress {
	return ShippingAddress{
		FullName: a.FullName,
		Address:  a.Address,
		City:     a.City,
		Phone:    a.Phone,
		Region:   a.Region,
	}
}
