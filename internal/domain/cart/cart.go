// Package cart は購入前のカート（ユーザーごとの集約）です。
// 注文の金額はサーバー側で再計算するため、ここでの価格は表示用です。
package cart

import (
	"errors"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/pricing"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrItemNotFound    = errors.New("cart item not found")
)

// 行の識別子（同じ商品でもサイズ・カラー違いは別行）
type Key struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type Item struct {
	Key
	Name     string      `json:"name"`
	Image    string      `json:"image"`
	Price    model.Money `json:"price"`
	Quantity int64       `json:"quantity"`
}

type Cart struct {
	UserID    int64     `json:"user_id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(userID int64) *Cart {
	return &Cart{UserID: userID, Items: []Item{}}
}

func (c *Cart) indexOf(k Key) int {
	for i, it := range c.Items {
		if it.Key == k {
			return i
		}
	}
	return -1
}

// 同じキーがあれば数量を加算し、商品情報は新しい方で上書き
func (c *Cart) Add(item Item) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.indexOf(item.Key); i >= 0 {
		item.Quantity += c.Items[i].Quantity
		c.Items[i] = item
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// 0 は削除
func (c *Cart) UpdateQuantity(k Key, qty int64) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	i := c.indexOf(k)
	if i < 0 {
		return ErrItemNotFound
	}
	if qty == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	c.Items[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(k Key) bool {
	i := c.indexOf(k)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

func (c *Cart) Get(k Key) (Item, bool) {
	if i := c.indexOf(k); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func (c *Cart) Subtotal() model.Money {
	if c == nil {
		return decimal.Zero
	}
	return pricing.ItemsPrice(c.Lines())
}

// 点数の合計
func (c *Cart) Count() int64 {
	var n int64
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
