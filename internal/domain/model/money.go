package model

import "github.com/shopspring/decimal"

func init() {
	// 金額はJSONで数値として返す（"100" ではなく 100）
	decimal.MarshalJSONWithoutQuotes = true
}

// NPR 金額。DBは numeric(12,2)
type Money = decimal.Decimal

func NewMoney(v int64) Money {
	return decimal.NewFromInt(v)
}
