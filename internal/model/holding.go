package model

import "github.com/shopspring/decimal"

// Holding - производное состояние позиции, пересчитывается только полным
// реплеем истории сделок, никогда не правится инкрементально.
type Holding struct {
	AccountID int64
	Symbol    string
	Shares    decimal.Decimal
	AvgCost   decimal.Decimal
}
