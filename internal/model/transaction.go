package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxKind string

const (
	TxBuy  TxKind = "buy"
	TxSell TxKind = "sell"
)

type StockTransaction struct {
	ID        int64
	AccountID int64
	Symbol    string
	Kind      TxKind
	Shares    decimal.Decimal
	Price     decimal.Decimal
	Fees      decimal.Decimal
	Date      time.Time
}

// SignedShares возвращает количество акций со знаком: покупка +, продажа -.
func (t StockTransaction) SignedShares() decimal.Decimal {
	if t.Kind == TxSell {
		return t.Shares.Neg()
	}
	return t.Shares
}

type CashTransaction struct {
	ID         int64
	AccountID  int64
	Amount     decimal.Decimal
	Comment    string
	DividendID int64
	Date       time.Time
}
