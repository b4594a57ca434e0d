package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Dividend struct {
	ID             int64
	AccountID      int64
	Symbol         string
	ExDate         time.Time
	PayDate        time.Time
	AmountPerShare decimal.Decimal
	SharesHeld     decimal.Decimal
	GrossAmount    decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	NetAmount      decimal.Decimal
	PayoutCreated  bool
}

// DividendHistoryItem - выплата из истории провайдера котировок.
type DividendHistoryItem struct {
	Symbol         string
	ExDate         time.Time
	PayDate        time.Time // zero если провайдер не отдал дату выплаты
	AmountPerShare decimal.Decimal
}
