package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportPosition struct {
	Symbol       string
	Shortname    string
	Shares       decimal.Decimal
	AvgCost      decimal.Decimal
	LastPrice    decimal.Decimal
	MarketValue  decimal.Decimal
	UnrealizedPL decimal.Decimal
}

type AccountReport struct {
	AccountID   int64
	GeneratedAt time.Time
	Positions   []ReportPosition
	Dividends   []Dividend
	Performance PerformanceReport
}
