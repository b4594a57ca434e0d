package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// PerformancePoint - точка графика доходности. ChangePercent накопительный
// с начала периода (цепное произведение субпериодов), не (value-start)/start.
type PerformancePoint struct {
	Date          time.Time
	Value         decimal.Decimal
	ChangePercent decimal.Decimal
}

type EventKind string

const (
	EventBuy      EventKind = "buy"
	EventSell     EventKind = "sell"
	EventDividend EventKind = "dividend"
)

// ChartEvent - маркер на графике доходности.
type ChartEvent struct {
	Date   time.Time
	Symbol string
	Kind   EventKind
	Amount decimal.Decimal
}

type PerformanceReport struct {
	Portfolio []PerformancePoint
	Benchmark []PerformancePoint
	Events    []ChartEvent
}
