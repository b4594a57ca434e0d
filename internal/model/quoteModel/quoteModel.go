package quoteModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawHistory - ответ ISS вида {columns: [...], data: [[...], ...]}.
type RawHistory struct {
	History Table `json:"history"`
}

type RawMarketdata struct {
	Securities Table `json:"securities"`
	Marketdata Table `json:"marketdata"`
}

type RawDividends struct {
	Dividends Table `json:"dividends"`
}

type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type Quote struct {
	Symbol    string
	Shortname string
	Status    bool
	Price     decimal.Decimal
}

type Candle struct {
	Symbol string
	Date   time.Time
	Close  decimal.Decimal
}

type DividendEntry struct {
	Symbol         string
	RegistryCloseD time.Time // дата закрытия реестра, используем как ex-date
	Value          decimal.Decimal
}
