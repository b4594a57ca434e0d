// Package engine содержит чистые вычисления над снапшотом истории сделок:
// реплей средней цены, восстановление позиции на дату и расчёт TWR.
// Никакого I/O - все данные собираются вызывающей стороной заранее.
package engine

import (
	"sort"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/shopspring/decimal"
)

// Position - результат реплея истории сделок по одной бумаге.
type Position struct {
	Shares    decimal.Decimal
	TotalCost decimal.Decimal
	AvgCost   decimal.Decimal
}

// SortTransactions сортирует сделки по (date, id). ID разруливает сделки
// с одинаковой датой, чтобы результат реплея был детерминированным.
func SortTransactions(txs []model.StockTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// Replay сворачивает историю сделок в текущую позицию. Покупка увеличивает
// суммарную стоимость на shares*price+fees, продажа не меняет среднюю цену
// оставшихся акций. Уход в ноль обнуляет оба аккумулятора. Отрицательная
// позиция невозможна: продажа сверх остатка клампится в ноль, а не падает -
// так реплей переживает битые исторические данные.
func Replay(txs []model.StockTransaction) Position {
	sorted := make([]model.StockTransaction, len(txs))
	copy(sorted, txs)
	SortTransactions(sorted)

	shares := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range sorted {
		switch tx.Kind {
		case model.TxBuy:
			totalCost = totalCost.Add(tx.Shares.Mul(tx.Price)).Add(tx.Fees)
			shares = shares.Add(tx.Shares)
		case model.TxSell:
			if shares.LessThanOrEqual(decimal.Zero) {
				continue
			}
			avgCost := totalCost.Div(shares)
			shares = shares.Sub(tx.Shares)
			if shares.LessThanOrEqual(decimal.Zero) {
				shares = decimal.Zero
				totalCost = decimal.Zero
			} else {
				totalCost = shares.Mul(avgCost)
			}
		}
	}

	pos := Position{Shares: shares, TotalCost: totalCost}
	if shares.GreaterThan(decimal.Zero) {
		pos.AvgCost = totalCost.Div(shares)
	} else {
		pos.AvgCost = decimal.Zero
	}

	return pos
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
