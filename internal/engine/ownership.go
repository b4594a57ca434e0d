package engine

import (
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/shopspring/decimal"
)

// SharesHeldAsOf возвращает количество акций на конец дня asOf. Сделка,
// датированная ровно asOf, учитывается. Используется для определения права
// на дивиденд по дате отсечки. Отрицательный результат возможен только на
// битой истории - вызывающая сторона трактует его как ноль.
func SharesHeldAsOf(txs []model.StockTransaction, asOf time.Time) decimal.Decimal {
	sorted := make([]model.StockTransaction, len(txs))
	copy(sorted, txs)
	SortTransactions(sorted)

	cutoff := dateOnly(asOf)
	shares := decimal.Zero

	for _, tx := range sorted {
		if dateOnly(tx.Date).After(cutoff) {
			break
		}
		shares = shares.Add(tx.SignedShares())
	}

	return shares
}
