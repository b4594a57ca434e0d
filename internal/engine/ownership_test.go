package engine

import (
	"testing"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSharesHeldAsOf_InclusiveOfDate(t *testing.T) {
	txs := []model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(2, model.TxBuy, "5", "12", day(3)),
	}

	requireDecimal(t, "10", SharesHeldAsOf(txs, day(0)))
	requireDecimal(t, "10", SharesHeldAsOf(txs, day(2)))
	requireDecimal(t, "15", SharesHeldAsOf(txs, day(3)))
	requireDecimal(t, "15", SharesHeldAsOf(txs, day(10)))
}

func TestSharesHeldAsOf_BeforeFirstTransaction(t *testing.T) {
	txs := []model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(5)),
	}

	requireDecimal(t, "0", SharesHeldAsOf(txs, day(4)))
}

func TestSharesHeldAsOf_SellsSubtract(t *testing.T) {
	txs := []model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(2, model.TxSell, "4", "15", day(2)),
	}

	requireDecimal(t, "6", SharesHeldAsOf(txs, day(2)))
}

func TestSharesHeldAsOf_MonotonicBetweenTransactions(t *testing.T) {
	// между соседними сделками позиция не меняется
	txs := []model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(2, model.TxSell, "3", "15", day(7)),
	}

	for n := 1; n < 7; n++ {
		assert.True(t, SharesHeldAsOf(txs, day(n)).Equal(SharesHeldAsOf(txs, day(1))),
			"position changed on day %d without transactions", n)
	}
}

func TestSharesHeldAsOf_CorruptHistoryGoesNegative(t *testing.T) {
	// отрицательный результат не маскируется - клампит вызывающая сторона
	txs := []model.StockTransaction{
		tx(1, model.TxSell, "4", "15", day(0)),
	}

	requireDecimal(t, "-4", SharesHeldAsOf(txs, day(1)))
}
