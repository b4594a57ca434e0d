package engine

import (
	"testing"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return baseDate.AddDate(0, 0, n)
}

func tx(id int64, kind model.TxKind, shares, price string, d time.Time) model.StockTransaction {
	return model.StockTransaction{
		ID:        id,
		AccountID: 1,
		Symbol:    "SBER",
		Kind:      kind,
		Shares:    decimal.RequireFromString(shares),
		Price:     decimal.RequireFromString(price),
		Fees:      decimal.Zero,
		Date:      d,
	}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestReplay_WeightedBuyAveraging(t *testing.T) {
	pos := Replay([]model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(2, model.TxBuy, "10", "20", day(1)),
	})

	requireDecimal(t, "20", pos.Shares)
	requireDecimal(t, "15", pos.AvgCost)
	requireDecimal(t, "300", pos.TotalCost)
}

func TestReplay_PartialSellKeepsAvgCost(t *testing.T) {
	pos := Replay([]model.StockTransaction{
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(2, model.TxSell, "4", "20", day(1)),
	})

	requireDecimal(t, "6", pos.Shares)
	requireDecimal(t, "10", pos.AvgCost)
}

func TestReplay_SellAllResetsCost(t *testing.T) {
	pos := Replay([]model.StockTransaction{
		tx(1, model.TxBuy, "10", "5", day(0)),
		tx(2, model.TxSell, "10", "7", day(1)),
	})

	requireDecimal(t, "0", pos.Shares)
	requireDecimal(t, "0", pos.AvgCost)
	requireDecimal(t, "0", pos.TotalCost)
}

func TestReplay_FeesIncludedInCost(t *testing.T) {
	buy := tx(1, model.TxBuy, "10", "10", day(0))
	buy.Fees = decimal.RequireFromString("5")

	pos := Replay([]model.StockTransaction{buy})

	requireDecimal(t, "10.5", pos.AvgCost)
}

func TestReplay_OversellClampsToZero(t *testing.T) {
	// продажа сверх остатка в битой истории не уводит позицию в минус
	pos := Replay([]model.StockTransaction{
		tx(1, model.TxBuy, "5", "10", day(0)),
		tx(2, model.TxSell, "10", "12", day(1)),
		tx(3, model.TxBuy, "4", "8", day(2)),
	})

	requireDecimal(t, "4", pos.Shares)
	requireDecimal(t, "8", pos.AvgCost)
}

func TestReplay_SellOnEmptyPositionIgnored(t *testing.T) {
	pos := Replay([]model.StockTransaction{
		tx(1, model.TxSell, "10", "12", day(0)),
	})

	requireDecimal(t, "0", pos.Shares)
	requireDecimal(t, "0", pos.AvgCost)
}

func TestReplay_Idempotent(t *testing.T) {
	txs := []model.StockTransaction{
		tx(2, model.TxSell, "4", "20", day(1)),
		tx(1, model.TxBuy, "10", "10", day(0)),
		tx(3, model.TxBuy, "6", "30", day(2)),
	}

	first := Replay(txs)
	second := Replay(txs)

	assert.True(t, first.Shares.Equal(second.Shares))
	assert.True(t, first.AvgCost.Equal(second.AvgCost))
	assert.True(t, first.TotalCost.Equal(second.TotalCost))

	// входной срез не переупорядочивается
	assert.Equal(t, int64(2), txs[0].ID)
}

func TestReplay_TieBreakByID(t *testing.T) {
	// одна дата: сначала покупка (id=1), потом продажа (id=2)
	pos := Replay([]model.StockTransaction{
		tx(2, model.TxSell, "10", "7", day(0)),
		tx(1, model.TxBuy, "10", "5", day(0)),
	})

	requireDecimal(t, "0", pos.Shares)
	requireDecimal(t, "0", pos.AvgCost)
}

func TestReplay_Empty(t *testing.T) {
	pos := Replay(nil)

	requireDecimal(t, "0", pos.Shares)
	requireDecimal(t, "0", pos.AvgCost)
}
