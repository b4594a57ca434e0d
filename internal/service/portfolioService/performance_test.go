package portfolioService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricePoint(d time.Time, close string) model.PricePoint {
	return model.PricePoint{Date: d, Close: decimal.RequireFromString(close)}
}

func TestPerformance_EmptyLedger(t *testing.T) {
	srv := newTestService(newFakeRepo(), &fakePrices{})

	report, err := srv.Performance(context.Background(), 1, "all")
	require.NoError(t, err)

	assert.Empty(t, report.Portfolio)
	assert.Empty(t, report.Benchmark)
	assert.Empty(t, report.Events)
}

func TestPerformance_PortfolioAgainstBenchmark(t *testing.T) {
	repo := newFakeRepo()
	prices := &fakePrices{
		history: map[string][]model.PricePoint{
			"SBER": {
				pricePoint(day(0), "100"),
				pricePoint(day(1), "110"),
			},
			"IMOEX": {
				pricePoint(day(0), "3000"),
				pricePoint(day(1), "3030"),
			},
		},
	}
	srv := newTestService(repo, prices)
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)

	report, err := srv.Performance(ctx, 1, "all")
	require.NoError(t, err)

	require.Len(t, report.Portfolio, 2)
	requireDecimal(t, "0", report.Portfolio[0].ChangePercent)
	requireDecimal(t, "10", report.Portfolio[1].ChangePercent)
	requireDecimal(t, "1100", report.Portfolio[1].Value)

	require.Len(t, report.Benchmark, 2)
	requireDecimal(t, "1", report.Benchmark[1].ChangePercent)

	require.Len(t, report.Events, 1)
	assert.Equal(t, model.EventBuy, report.Events[0].Kind)
	requireDecimal(t, "1000", report.Events[0].Amount)
}
