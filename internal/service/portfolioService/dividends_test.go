package portfolioService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dividendReq(accountID int64, symbol string, exDate time.Time, amount string) DividendRequest {
	return DividendRequest{
		AccountID:      accountID,
		Symbol:         symbol,
		ExDate:         exDate,
		AmountPerShare: decimal.RequireFromString(amount),
	}
}

func TestRecordDividend_TaxConservation(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(0)))
	require.NoError(t, err)

	dividend, err := srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.NoError(t, err)

	requireDecimal(t, "100", dividend.SharesHeld)
	requireDecimal(t, "1000", dividend.GrossAmount)
	requireDecimal(t, "130", dividend.TaxAmount)
	requireDecimal(t, "870", dividend.NetAmount)
	requireDecimal(t, "0.13", dividend.TaxRate)

	// gross всегда распадается без остатка
	requireDecimal(t, dividend.GrossAmount.String(), dividend.TaxAmount.Add(dividend.NetAmount))
}

func TestRecordDividend_SharesDerivedFromHistoryOnExDate(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(0)))
	require.NoError(t, err)
	_, err = srv.RegisterSale(ctx, sellTx(1, "SBER", "40", "260", day(3)))
	require.NoError(t, err)
	// покупка после отсечки не учитывается
	_, err = srv.RegisterPurchase(ctx, buyTx(1, "SBER", "50", "270", day(10)))
	require.NoError(t, err)

	dividend, err := srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.NoError(t, err)

	requireDecimal(t, "60", dividend.SharesHeld)
}

func TestRecordDividend_NoSharesOnExDate(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "250", day(10)))
	require.NoError(t, err)

	// отсечка до первой покупки
	_, err = srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.ErrorIs(t, err, service.ErrInsufficientOwnership)
}

func TestRecordDividend_DefaultPayDate(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "250", day(0)))
	require.NoError(t, err)

	dividend, err := srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.NoError(t, err)

	assert.True(t, dividend.PayDate.Equal(day(5).AddDate(0, 0, 15)), "pay date %s", dividend.PayDate)
}

func TestRecordDividend_Duplicate(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "250", day(0)))
	require.NoError(t, err)

	_, err = srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.NoError(t, err)

	_, err = srv.RecordDividend(ctx, dividendReq(1, "SBER", day(5), "10"))
	require.ErrorIs(t, err, service.ErrDuplicateDividend)

	assert.Len(t, repo.dividends, 1)
}

func TestCheckDividends_CreatesMissingRecords(t *testing.T) {
	repo := newFakeRepo()
	prices := &fakePrices{
		dividendHistory: map[string][]model.DividendHistoryItem{
			"SBER": {
				// отсечка до первой покупки - пропускается
				{Symbol: "SBER", ExDate: day(-30), AmountPerShare: decimal.RequireFromString("8")},
				{Symbol: "SBER", ExDate: day(5), PayDate: day(20), AmountPerShare: decimal.RequireFromString("10")},
			},
		},
	}
	srv := newTestService(repo, prices)
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(0)))
	require.NoError(t, err)

	require.NoError(t, srv.CheckDividends(ctx))

	require.Len(t, repo.dividends, 1)
	d := repo.dividends[0]
	assert.True(t, d.ExDate.Equal(day(5)))
	assert.True(t, d.PayDate.Equal(day(20)))
	requireDecimal(t, "1000", d.GrossAmount)
}

func TestCheckDividends_SecondRunCreatesNothing(t *testing.T) {
	repo := newFakeRepo()
	prices := &fakePrices{
		dividendHistory: map[string][]model.DividendHistoryItem{
			"SBER": {
				{Symbol: "SBER", ExDate: day(5), PayDate: day(20), AmountPerShare: decimal.RequireFromString("10")},
			},
		},
	}
	srv := newTestService(repo, prices)
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(0)))
	require.NoError(t, err)

	require.NoError(t, srv.CheckDividends(ctx))
	require.NoError(t, srv.CheckDividends(ctx))

	assert.Len(t, repo.dividends, 1)
}

func TestEmitDividendPayouts_CreatesCashTransactionOnce(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(-60)))
	require.NoError(t, err)

	req := dividendReq(1, "SBER", day(-40), "10")
	payDate := day(-20)
	req.PayDate = payDate

	dividend, err := srv.RecordDividend(ctx, req)
	require.NoError(t, err)

	require.NoError(t, srv.EmitDividendPayouts(ctx))

	require.Len(t, repo.cashTxs, 1)
	cashTx := repo.cashTxs[0]
	assert.Equal(t, dividend.ID, cashTx.DividendID)
	assert.True(t, cashTx.Date.Equal(payDate))
	requireDecimal(t, dividend.NetAmount.String(), cashTx.Amount)

	// повторный запуск ничего не добавляет
	require.NoError(t, srv.EmitDividendPayouts(ctx))
	assert.Len(t, repo.cashTxs, 1)
}

func TestEmitDividendPayouts_RecoversAfterPartialFailure(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(-60)))
	require.NoError(t, err)

	req := dividendReq(1, "SBER", day(-40), "10")
	req.PayDate = day(-20)

	dividend, err := srv.RecordDividend(ctx, req)
	require.NoError(t, err)

	// имитируем сбой между проводкой и взводом флага
	require.NoError(t, repo.InsertCashTransaction(ctx, model.CashTransaction{
		AccountID:  dividend.AccountID,
		Amount:     dividend.NetAmount,
		DividendID: dividend.ID,
		Date:       dividend.PayDate,
	}))

	require.NoError(t, srv.EmitDividendPayouts(ctx))

	assert.Len(t, repo.cashTxs, 1)
	assert.True(t, repo.dividends[0].PayoutCreated)
}

func TestEmitDividendPayouts_FuturePayDateUntouched(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "100", "250", day(0)))
	require.NoError(t, err)

	req := dividendReq(1, "SBER", day(5), "10")
	req.PayDate = time.Now().AddDate(0, 0, 30)

	_, err = srv.RecordDividend(ctx, req)
	require.NoError(t, err)

	require.NoError(t, srv.EmitDividendPayouts(ctx))

	assert.Empty(t, repo.cashTxs)
	assert.False(t, repo.dividends[0].PayoutCreated)
}
