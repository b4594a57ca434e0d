package portfolioService

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/KotFed0t/fin_tracker/config"
	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/fin_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return baseDate.AddDate(0, 0, n)
}

// fakeRepo - репозиторий в памяти с теми же контрактами ошибок, что и postgres.
type fakeRepo struct {
	txs       []model.StockTransaction
	nextTxID  int64
	holdings  map[string]model.Holding
	dividends []model.Dividend
	nextDivID int64
	cashTxs   []model.CashTransaction
	taxRate   decimal.Decimal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextTxID:  1,
		holdings:  make(map[string]model.Holding),
		nextDivID: 1,
		taxRate:   decimal.RequireFromString("0.13"),
	}
}

func holdingKey(accountID int64, symbol string) string {
	return fmt.Sprintf("%d:%s", accountID, symbol)
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (r *fakeRepo) InsertStockTransaction(_ context.Context, tx model.StockTransaction) (int64, error) {
	tx.ID = r.nextTxID
	r.nextTxID++
	r.txs = append(r.txs, tx)
	return tx.ID, nil
}

func (r *fakeRepo) UpdateStockTransaction(_ context.Context, tx model.StockTransaction) error {
	for i := range r.txs {
		if r.txs[i].ID == tx.ID {
			tx.AccountID = r.txs[i].AccountID
			tx.Symbol = r.txs[i].Symbol
			r.txs[i] = tx
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) DeleteStockTransaction(_ context.Context, txID int64) error {
	for i := range r.txs {
		if r.txs[i].ID == txID {
			r.txs = append(r.txs[:i], r.txs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) GetStockTransaction(_ context.Context, txID int64) (model.StockTransaction, error) {
	for _, tx := range r.txs {
		if tx.ID == txID {
			return tx, nil
		}
	}
	return model.StockTransaction{}, repository.ErrNotFound
}

func (r *fakeRepo) GetStockTransactions(_ context.Context, accountID int64, symbol string) ([]model.StockTransaction, error) {
	res := make([]model.StockTransaction, 0)
	for _, tx := range r.txs {
		if tx.AccountID == accountID && tx.Symbol == symbol {
			res = append(res, tx)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetAccountTransactions(_ context.Context, accountID int64) ([]model.StockTransaction, error) {
	res := make([]model.StockTransaction, 0)
	for _, tx := range r.txs {
		if tx.AccountID == accountID {
			res = append(res, tx)
		}
	}
	return res, nil
}

func (r *fakeRepo) InsertCashTransaction(_ context.Context, cashTx model.CashTransaction) error {
	for _, existing := range r.cashTxs {
		if existing.DividendID == cashTx.DividendID {
			return repository.ErrAlreadyExists
		}
	}
	r.cashTxs = append(r.cashTxs, cashTx)
	return nil
}

func (r *fakeRepo) UpsertHolding(_ context.Context, holding model.Holding) error {
	r.holdings[holdingKey(holding.AccountID, holding.Symbol)] = holding
	return nil
}

func (r *fakeRepo) GetHolding(_ context.Context, accountID int64, symbol string) (model.Holding, error) {
	h, ok := r.holdings[holdingKey(accountID, symbol)]
	if !ok {
		return model.Holding{}, repository.ErrNotFound
	}
	return h, nil
}

func (r *fakeRepo) GetOpenHoldings(_ context.Context) ([]model.Holding, error) {
	res := make([]model.Holding, 0)
	for _, h := range r.holdings {
		if h.Shares.GreaterThan(decimal.Zero) {
			res = append(res, h)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetAccountHoldings(_ context.Context, accountID int64) ([]model.Holding, error) {
	res := make([]model.Holding, 0)
	for _, h := range r.holdings {
		if h.AccountID == accountID {
			res = append(res, h)
		}
	}
	return res, nil
}

func (r *fakeRepo) InsertDividend(_ context.Context, dividend model.Dividend) (int64, error) {
	for _, existing := range r.dividends {
		if existing.AccountID == dividend.AccountID &&
			existing.Symbol == dividend.Symbol &&
			existing.ExDate.Equal(dividend.ExDate) {
			return 0, repository.ErrAlreadyExists
		}
	}
	dividend.ID = r.nextDivID
	r.nextDivID++
	r.dividends = append(r.dividends, dividend)
	return dividend.ID, nil
}

func (r *fakeRepo) GetAccountDividends(_ context.Context, accountID int64) ([]model.Dividend, error) {
	res := make([]model.Dividend, 0)
	for _, d := range r.dividends {
		if d.AccountID == accountID {
			res = append(res, d)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetDividendExDates(_ context.Context, accountID int64, symbol string) ([]time.Time, error) {
	res := make([]time.Time, 0)
	for _, d := range r.dividends {
		if d.AccountID == accountID && d.Symbol == symbol {
			res = append(res, d.ExDate)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetUnpaidDueDividends(_ context.Context, asOf time.Time) ([]model.Dividend, error) {
	res := make([]model.Dividend, 0)
	for _, d := range r.dividends {
		if !d.PayoutCreated && !d.PayDate.After(asOf) {
			res = append(res, d)
		}
	}
	return res, nil
}

func (r *fakeRepo) MarkDividendPayoutCreated(_ context.Context, dividendID int64) error {
	for i := range r.dividends {
		if r.dividends[i].ID == dividendID {
			r.dividends[i].PayoutCreated = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) GetTaxRateForAccount(_ context.Context, _ int64) (decimal.Decimal, error) {
	return r.taxRate, nil
}

// fakePrices отдаёт заранее заданные котировки и историю дивидендов.
type fakePrices struct {
	quotes          map[string]quoteModel.Quote
	history         map[string][]model.PricePoint
	dividendHistory map[string][]model.DividendHistoryItem
	warmedSymbols   []string
}

func (p *fakePrices) GetQuote(_ context.Context, symbol string) (quoteModel.Quote, error) {
	return p.quotes[symbol], nil
}

func (p *fakePrices) GetQuotes(_ context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	res := make(map[string]quoteModel.Quote, len(symbols))
	for _, s := range symbols {
		if q, ok := p.quotes[s]; ok {
			res[s] = q
		}
	}
	return res, nil
}

func (p *fakePrices) GetHistoricalPrices(_ context.Context, symbol string, _, _ time.Time, _ string) ([]model.PricePoint, error) {
	return p.history[symbol], nil
}

func (p *fakePrices) GetDividendHistory(_ context.Context, symbol string) ([]model.DividendHistoryItem, error) {
	return p.dividendHistory[symbol], nil
}

func (p *fakePrices) WarmQuotes(_ context.Context, symbols []string) error {
	p.warmedSymbols = append(p.warmedSymbols, symbols...)
	return nil
}

func newTestService(repo *fakeRepo, prices *fakePrices) *PortfolioService {
	cfg := &config.Config{
		Dividends: config.Dividends{PayDateOffsetDays: 15},
		Benchmark: config.Benchmark{Symbol: "IMOEX"},
	}
	return New(cfg, repo, prices, nil, nil)
}

func buyTx(accountID int64, symbol, shares, price string, d time.Time) model.StockTransaction {
	return model.StockTransaction{
		AccountID: accountID,
		Symbol:    symbol,
		Kind:      model.TxBuy,
		Shares:    decimal.RequireFromString(shares),
		Price:     decimal.RequireFromString(price),
		Fees:      decimal.Zero,
		Date:      d,
	}
}

func sellTx(accountID int64, symbol, shares, price string, d time.Time) model.StockTransaction {
	tx := buyTx(accountID, symbol, shares, price, d)
	tx.Kind = model.TxSell
	return tx
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestRegisterPurchase_UpdatesHolding(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)

	holding, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "200", day(1)))
	require.NoError(t, err)

	requireDecimal(t, "20", holding.Shares)
	requireDecimal(t, "150", holding.AvgCost)

	stored, err := repo.GetHolding(ctx, 1, "SBER")
	require.NoError(t, err)
	requireDecimal(t, "20", stored.Shares)
}

func TestRegisterSale_OversellRejected(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)

	_, err = srv.RegisterSale(ctx, sellTx(1, "SBER", "11", "100", day(1)))
	require.ErrorIs(t, err, service.ErrOversellRequested)

	// отклонённая продажа не попадает в историю
	txs, err := repo.GetStockTransactions(ctx, 1, "SBER")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRegisterSale_WithinEpsilonAllowed(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)

	holding, err := srv.RegisterSale(ctx, sellTx(1, "SBER", "10.00005", "100", day(1)))
	require.NoError(t, err)

	// остаток зажимается в ноль, позиция закрыта
	requireDecimal(t, "0", holding.Shares)
	requireDecimal(t, "0", holding.AvgCost)
}

func TestUpdateTransaction_AccountAndSymbolImmutable(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)

	update := buyTx(2, "GAZP", "5", "100", day(0))
	update.ID = 1

	holding, err := srv.UpdateTransaction(ctx, update)
	require.NoError(t, err)

	// правка меняет параметры сделки, но не счёт и не бумагу
	assert.Equal(t, int64(1), holding.AccountID)
	assert.Equal(t, "SBER", holding.Symbol)
	requireDecimal(t, "5", holding.Shares)
}

func TestDeleteTransaction_ReplaysRemainingHistory(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)
	_, err = srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "200", day(1)))
	require.NoError(t, err)

	holding, err := srv.DeleteTransaction(ctx, 2)
	require.NoError(t, err)

	requireDecimal(t, "10", holding.Shares)
	requireDecimal(t, "100", holding.AvgCost)
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})

	_, err := srv.DeleteTransaction(context.Background(), 42)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestWarmQuoteCache_DedupesSymbols(t *testing.T) {
	repo := newFakeRepo()
	prices := &fakePrices{}
	srv := newTestService(repo, prices)
	ctx := context.Background()

	_, err := srv.RegisterPurchase(ctx, buyTx(1, "SBER", "10", "100", day(0)))
	require.NoError(t, err)
	_, err = srv.RegisterPurchase(ctx, buyTx(2, "SBER", "5", "100", day(0)))
	require.NoError(t, err)
	_, err = srv.RegisterPurchase(ctx, buyTx(1, "GAZP", "3", "50", day(0)))
	require.NoError(t, err)

	require.NoError(t, srv.WarmQuoteCache(ctx))

	assert.ElementsMatch(t, []string{"SBER", "GAZP"}, prices.warmedSymbols)
}
