package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/config"
	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/internal/engine"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/fin_tracker/internal/service"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/shopspring/decimal"
)

// допуск на плавающее округление при продаже "всей позиции"
var oversellEpsilon = decimal.NewFromFloat(0.0001)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertStockTransaction(ctx context.Context, tx model.StockTransaction) (txID int64, err error)
	UpdateStockTransaction(ctx context.Context, tx model.StockTransaction) error
	DeleteStockTransaction(ctx context.Context, txID int64) error
	GetStockTransaction(ctx context.Context, txID int64) (model.StockTransaction, error)
	GetStockTransactions(ctx context.Context, accountID int64, symbol string) ([]model.StockTransaction, error)
	GetAccountTransactions(ctx context.Context, accountID int64) ([]model.StockTransaction, error)
	InsertCashTransaction(ctx context.Context, cashTx model.CashTransaction) error

	UpsertHolding(ctx context.Context, holding model.Holding) error
	GetHolding(ctx context.Context, accountID int64, symbol string) (model.Holding, error)
	GetOpenHoldings(ctx context.Context) ([]model.Holding, error)
	GetAccountHoldings(ctx context.Context, accountID int64) ([]model.Holding, error)

	InsertDividend(ctx context.Context, dividend model.Dividend) (dividendID int64, err error)
	GetAccountDividends(ctx context.Context, accountID int64) ([]model.Dividend, error)
	GetDividendExDates(ctx context.Context, accountID int64, symbol string) ([]time.Time, error)
	GetUnpaidDueDividends(ctx context.Context, asOf time.Time) ([]model.Dividend, error)
	MarkDividendPayoutCreated(ctx context.Context, dividendID int64) error

	GetTaxRateForAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

type PriceService interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
	GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error)
	GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendHistoryItem, error)
	WarmQuotes(ctx context.Context, symbols []string) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.AccountReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, fileBytes []byte, filename string) (link string, err error)
}

type PortfolioService struct {
	cfg       *config.Config
	repo      Repository
	prices    PriceService
	reportGen ReportGenerator
	cloud     CloudStorage
	locks     *keyedMutex
}

func New(cfg *config.Config, repo Repository, prices PriceService, reportGen ReportGenerator, cloud CloudStorage) *PortfolioService {
	return &PortfolioService{
		cfg:       cfg,
		repo:      repo,
		prices:    prices,
		reportGen: reportGen,
		cloud:     cloud,
		locks:     newKeyedMutex(),
	}
}

// RegisterPurchase записывает покупку в историю и полностью пересчитывает
// позицию. Частичных обновлений Holding не бывает - комиссии и средняя цена
// зависят от порядка сделок.
func (s *PortfolioService) RegisterPurchase(ctx context.Context, tx model.StockTransaction) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterPurchase"

	slog.Debug("RegisterPurchase start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", tx.Symbol))
	defer func() {
		slog.Debug("RegisterPurchase finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", tx.Symbol))
	}()

	tx.Kind = model.TxBuy

	unlock := s.locks.lock(tx.AccountID, tx.Symbol)
	defer unlock()

	_, err = s.repo.InsertStockTransaction(ctx, tx)
	if err != nil {
		slog.Error("got error from repo.InsertStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return s.replayAndStore(ctx, tx.AccountID, tx.Symbol)
}

// RegisterSale проверяет остаток до записи в историю: продажа сверх позиции
// (за пределами допуска) отклоняется ещё до каких-либо изменений.
func (s *PortfolioService) RegisterSale(ctx context.Context, tx model.StockTransaction) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterSale"

	slog.Debug("RegisterSale start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", tx.Symbol))
	defer func() {
		slog.Debug("RegisterSale finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", tx.Symbol))
	}()

	tx.Kind = model.TxSell

	unlock := s.locks.lock(tx.AccountID, tx.Symbol)
	defer unlock()

	txs, err := s.repo.GetStockTransactions(ctx, tx.AccountID, tx.Symbol)
	if err != nil {
		slog.Error("got error from repo.GetStockTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	pos := engine.Replay(txs)
	if tx.Shares.GreaterThan(pos.Shares.Add(oversellEpsilon)) {
		slog.Warn(
			"oversell rejected",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("requested", tx.Shares.String()),
			slog.String("held", pos.Shares.String()),
		)
		return model.Holding{}, service.ErrOversellRequested
	}

	_, err = s.repo.InsertStockTransaction(ctx, tx)
	if err != nil {
		slog.Error("got error from repo.InsertStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return s.replayAndStore(ctx, tx.AccountID, tx.Symbol)
}

func (s *PortfolioService) UpdateTransaction(ctx context.Context, tx model.StockTransaction) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateTransaction"

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("txID", tx.ID))
	defer func() {
		slog.Debug("UpdateTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("txID", tx.ID))
	}()

	current, err := s.repo.GetStockTransaction(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	// счёт и бумага не редактируются, правятся только параметры сделки
	tx.AccountID = current.AccountID
	tx.Symbol = current.Symbol

	unlock := s.locks.lock(tx.AccountID, tx.Symbol)
	defer unlock()

	err = s.repo.UpdateStockTransaction(ctx, tx)
	if err != nil {
		slog.Error("got error from repo.UpdateStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return s.replayAndStore(ctx, tx.AccountID, tx.Symbol)
}

func (s *PortfolioService) DeleteTransaction(ctx context.Context, txID int64) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("txID", txID))
	defer func() {
		slog.Debug("DeleteTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("txID", txID))
	}()

	current, err := s.repo.GetStockTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	unlock := s.locks.lock(current.AccountID, current.Symbol)
	defer unlock()

	err = s.repo.DeleteStockTransaction(ctx, txID)
	if err != nil {
		slog.Error("got error from repo.DeleteStockTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return s.replayAndStore(ctx, current.AccountID, current.Symbol)
}

func (s *PortfolioService) GetHolding(ctx context.Context, accountID int64, symbol string) (model.Holding, error) {
	holding, err := s.repo.GetHolding(ctx, accountID, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		return model.Holding{}, err
	}
	return holding, nil
}

// replayAndStore - единственный легальный способ изменить Holding: полный
// реплей истории по паре (счёт, бумага) и перезапись производной записи.
// Вызывается строго под locks.lock этой пары.
func (s *PortfolioService) replayAndStore(ctx context.Context, accountID int64, symbol string) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.replayAndStore"

	txs, err := s.repo.GetStockTransactions(ctx, accountID, symbol)
	if err != nil {
		slog.Error("got error from repo.GetStockTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	pos := engine.Replay(txs)

	holding := model.Holding{
		AccountID: accountID,
		Symbol:    symbol,
		Shares:    pos.Shares,
		AvgCost:   pos.AvgCost,
	}

	err = s.repo.UpsertHolding(ctx, holding)
	if err != nil {
		slog.Error("got error from repo.UpsertHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return holding, nil
}

// WarmQuoteCache прогревает кэш котировок по всем открытым позициям.
// Вызывается джобой по расписанию.
func (s *PortfolioService) WarmQuoteCache(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WarmQuoteCache"

	holdings, err := s.repo.GetOpenHoldings(ctx)
	if err != nil {
		slog.Error("got error from repo.GetOpenHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	seen := make(map[string]struct{}, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Symbol]; ok {
			continue
		}
		seen[h.Symbol] = struct{}{}
		symbols = append(symbols, h.Symbol)
	}

	if len(symbols) == 0 {
		return nil
	}

	return s.prices.WarmQuotes(ctx, symbols)
}
