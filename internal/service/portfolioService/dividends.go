package portfolioService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/data/repository"
	"github.com/KotFed0t/fin_tracker/internal/engine"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/service"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/shopspring/decimal"
)

// DividendRequest - параметры ручного ввода дивиденда. SharesHeld задаётся
// только как явный override, иначе позиция на дату отсечки восстанавливается
// из истории сделок.
type DividendRequest struct {
	AccountID      int64
	Symbol         string
	ExDate         time.Time
	PayDate        time.Time // zero - выплата через настроенный сдвиг от отсечки
	AmountPerShare decimal.Decimal
	SharesHeld     *decimal.Decimal
}

// RecordDividend создаёт запись о дивиденде со снимком текущей ставки
// налога. Дубликат по (счёт, бумага, отсечка) возвращает ErrDuplicateDividend -
// вызывающая сторона трактует его как "пропущено", не как сбой.
func (s *PortfolioService) RecordDividend(ctx context.Context, req DividendRequest) (dividend model.Dividend, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RecordDividend"

	slog.Debug("RecordDividend start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", req.Symbol))
	defer func() {
		slog.Debug("RecordDividend finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", req.Symbol))
	}()

	sharesHeld := decimal.Zero
	if req.SharesHeld != nil {
		sharesHeld = *req.SharesHeld
	} else {
		txs, err := s.repo.GetStockTransactions(ctx, req.AccountID, req.Symbol)
		if err != nil {
			slog.Error("got error from repo.GetStockTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Dividend{}, err
		}
		sharesHeld = engine.SharesHeldAsOf(txs, req.ExDate)
	}

	if !sharesHeld.GreaterThan(decimal.Zero) {
		slog.Warn(
			"dividend rejected: no shares held on ex-date",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("symbol", req.Symbol),
			slog.String("exDate", req.ExDate.Format(time.DateOnly)),
		)
		return model.Dividend{}, service.ErrInsufficientOwnership
	}

	taxRate, err := s.repo.GetTaxRateForAccount(ctx, req.AccountID)
	if err != nil {
		slog.Error("got error from repo.GetTaxRateForAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Dividend{}, err
	}

	payDate := req.PayDate
	if payDate.IsZero() {
		payDate = req.ExDate.AddDate(0, 0, s.cfg.Dividends.PayDateOffsetDays)
	}

	gross := req.AmountPerShare.Mul(sharesHeld)
	tax := gross.Mul(taxRate)

	dividend = model.Dividend{
		AccountID:      req.AccountID,
		Symbol:         req.Symbol,
		ExDate:         req.ExDate,
		PayDate:        payDate,
		AmountPerShare: req.AmountPerShare,
		SharesHeld:     sharesHeld,
		GrossAmount:    gross,
		TaxRate:        taxRate,
		TaxAmount:      tax,
		NetAmount:      gross.Sub(tax),
	}

	dividendID, err := s.repo.InsertDividend(ctx, dividend)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			slog.Info(
				"dividend already recorded, skipped",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", req.Symbol),
				slog.String("exDate", req.ExDate.Format(time.DateOnly)),
			)
			return model.Dividend{}, service.ErrDuplicateDividend
		}
		slog.Error("got error from repo.InsertDividend", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Dividend{}, err
	}

	dividend.ID = dividendID

	return dividend, nil
}

// CheckDividends - тело периодической джобы поиска дивидендов. Обходит
// открытые позиции, сверяет историю выплат провайдера с уже записанными
// отсечками и создаёт недостающие записи, если на дату отсечки были акции.
// Закрытые позиции не обходятся: будущих выплат по ним не будет, а уже
// записанные исторические дивиденды остаются как есть.
func (s *PortfolioService) CheckDividends(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CheckDividends"

	holdings, err := s.repo.GetOpenHoldings(ctx)
	if err != nil {
		slog.Error("got error from repo.GetOpenHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	historyBySymbol := make(map[string][]model.DividendHistoryItem)

	created := 0
	for _, holding := range holdings {
		history, ok := historyBySymbol[holding.Symbol]
		if !ok {
			history, err = s.prices.GetDividendHistory(ctx, holding.Symbol)
			if err != nil {
				slog.Warn(
					"can't get dividend history, symbol skipped",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("symbol", holding.Symbol),
					slog.String("err", err.Error()),
				)
				continue
			}
			historyBySymbol[holding.Symbol] = history
		}

		n, err := s.checkAccountDividends(ctx, holding.AccountID, holding.Symbol, history)
		if err != nil {
			slog.Error(
				"got error while checking account dividends",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Int64("accountID", holding.AccountID),
				slog.String("symbol", holding.Symbol),
				slog.String("err", err.Error()),
			)
			continue
		}
		created += n
	}

	slog.Info("dividend check completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("created", created))

	return nil
}

func (s *PortfolioService) checkAccountDividends(ctx context.Context, accountID int64, symbol string, history []model.DividendHistoryItem) (created int, err error) {
	exDates, err := s.repo.GetDividendExDates(ctx, accountID, symbol)
	if err != nil {
		return 0, fmt.Errorf("get dividend ex-dates: %w", err)
	}

	recorded := make(map[string]struct{}, len(exDates))
	for _, d := range exDates {
		recorded[d.Format(time.DateOnly)] = struct{}{}
	}

	txs, err := s.repo.GetStockTransactions(ctx, accountID, symbol)
	if err != nil {
		return 0, fmt.Errorf("get stock transactions: %w", err)
	}

	for _, item := range history {
		if _, ok := recorded[item.ExDate.Format(time.DateOnly)]; ok {
			continue
		}

		sharesHeld := engine.SharesHeldAsOf(txs, item.ExDate)
		if !sharesHeld.GreaterThan(decimal.Zero) {
			continue
		}

		_, err := s.RecordDividend(ctx, DividendRequest{
			AccountID:      accountID,
			Symbol:         symbol,
			ExDate:         item.ExDate,
			PayDate:        item.PayDate,
			AmountPerShare: item.AmountPerShare,
			SharesHeld:     &sharesHeld,
		})
		if err != nil {
			// гонка с ручным вводом - запись уже есть, идём дальше
			if errors.Is(err, service.ErrDuplicateDividend) {
				continue
			}
			return created, err
		}
		created++
	}

	return created, nil
}

// EmitDividendPayouts - тело джобы выплат: для каждой записи с прошедшей
// датой выплаты и без денежной проводки создаёт ровно одну проводку и
// взводит флаг в одной транзакции БД.
func (s *PortfolioService) EmitDividendPayouts(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.EmitDividendPayouts"

	due, err := s.repo.GetUnpaidDueDividends(ctx, time.Now())
	if err != nil {
		slog.Error("got error from repo.GetUnpaidDueDividends", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, dividend := range due {
		err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			err := s.repo.InsertCashTransaction(ctx, model.CashTransaction{
				AccountID:  dividend.AccountID,
				Amount:     dividend.NetAmount,
				Comment:    fmt.Sprintf("dividend %s", dividend.Symbol),
				DividendID: dividend.ID,
				Date:       dividend.PayDate,
			})
			// проводка уже есть после сбоя между insert и mark - только взводим флаг
			if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
				return err
			}

			return s.repo.MarkDividendPayoutCreated(ctx, dividend.ID)
		})
		if err != nil {
			slog.Error(
				"got error while emitting dividend payout",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Int64("dividendID", dividend.ID),
				slog.String("err", err.Error()),
			)
		}
	}

	return nil
}
