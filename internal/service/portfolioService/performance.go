package portfolioService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/engine"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/utils"
)

const dailyInterval = "24"

// resolveWindow переводит пользовательское окно в границы периода и лимит
// точек опорного календаря. Для коротких окон календарь обрезается до
// последних точек бенчмарка, чтобы график не начинался с выходных.
func resolveWindow(window string, now time.Time) (start time.Time, maxPoints int) {
	switch window {
	case "1d":
		return now.AddDate(0, 0, -7), 2
	case "1w":
		return now.AddDate(0, 0, -14), 7
	case "1m":
		return now.AddDate(0, -1, 0), 0
	case "6m":
		return now.AddDate(0, -6, 0), 0
	case "1y":
		return now.AddDate(-1, 0, 0), 0
	default: // "all"
		return time.Time{}, 0
	}
}

// Performance считает TWR-доходность счёта против бенчмарка за окно.
// Все данные (история сделок, цены, бенчмарк) собираются до вычисления -
// движок работает над единым снапшотом.
func (s *PortfolioService) Performance(ctx context.Context, accountID int64, window string) (report model.PerformanceReport, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Performance"

	slog.Debug("Performance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID), slog.String("window", window))
	defer func() {
		slog.Debug("Performance finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	empty := model.PerformanceReport{
		Portfolio: []model.PerformancePoint{},
		Benchmark: []model.PerformancePoint{},
		Events:    []model.ChartEvent{},
	}

	txs, err := s.repo.GetAccountTransactions(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetAccountTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return empty, err
	}

	if len(txs) == 0 {
		return empty, nil
	}

	dividends, err := s.repo.GetAccountDividends(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetAccountDividends", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return empty, err
	}

	now := time.Now()
	periodStart, maxPoints := resolveWindow(window, now)
	if periodStart.IsZero() {
		earliest := txs[0].Date
		for _, tx := range txs {
			if tx.Date.Before(earliest) {
				earliest = tx.Date
			}
		}
		periodStart = earliest
	}

	benchmark, err := s.prices.GetHistoricalPrices(ctx, s.cfg.Benchmark.Symbol, periodStart, now, dailyInterval)
	if err != nil {
		slog.Error("can't get benchmark history", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return empty, err
	}

	seen := make(map[string]struct{})
	prices := make(map[string][]model.PricePoint)
	for _, tx := range txs {
		if _, ok := seen[tx.Symbol]; ok {
			continue
		}
		seen[tx.Symbol] = struct{}{}

		history, err := s.prices.GetHistoricalPrices(ctx, tx.Symbol, periodStart, now, dailyInterval)
		if err != nil {
			// нет истории по бумаге - её даты просто выпадут из графика
			slog.Warn(
				"can't get price history, symbol skipped",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", tx.Symbol),
				slog.String("err", err.Error()),
			)
			continue
		}
		prices[tx.Symbol] = history
	}

	return engine.ComputeTWR(engine.TWRInput{
		Transactions: txs,
		Dividends:    dividends,
		Prices:       prices,
		Benchmark:    benchmark,
		PeriodStart:  periodStart,
		PeriodEnd:    now,
		MaxPoints:    maxPoints,
	}), nil
}
