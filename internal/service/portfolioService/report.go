package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/utils"
)

// ExportReport собирает xlsx-отчёт по счёту (позиции, дивиденды,
// доходность за год) и заливает его в облачное хранилище. Возвращает
// ссылку на файл.
func (s *PortfolioService) ExportReport(ctx context.Context, accountID int64) (link string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	defer func() {
		slog.Debug("ExportReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", accountID))
	}()

	holdings, err := s.repo.GetAccountHoldings(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetAccountHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}

	quoteMap, err := s.prices.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Warn("can't get quotes for report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		quoteMap = nil
	}

	positions := make([]model.ReportPosition, 0, len(holdings))
	for _, h := range holdings {
		pos := model.ReportPosition{
			Symbol:  h.Symbol,
			Shares:  h.Shares,
			AvgCost: h.AvgCost,
		}

		if quote, ok := quoteMap[h.Symbol]; ok {
			pos.Shortname = quote.Shortname
			pos.LastPrice = quote.Price
			pos.MarketValue = quote.Price.Mul(h.Shares)
			pos.UnrealizedPL = pos.MarketValue.Sub(h.AvgCost.Mul(h.Shares))
		}

		positions = append(positions, pos)
	}

	dividends, err := s.repo.GetAccountDividends(ctx, accountID)
	if err != nil {
		slog.Error("got error from repo.GetAccountDividends", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	performance, err := s.Performance(ctx, accountID, "1y")
	if err != nil {
		slog.Error("got error from Performance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	report := model.AccountReport{
		AccountID:   accountID,
		GeneratedAt: time.Now(),
		Positions:   positions,
		Dividends:   dividends,
		Performance: performance,
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("account_%d_%s%s", accountID, report.GeneratedAt.Format(time.DateOnly), ext)

	link, err = s.cloud.UploadFile(ctx, fileBytes, filename)
	if err != nil {
		slog.Error("got error from cloud.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return link, nil
}
