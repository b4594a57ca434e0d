// Package priceservice прячет кэш и провайдера котировок за одним явно
// сконструированным объектом. Никакого глобального состояния: сервис
// создаётся в main и передаётся зависимостью, в тестах подменяется фейком.
package priceservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/fin_tracker/utils"
)

type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
	GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error)
	GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendHistoryItem, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error)
	SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error)
	SetPriceHistory(ctx context.Context, symbol string, from, to time.Time, interval string, points []model.PricePoint) error
}

type PriceService struct {
	cache    Cache
	provider QuoteProvider
}

func New(cache Cache, provider QuoteProvider) *PriceService {
	return &PriceService{cache: cache, provider: provider}
}

func (s *PriceService) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.GetQuote"

	quote, err := s.cache.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	quote, err = s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return quoteModel.Quote{}, err
	}

	go s.cache.SetQuotes(context.WithoutCancel(ctx), []quoteModel.Quote{quote})

	return quote, nil
}

func (s *PriceService) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.GetQuotes"

	quotes, err := s.cache.GetQuotes(ctx, symbols)
	if err == nil {
		return quotes, nil
	}

	slog.Warn("can't get quotes from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	quotes, err = s.provider.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	toCache := make([]quoteModel.Quote, 0, len(quotes))
	for _, q := range quotes {
		toCache = append(toCache, q)
	}
	go s.cache.SetQuotes(context.WithoutCancel(ctx), toCache)

	return quotes, nil
}

func (s *PriceService) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.GetHistoricalPrices"

	points, err := s.cache.GetPriceHistory(ctx, symbol, from, to, interval)
	if err == nil {
		return points, nil
	}

	slog.Warn("can't get price history from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	points, err = s.provider.GetHistoricalPrices(ctx, symbol, from, to, interval)
	if err != nil {
		return nil, err
	}

	go s.cache.SetPriceHistory(context.WithoutCancel(ctx), symbol, from, to, interval, points)

	return points, nil
}

// GetDividendHistory ходит напрямую в провайдера: историю выплат дёргает
// только периодическая джоба, кэшировать нечего.
func (s *PriceService) GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendHistoryItem, error) {
	return s.provider.GetDividendHistory(ctx, symbol)
}

// WarmQuotes принудительно обновляет кэш котировок из провайдера.
// В отличие от GetQuotes запись в кэш синхронная - джоба прогрева должна
// завершиться с актуальным кэшем, а не с обещанием его заполнить.
func (s *PriceService) WarmQuotes(ctx context.Context, symbols []string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceService.WarmQuotes"

	quotes, err := s.provider.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Error("can't get quotes from provider", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	toCache := make([]quoteModel.Quote, 0, len(quotes))
	for _, q := range quotes {
		toCache = append(toCache, q)
	}

	return s.cache.SetQuotes(ctx, toCache)
}
