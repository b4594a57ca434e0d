package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/config"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

func historyKey(symbol string, from, to time.Time, interval string) string {
	return fmt.Sprintf("history:%s:%s:%s:%s", symbol, from.Format(time.DateOnly), to.Format(time.DateOnly), interval)
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshall quote")
		}

		pipe.Set(ctx, quoteKey(quote.Symbol), quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return quoteModel.Quote{}, err
	}

	quote := quoteModel.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return quoteModel.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

func (r *RedisCache) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuotes start", slog.String("rqID", rqID))

	keys := make([]string, 0, len(symbols))
	for _, s := range symbols {
		keys = append(keys, quoteKey(s))
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]quoteModel.Quote, len(symbols))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// промах по одному ключу - промах всего запроса, частичный
			// ответ вызывающей стороне не нужен
			return nil, fmt.Errorf("cache miss for %s", symbols[i])
		}

		quote := quoteModel.Quote{}
		if err := json.Unmarshal([]byte(raw), &quote); err != nil {
			return nil, errors.New("can't unmarshall quote")
		}
		quotes[quote.Symbol] = quote
	}

	slog.Debug("GetQuotes finished", slog.String("rqID", rqID))

	return quotes, nil
}

func (r *RedisCache) SetPriceHistory(ctx context.Context, symbol string, from, to time.Time, interval string, points []model.PricePoint) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPriceHistory start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	pointsJson, err := json.Marshal(points)
	if err != nil {
		slog.Error("can't marshall points in SetPriceHistory", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall points")
	}

	_, err = r.redis.Set(ctx, historyKey(symbol, from, to, interval), pointsJson, r.cfg.Cache.HistoryExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPriceHistory completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPriceHistory start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, historyKey(symbol, from, to, interval)).Result()
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0)
	err = json.Unmarshal([]byte(res), &points)
	if err != nil {
		slog.Error(
			"can't unmarshall points in GetPriceHistory",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
		)
		return nil, errors.New("can't unmarshall points")
	}

	slog.Debug("GetPriceHistory finished", slog.String("rqID", rqID))

	return points, nil
}
