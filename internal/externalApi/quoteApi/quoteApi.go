package quoteApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/config"
	"github.com/KotFed0t/fin_tracker/internal/externalApi"
	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/internal/model/quoteModel"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client}
}

func (a *QuoteApi) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/iss/engines/stock/markets/shares/boards/TQBR/securities.json"
	params := map[string]string{
		"iss.meta":           "off",
		"securities.columns": "SECID,SHORTNAME,STATUS",
		"marketdata.columns": "SECID,MARKETPRICE",
		"securities":         symbol,
	}

	slog.Debug("start QuoteApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return quoteModel.Quote{}, err
	}

	raw := quoteModel.RawMarketdata{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawMarketdata", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return quoteModel.Quote{}, err
	}

	quotes, err := a.parseRawMarketdata(raw)
	if err != nil {
		slog.Error("can't parse raw marketdata", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return quoteModel.Quote{}, err
	}

	quote, ok := quotes[symbol]
	if !ok {
		slog.Warn("symbol not found in QuoteApi response", slog.String("rqID", rqID), slog.String("symbol", symbol))
		return quoteModel.Quote{}, externalApi.ErrNotFound
	}

	slog.Debug("QuoteApi.GetQuote request complete", slog.String("rqID", rqID))

	return quote, nil
}

func (a *QuoteApi) GetQuotes(ctx context.Context, symbols []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/iss/engines/stock/markets/shares/boards/TQBR/securities.json"
	params := map[string]string{
		"iss.meta":           "off",
		"securities.columns": "SECID,SHORTNAME,STATUS",
		"marketdata.columns": "SECID,MARKETPRICE",
	}
	if len(symbols) > 0 {
		list := ""
		for i, s := range symbols {
			if i > 0 {
				list += ","
			}
			list += s
		}
		params["securities"] = list
	}

	slog.Debug("start QuoteApi.GetQuotes request", slog.String("rqID", rqID), slog.Int("symbols", len(symbols)))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw := quoteModel.RawMarketdata{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawMarketdata", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	quotes, err := a.parseRawMarketdata(raw)
	if err != nil {
		slog.Error("can't parse raw marketdata", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("QuoteApi.GetQuotes request complete", slog.String("rqID", rqID))

	return quotes, nil
}

// GetHistoricalPrices возвращает дневные цены закрытия за период. Провайдер
// может вернуть пустую историю - это не ошибка, неторговые дни отсутствуют.
func (a *QuoteApi) GetHistoricalPrices(ctx context.Context, symbol string, from, to time.Time, interval string) ([]model.PricePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/iss/history/engines/stock/markets/shares/boards/TQBR/securities/%s.json", symbol)
	params := map[string]string{
		"iss.meta":        "off",
		"history.columns": "TRADEDATE,CLOSE",
		"from":            from.Format(time.DateOnly),
		"till":            to.Format(time.DateOnly),
		"interval":        interval,
	}

	slog.Debug("start QuoteApi.GetHistoricalPrices request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw := quoteModel.RawHistory{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawHistory", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	points, err := a.parseRawHistory(raw)
	if err != nil {
		slog.Error("can't parse raw history", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("QuoteApi.GetHistoricalPrices request complete", slog.String("rqID", rqID), slog.Int("points", len(points)))

	return points, nil
}

// GetDividendHistory возвращает историю дивидендных выплат по бумаге.
// Дата закрытия реестра используется как ex-date, даты выплаты провайдер
// не отдаёт - её назначает вызывающая сторона.
func (a *QuoteApi) GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendHistoryItem, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/iss/securities/%s/dividends.json", symbol)
	params := map[string]string{
		"iss.meta":          "off",
		"dividends.columns": "secid,registryclosedate,value",
	}

	slog.Debug("start QuoteApi.GetDividendHistory request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw := quoteModel.RawDividends{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawDividends", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	items, err := a.parseRawDividends(raw)
	if err != nil {
		slog.Error("can't parse raw dividends", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("QuoteApi.GetDividendHistory request complete", slog.String("rqID", rqID), slog.Int("items", len(items)))

	return items, nil
}

func (a *QuoteApi) parseRawMarketdata(raw quoteModel.RawMarketdata) (map[string]quoteModel.Quote, error) {
	if len(raw.Marketdata.Data) != len(raw.Securities.Data) {
		return nil, errors.New("lengths Marketdata != Securities")
	}

	res := make(map[string]quoteModel.Quote, len(raw.Marketdata.Data))

	for i := 0; i < len(raw.Marketdata.Data); i++ {
		if len(raw.Marketdata.Data[i]) != len(raw.Marketdata.Columns) {
			return nil, errors.New("invalid Marketdata")
		}
		if len(raw.Securities.Data[i]) != len(raw.Securities.Columns) {
			return nil, errors.New("invalid Securities")
		}

		quote := quoteModel.Quote{}

		for j, column := range raw.Marketdata.Columns {
			ok := true
			switch column {
			case "SECID":
				quote.Symbol, ok = raw.Marketdata.Data[i][j].(string)
			case "MARKETPRICE":
				if raw.Marketdata.Data[i][j] != nil {
					var price float64
					price, ok = raw.Marketdata.Data[i][j].(float64)
					if ok {
						quote.Price = decimal.NewFromFloat(price)
					}
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, raw.Marketdata.Data[i][j])
			}
		}

		for j, column := range raw.Securities.Columns {
			ok := true
			switch column {
			case "SECID":
				if raw.Securities.Data[i][j] != quote.Symbol {
					return nil, fmt.Errorf("secID in securities and marketdata is not equal %v and %s", raw.Securities.Data[i][j], quote.Symbol)
				}
			case "SHORTNAME":
				quote.Shortname, ok = raw.Securities.Data[i][j].(string)
			case "STATUS":
				var status string
				status, ok = raw.Securities.Data[i][j].(string)
				if ok && status == "A" {
					quote.Status = true
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, raw.Securities.Data[i][j])
			}
		}

		res[quote.Symbol] = quote
	}

	return res, nil
}

func (a *QuoteApi) parseRawHistory(raw quoteModel.RawHistory) ([]model.PricePoint, error) {
	points := make([]model.PricePoint, 0, len(raw.History.Data))

	for i := 0; i < len(raw.History.Data); i++ {
		if len(raw.History.Data[i]) != len(raw.History.Columns) {
			return nil, errors.New("invalid History")
		}

		point := model.PricePoint{}
		hasClose := false

		for j, column := range raw.History.Columns {
			ok := true
			switch column {
			case "TRADEDATE":
				var rawDate string
				rawDate, ok = raw.History.Data[i][j].(string)
				if ok {
					d, err := time.Parse(time.DateOnly, rawDate)
					if err != nil {
						return nil, fmt.Errorf("failed to parse trade date %s: %w", rawDate, err)
					}
					point.Date = d
				}
			case "CLOSE":
				if raw.History.Data[i][j] != nil {
					var closePrice float64
					closePrice, ok = raw.History.Data[i][j].(float64)
					if ok {
						point.Close = decimal.NewFromFloat(closePrice)
						hasClose = true
					}
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, raw.History.Data[i][j])
			}
		}

		// дни без цены закрытия пропускаем, движок их не интерполирует
		if hasClose {
			points = append(points, point)
		}
	}

	return points, nil
}

func (a *QuoteApi) parseRawDividends(raw quoteModel.RawDividends) ([]model.DividendHistoryItem, error) {
	items := make([]model.DividendHistoryItem, 0, len(raw.Dividends.Data))

	for i := 0; i < len(raw.Dividends.Data); i++ {
		if len(raw.Dividends.Data[i]) != len(raw.Dividends.Columns) {
			return nil, errors.New("invalid Dividends")
		}

		item := model.DividendHistoryItem{}

		for j, column := range raw.Dividends.Columns {
			ok := true
			switch column {
			case "secid":
				item.Symbol, ok = raw.Dividends.Data[i][j].(string)
			case "registryclosedate":
				var rawDate string
				rawDate, ok = raw.Dividends.Data[i][j].(string)
				if ok {
					d, err := time.Parse(time.DateOnly, rawDate)
					if err != nil {
						return nil, fmt.Errorf("failed to parse registry close date %s: %w", rawDate, err)
					}
					item.ExDate = d
				}
			case "value":
				var value float64
				value, ok = raw.Dividends.Data[i][j].(float64)
				if ok {
					item.AmountPerShare = decimal.NewFromFloat(value)
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, raw.Dividends.Data[i][j])
			}
		}

		items = append(items, item)
	}

	return items, nil
}
