package engine

import (
	"sort"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TWRInput - снапшот данных для расчёта доходности. Собирается вызывающей
// стороной целиком до начала вычисления, внутри расчёта никакого I/O нет.
type TWRInput struct {
	Transactions []model.StockTransaction
	Dividends    []model.Dividend
	Prices       map[string][]model.PricePoint
	Benchmark    []model.PricePoint
	PeriodStart  time.Time
	PeriodEnd    time.Time
	// MaxPoints > 0 обрезает календарь бенчмарка до последних N точек
	// (короткие окна вроде "1 день" / "1 неделя").
	MaxPoints int
}

// twrState - состояние свёртки по таймлайну. Каждый шаг возвращает новое
// состояние, карта позиций копируется при применении сделок.
type twrState struct {
	cumulative decimal.Decimal // произведение (1+R) закрытых субпериодов
	subStart   decimal.Decimal // стоимость портфеля на старте текущего субпериода
	anchored   bool
	shares     map[string]decimal.Decimal
}

type priceIndex map[string]map[string]decimal.Decimal

func (p priceIndex) at(symbol string, date time.Time) (decimal.Decimal, bool) {
	bySym, ok := p[symbol]
	if !ok {
		return decimal.Zero, false
	}
	px, ok := bySym[dateOnly(date).Format(time.DateOnly)]
	return px, ok
}

// ComputeTWR считает time-weighted return портфеля против бенчмарка.
// Таймлайн задаётся торговыми датами бенчмарка, денежные потоки (покупки и
// продажи) закрывают субпериод по стоимости до сделки и открывают новый по
// стоимости после. Даты без цен по удерживаемым бумагам пропускаются без
// интерполяции. Пустой бенчмарк или пустая история дают пустые серии, не ошибку.
func ComputeTWR(in TWRInput) model.PerformanceReport {
	rep := model.PerformanceReport{
		Portfolio: []model.PerformancePoint{},
		Benchmark: []model.PerformancePoint{},
		Events:    []model.ChartEvent{},
	}

	timeline := benchmarkTimeline(in.Benchmark, in.PeriodStart, in.PeriodEnd, in.MaxPoints)
	if len(timeline) == 0 {
		return rep
	}

	before, inPeriod := splitTransactions(in.Transactions, in.PeriodStart, in.PeriodEnd)

	st := twrState{
		cumulative: decimal.NewFromInt(1),
		shares:     startingShares(before),
	}

	prices := buildPriceIndex(in.Prices)

	cursor := 0
	for _, pt := range timeline {
		day := dateOnly(pt.Date)

		var todays []model.StockTransaction
		for cursor < len(inPeriod) && !dateOnly(inPeriod[cursor].Date).After(day) {
			todays = append(todays, inPeriod[cursor])
			cursor++
		}

		var point *model.PerformancePoint
		st, point = st.step(day, todays, prices)
		if point != nil {
			rep.Portfolio = append(rep.Portfolio, *point)
		}
	}

	rep.Benchmark = benchmarkSeries(timeline)
	rep.Events = collectEvents(in.Transactions, in.Dividends, timeline[0].Date, timeline[len(timeline)-1].Date)

	return rep
}

// step обрабатывает один тик таймлайна: либо обычную торговую дату, либо
// дату с денежным потоком. Возвращает новое состояние и точку графика,
// если её можно построить на этой дате.
func (st twrState) step(day time.Time, txs []model.StockTransaction, prices priceIndex) (twrState, *model.PerformancePoint) {
	if len(txs) > 0 {
		return st.cashFlowTick(day, txs, prices)
	}
	return st.priceTick(day, prices)
}

func (st twrState) priceTick(day time.Time, prices priceIndex) (twrState, *model.PerformancePoint) {
	value, ok := st.valuation(day, prices)
	if !ok {
		return st, nil
	}

	if !st.anchored {
		st.subStart = value
		st.anchored = true
		return st, &model.PerformancePoint{Date: day, Value: value, ChangePercent: toPercent(st.cumulative)}
	}

	if !st.subStart.GreaterThan(decimal.Zero) {
		return st, nil
	}

	running := st.cumulative.Mul(value.Div(st.subStart))
	return st, &model.PerformancePoint{Date: day, Value: value, ChangePercent: toPercent(running)}
}

func (st twrState) cashFlowTick(day time.Time, txs []model.StockTransaction, prices priceIndex) (twrState, *model.PerformancePoint) {
	// закрываем текущий субпериод по стоимости до сделок
	preValue, ok := st.valuation(day, prices)
	if ok && st.anchored && st.subStart.GreaterThan(decimal.Zero) {
		st.cumulative = st.cumulative.Mul(preValue.Div(st.subStart))
	}

	st = st.applyTransactions(txs)

	// новый субпериод стартует со стоимости после сделок
	postValue, ok := st.valuation(day, prices)
	if !ok {
		st.anchored = false
		return st, nil
	}

	st.subStart = postValue
	st.anchored = true
	return st, &model.PerformancePoint{Date: day, Value: postValue, ChangePercent: toPercent(st.cumulative)}
}

// valuation оценивает портфель по ценам закрытия на дату. ok == false, если
// нет цены хотя бы по одной удерживаемой бумаге или не удерживается ничего.
func (st twrState) valuation(day time.Time, prices priceIndex) (decimal.Decimal, bool) {
	total := decimal.Zero
	hasAnyHolding := false

	for symbol, shares := range st.shares {
		if !shares.GreaterThan(decimal.Zero) {
			continue
		}
		hasAnyHolding = true

		px, ok := prices.at(symbol, day)
		if !ok {
			return decimal.Zero, false
		}
		total = total.Add(px.Mul(shares))
	}

	if !hasAnyHolding {
		return decimal.Zero, false
	}

	return total, true
}

func (st twrState) applyTransactions(txs []model.StockTransaction) twrState {
	shares := make(map[string]decimal.Decimal, len(st.shares)+1)
	for symbol, sh := range st.shares {
		shares[symbol] = sh
	}
	for _, tx := range txs {
		shares[tx.Symbol] = shares[tx.Symbol].Add(tx.SignedShares())
	}
	st.shares = shares
	return st
}

func toPercent(multiplier decimal.Decimal) decimal.Decimal {
	return multiplier.Sub(decimal.NewFromInt(1)).Mul(hundred)
}

// benchmarkTimeline строит опорный календарь из торговых дат бенчмарка:
// фильтр по окну, сортировка, обрезка до последних maxPoints точек.
func benchmarkTimeline(points []model.PricePoint, start, end time.Time, maxPoints int) []model.PricePoint {
	from := dateOnly(start)
	to := dateOnly(end)

	timeline := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		day := dateOnly(p.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		timeline = append(timeline, model.PricePoint{Date: day, Close: p.Close})
	}

	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Date.Before(timeline[j].Date) })

	if maxPoints > 0 && len(timeline) > maxPoints {
		timeline = timeline[len(timeline)-maxPoints:]
	}

	return timeline
}

// benchmarkSeries - простой процент изменения от первой отрисованной точки.
// У бенчмарка нет денежных потоков, механика TWR ему не нужна.
func benchmarkSeries(timeline []model.PricePoint) []model.PerformancePoint {
	series := make([]model.PerformancePoint, 0, len(timeline))
	if len(timeline) == 0 {
		return series
	}

	first := timeline[0].Close
	for _, p := range timeline {
		change := decimal.Zero
		if first.GreaterThan(decimal.Zero) {
			change = toPercent(p.Close.Div(first))
		}
		series = append(series, model.PerformancePoint{Date: p.Date, Value: p.Close, ChangePercent: change})
	}

	return series
}

func splitTransactions(txs []model.StockTransaction, start, end time.Time) (before, inPeriod []model.StockTransaction) {
	from := dateOnly(start)
	to := dateOnly(end)

	for _, tx := range txs {
		day := dateOnly(tx.Date)
		switch {
		case day.Before(from):
			before = append(before, tx)
		case !day.After(to):
			inPeriod = append(inPeriod, tx)
		}
	}

	SortTransactions(before)
	SortTransactions(inPeriod)

	return before, inPeriod
}

func startingShares(before []model.StockTransaction) map[string]decimal.Decimal {
	shares := make(map[string]decimal.Decimal)
	for _, tx := range before {
		shares[tx.Symbol] = shares[tx.Symbol].Add(tx.SignedShares())
	}
	return shares
}

func buildPriceIndex(prices map[string][]model.PricePoint) priceIndex {
	idx := make(priceIndex, len(prices))
	for symbol, points := range prices {
		bySym := make(map[string]decimal.Decimal, len(points))
		for _, p := range points {
			bySym[dateOnly(p.Date).Format(time.DateOnly)] = p.Close
		}
		idx[symbol] = bySym
	}
	return idx
}

// collectEvents собирает сделки и дивиденды внутри отрисованного окна
// (ограниченного первой и последней опорной датой) для маркеров на графике.
func collectEvents(txs []model.StockTransaction, dividends []model.Dividend, first, last time.Time) []model.ChartEvent {
	from := dateOnly(first)
	to := dateOnly(last)
	inWindow := func(t time.Time) bool {
		day := dateOnly(t)
		return !day.Before(from) && !day.After(to)
	}

	events := make([]model.ChartEvent, 0)

	for _, tx := range txs {
		if !inWindow(tx.Date) {
			continue
		}
		kind := model.EventBuy
		if tx.Kind == model.TxSell {
			kind = model.EventSell
		}
		events = append(events, model.ChartEvent{
			Date:   dateOnly(tx.Date),
			Symbol: tx.Symbol,
			Kind:   kind,
			Amount: tx.Shares.Mul(tx.Price),
		})
	}

	for _, d := range dividends {
		if !inWindow(d.ExDate) {
			continue
		}
		events = append(events, model.ChartEvent{
			Date:   dateOnly(d.ExDate),
			Symbol: d.Symbol,
			Kind:   model.EventDividend,
			Amount: d.NetAmount,
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	return events
}
