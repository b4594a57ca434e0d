package chartGenerator

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KotFed0t/fin_tracker/internal/model"
)

type ChartGenerator struct{}

func New() *ChartGenerator {
	return &ChartGenerator{}
}

// RenderPerformanceChart рисует PNG-график доходности портфеля против
// бенчмарка. Обе серии в процентах от начала периода.
func (g *ChartGenerator) RenderPerformanceChart(report model.PerformanceReport) ([]byte, error) {
	if len(report.Portfolio) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(report.Portfolio))
	}

	portfolioX := make([]time.Time, len(report.Portfolio))
	portfolioY := make([]float64, len(report.Portfolio))
	for i, p := range report.Portfolio {
		portfolioX[i] = p.Date
		portfolioY[i] = p.ChangePercent.InexactFloat64()
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Портфель",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"),
				StrokeWidth: 2.5,
			},
			XValues: portfolioX,
			YValues: portfolioY,
		},
	}

	if len(report.Benchmark) >= 2 {
		benchmarkX := make([]time.Time, len(report.Benchmark))
		benchmarkY := make([]float64, len(report.Benchmark))
		for i, p := range report.Benchmark {
			benchmarkX[i] = p.Date
			benchmarkY[i] = p.ChangePercent.InexactFloat64()
		}

		series = append(series, chart.TimeSeries{
			Name: "Бенчмарк",
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("9ca3af"),
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5.0, 3.0},
			},
			XValues: benchmarkX,
			YValues: benchmarkY,
		})
	}

	graph := chart.Chart{
		Title:  "Доходность портфеля",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02.01.06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f%%", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
