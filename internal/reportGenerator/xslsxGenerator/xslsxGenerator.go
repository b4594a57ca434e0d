package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/fin_tracker/internal/model"
	"github.com/KotFed0t/fin_tracker/utils"
	"github.com/xuri/excelize/v2"
)

type chartRenderer interface {
	RenderPerformanceChart(report model.PerformanceReport) ([]byte, error)
}

type XSLSXGenerator struct {
	chartGen chartRenderer
}

func New(chartGen chartRenderer) *XSLSXGenerator {
	return &XSLSXGenerator{chartGen: chartGen}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.AccountReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillPositionsSheet(f, report); err != nil {
		return nil, "", err
	}

	if err := g.fillDividendsSheet(f, report); err != nil {
		return nil, "", err
	}

	if err := g.fillPerformanceSheet(ctx, f, report); err != nil {
		return nil, "", err
	}

	// Удаляем лист по умолчанию "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XSLSXGenerator) fillPositionsSheet(f *excelize.File, report model.AccountReport) error {
	sheetName := "Позиции"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", "G1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Позиции счёта %d на %s", report.AccountID, report.GeneratedAt.Format("02.01.2006")))

	styleID, err := g.headerStyle(f, "#cfe2f3") // Светло-голубой цвет
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("ошибка применения стиля: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "тикер")
	_ = f.SetCellStr(sheetName, "B2", "название")
	_ = f.SetCellStr(sheetName, "C2", "кол-во акций")
	_ = f.SetCellStr(sheetName, "D2", "средняя цена")
	_ = f.SetCellStr(sheetName, "E2", "текущая цена")
	_ = f.SetCellStr(sheetName, "F2", "стоимость")
	_ = f.SetCellStr(sheetName, "G2", "нереализованная прибыль")

	for i, pos := range report.Positions {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", i+3), pos.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", i+3), pos.Shortname)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+3), pos.Shares.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+3), pos.AvgCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", i+3), pos.LastPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", i+3), pos.MarketValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", i+3), pos.UnrealizedPL.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillDividendsSheet(f *excelize.File, report model.AccountReport) error {
	sheetName := "Дивиденды"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", "H1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Дивиденды")

	styleID, err := g.headerStyle(f, "#d9ead3") // Светло-зеленый цвет
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("ошибка применения стиля: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "тикер")
	_ = f.SetCellStr(sheetName, "B2", "дата отсечки")
	_ = f.SetCellStr(sheetName, "C2", "дата выплаты")
	_ = f.SetCellStr(sheetName, "D2", "на акцию")
	_ = f.SetCellStr(sheetName, "E2", "кол-во акций")
	_ = f.SetCellStr(sheetName, "F2", "начислено")
	_ = f.SetCellStr(sheetName, "G2", "налог")
	_ = f.SetCellStr(sheetName, "H2", "к выплате")

	for i, d := range report.Dividends {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", i+3), d.Symbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+3), d.ExDate.Format(time.DateOnly))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+3), d.PayDate.Format(time.DateOnly))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+3), d.AmountPerShare.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", i+3), d.SharesHeld.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", i+3), d.GrossAmount.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", i+3), d.TaxAmount.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", i+3), d.NetAmount.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillPerformanceSheet(ctx context.Context, f *excelize.File, report model.AccountReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.fillPerformanceSheet"

	sheetName := "Доходность"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	err = f.MergeCell(sheetName, "A1", "D1")
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Доходность за год")

	styleID, err := g.headerStyle(f, "#f9cb9c") // Светло-оранжевый цвет
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("ошибка применения стиля: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "дата")
	_ = f.SetCellStr(sheetName, "B2", "стоимость")
	_ = f.SetCellStr(sheetName, "C2", "портфель, %")
	_ = f.SetCellStr(sheetName, "D2", "бенчмарк, %")

	benchmarkByDate := make(map[string]model.PerformancePoint, len(report.Performance.Benchmark))
	for _, p := range report.Performance.Benchmark {
		benchmarkByDate[p.Date.Format(time.DateOnly)] = p
	}

	for i, p := range report.Performance.Portfolio {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", i+3), p.Date.Format(time.DateOnly))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+3), p.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+3), p.ChangePercent.InexactFloat64())

		if b, ok := benchmarkByDate[p.Date.Format(time.DateOnly)]; ok {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+3), b.ChangePercent.InexactFloat64())
		}
	}

	pngBytes, err := g.chartGen.RenderPerformanceChart(report.Performance)
	if err != nil {
		// без графика отчёт всё равно полезен
		slog.Warn("can't render performance chart", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil
	}

	err = f.AddPictureFromBytes(sheetName, "F2", &excelize.Picture{
		Extension: ".png",
		File:      pngBytes,
	})
	if err != nil {
		slog.Error("got error while adding chart picture", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
