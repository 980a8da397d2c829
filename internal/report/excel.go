package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

var keywordHeader = []string{
	"Keyword", "Ad Group", "Current Volume", "Avg Monthly Searches",
	"Next Month %", "Next 3-Month %", "Seasonal Volatility", "Historical Avg",
}

// WriteTree writes the analyzed category tree to an xlsx file: a
// summary sheet plus one sheet per category.
func WriteTree(path string, categories []models.AnalyzedCategory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, categories); err != nil {
		return err
	}
	for _, cat := range categories {
		if err := writeCategorySheet(f, cat); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// WriteKeywords writes flat keyword forecasts to an xlsx file with a
// single sheet.
func WriteKeywords(path string, forecasts []models.KeywordForecast) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Keywords"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if err := writeHeaderRow(f, sheet, keywordHeader); err != nil {
		return err
	}
	for i, fc := range forecasts {
		if err := writeKeywordCells(f, sheet, i+2, fc, ""); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, categories []models.AnalyzedCategory) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	header := []string{
		"Category", "Ad Groups", "Keywords",
		"Next Month %", "Next 3-Month %", "Avg Monthly Searches", "Seasonal Volatility",
	}
	if err := writeHeaderRow(f, sheet, header); err != nil {
		return err
	}

	for i, cat := range categories {
		keywords := 0
		for _, group := range cat.AdGroups {
			keywords += len(group.Keywords)
		}
		cells := []any{cat.Name, len(cat.AdGroups), keywords}
		if agg := cat.Aggregate; agg != nil {
			cells = append(cells,
				agg.PctChangeNextMonth, agg.PctChangeNext3Mo,
				agg.AvgMonthlySearches, agg.SeasonalVolatility)
		}
		if err := writeCells(f, sheet, i+2, cells); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 20)
}

func writeCategorySheet(f *excelize.File, cat models.AnalyzedCategory) error {
	sheet := sheetName(cat.Name)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: sheet %q: %w", sheet, err)
	}
	if err := writeHeaderRow(f, sheet, keywordHeader); err != nil {
		return err
	}

	row := 2
	for _, group := range cat.AdGroups {
		for _, fc := range group.Keywords {
			if err := writeKeywordCells(f, sheet, row, fc, group.Name); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(sheet, "A", "H", 20)
}

func writeKeywordCells(f *excelize.File, sheet string, row int, fc models.KeywordForecast, adGroup string) error {
	return writeCells(f, sheet, row, []any{
		fc.Keyword, adGroup, fc.Current, fc.AvgMonthlySearches,
		utils.FormatPct(fc.Weighted.PctChangeMonth),
		utils.FormatPct(fc.Weighted.PctChange3Mo),
		fc.SeasonalVolatility, fc.HistoricalAverage,
	})
}

func writeHeaderRow(f *excelize.File, sheet string, header []string) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := writeCells(f, sheet, 1, cells); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}
	end, _ := excelize.CoordinatesToCellName(len(header), 1)
	return f.SetCellStyle(sheet, "A1", end, style)
}

func writeCells(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("report: cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, name, v); err != nil {
			return fmt.Errorf("report: set %s!%s: %w", sheet, name, err)
		}
	}
	return nil
}

// sheetName sanitizes a category name into a legal sheet title: at
// most 31 characters, none of the characters Excel forbids.
func sheetName(name string) string {
	replacer := strings.NewReplacer(
		":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ")
	out := strings.TrimSpace(replacer.Replace(name))
	if out == "" {
		out = "Category"
	}
	if len(out) > 31 {
		out = out[:31]
	}
	return out
}
