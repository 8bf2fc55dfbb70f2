// Package export renders per-tag monthly spend as an Excel workbook.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"

	"releve/internal/core"
)

const sheetName = "Spend"

// SpendWorkbook writes one row per month (label, amount in euros) and, when
// there is data, a column chart next to the table.
func SpendWorkbook(tags []string, months []core.MonthAmount) (*bytes.Buffer, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "releve",
		DocSecurity: 2,
	})

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sheet = sheetName

	_ = xlsx.SetColWidth(sheet, "A", "A", 12)
	_ = xlsx.SetColWidth(sheet, "B", "B", 15)

	_ = xlsx.SetCellValue(sheet, "A1", "Month")
	_ = xlsx.SetCellValue(sheet, "B1", "Amount")
	style, _ := xlsx.NewStyle(mergeStyles(fontBold(), thinBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, "A1", "B1", style)

	row := 2
	for _, m := range months {
		_ = xlsx.SetCellValue(sheet, cell('A', row), m.Label())
		_ = xlsx.SetCellValue(sheet, cell('B', row), m.Amount.Euros())
		row++
	}
	last := row - 1

	if len(months) > 0 {
		style, _ = xlsx.NewStyle(mergeStyles(numberFormat(), textAlignment("right")))
		_ = xlsx.SetCellStyle(sheet, "B2", cell('B', last), style)

		_ = xlsx.SetCellValue(sheet, cell('A', row), "Total")
		_ = xlsx.SetCellFormula(sheet, cell('B', row), fmt.Sprintf("SUM(B2:B%d)", last))
		style, _ = xlsx.NewStyle(mergeStyles(fontBold(), numberFormat(), thinBorder("top")))
		_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('B', row), style)

		if err := xlsx.AddChart(sheet, "D2", spendChart(tags, last)); err != nil {
			return nil, fmt.Errorf("add chart: %w", err)
		}
	}

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// FileName is the download name for a tag selection.
func FileName(tags []string) string {
	if len(tags) == 0 {
		return "spend.xlsx"
	}
	return "spend-" + strings.ToLower(strings.Join(tags, "-")) + ".xlsx"
}

func spendChart(tags []string, last int) *excelize.Chart {
	return &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       sheetName + "!$B$1",
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetName, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheetName, last),
		}},
		Title:  []excelize.RichTextRun{{Text: strings.Join(tags, " + ")}},
		Legend: excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{
			Width:  640,
			Height: 320,
		},
	}
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func numberFormat() *excelize.Style {
	format := "#,##0.00"
	return &excelize.Style{CustomNumFmt: &format}
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func textAlignment(a string) *excelize.Style {
	return &excelize.Style{Alignment: &excelize.Alignment{Horizontal: a}}
}

func thinBorder(where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{
			Type:  w,
			Color: "#000000",
			Style: 1,
		})
	}
	return s
}

func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}
