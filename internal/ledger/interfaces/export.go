package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
)

// BuildLedgerPDF renders a minimal PDF of a meter's ledger series.
func BuildLedgerPDF(meterID string, rows []ledger.Row) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Per Capita Consumption")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Meter: %s", meterID))
	pdf.Ln(5)
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		pdf.Cell(0, 6, fmt.Sprintf("Period: %s - %s", rows[0].Date.Format(ledger.DateLayout), last.Date.Format(ledger.DateLayout)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Consumption (kWh): %.3f", last.ConsumptionCumulated))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Annual projection per capita (kWh): %d", last.MovingAverageAnnualized))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	for _, header := range []string{"Day", "Consumption", "Cumulated", "Inhabitants", "Per capita", "Moving avg", "Annualized"} {
		pdf.CellFormat(36, 6, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(36, 6, row.Date.Format(ledger.DateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%.3f", row.Consumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%.3f", row.ConsumptionCumulated), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", row.Inhabitants), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%.3f", row.PerCapitaConsumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%.3f", row.MovingAverage), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", row.MovingAverageAnnualized), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildLedgerXLSX renders the series as a single-sheet workbook.
func BuildLedgerXLSX(meterID string, rows []ledger.Row) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "ledger"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Meter")
	_ = f.SetCellValue(sheet, "B1", meterID)
	headers := []string{
		"date",
		"consumption",
		"consumption_cumulated",
		"inhabitants",
		"per_capita_consumption",
		"per_capita_consumption_cumulated",
		"days",
		"moving_average",
		"moving_average_annualized",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, row := range rows {
		line := i + 4
		values := []any{
			row.Date.Format(ledger.DateLayout),
			row.Consumption,
			row.ConsumptionCumulated,
			row.Inhabitants,
			row.PerCapitaConsumption,
			row.PerCapitaConsumptionCumulated,
			row.Days,
			row.MovingAverage,
			row.MovingAverageAnnualized,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
