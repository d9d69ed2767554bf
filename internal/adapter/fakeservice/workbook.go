package fakeservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of an export workbook.
const (
	SheetPredictions = "Predictions"
	SheetSummary     = "Summary"
	SheetMetadata    = "Metadata"
)

// ExportRow is one prediction as received by the export endpoint.
type ExportRow struct {
	Date                string         `json:"date"`
	PVProductionKWh     float64        `json:"pv_production_kwh"`
	FinancialSavingsMAD float64        `json:"financial_savings_mad"`
	Weather             map[string]any `json:"weather_data"`
}

// BuildWorkbook renders an export request as an xlsx file with one row per
// prediction (weather fields flattened into columns), and one-row Summary and
// Metadata sheets.
func BuildWorkbook(predictions []ExportRow, summary, metadata map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPredictions); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetSummary, SheetMetadata} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	weatherCols := weatherColumns(predictions)
	header := []any{"date", "pv_production_kwh", "financial_savings_mad"}
	for _, c := range weatherCols {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetPredictions, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range predictions {
		row := []any{p.Date, p.PVProductionKWh, p.FinancialSavingsMAD}
		for _, c := range weatherCols {
			row = append(row, cellValue(p.Weather[c]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetPredictions, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := writeRecordSheet(f, SheetSummary, summary); err != nil {
		return nil, err
	}
	if err := writeRecordSheet(f, SheetMetadata, metadata); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRecordSheet lays a flat record out as a header row and a value row,
// keys sorted. Nested values are written as JSON text.
func writeRecordSheet(f *excelize.File, sheet string, record map[string]any) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := make([]any, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		header[i] = k
		values[i] = cellValue(record[k])
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	return f.SetSheetRow(sheet, "A2", &values)
}

// weatherColumns returns the union of weather keys in first-seen order,
// sorted within each record.
func weatherColumns(rows []ExportRow) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		keys := make([]string, 0, len(r.Weather))
		for k := range r.Weather {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

func cellValue(v any) any {
	switch v.(type) {
	case nil, string, float64, int, bool:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// ExportFilename names an export after its location label and date span.
func ExportFilename(metadata, summary map[string]any) string {
	location := stringOr(metadata["location"], "unknown")
	start, end := "unknown", "unknown"
	if dr, ok := summary["date_range"].(map[string]any); ok {
		start = stringOr(dr["start"], start)
		end = stringOr(dr["end"], end)
	}
	name := fmt.Sprintf("pv_predictions_%s_%s_%s.xlsx", location, start, end)
	name = strings.ReplaceAll(name, ", ", "_")
	return strings.ReplaceAll(name, " ", "_")
}

// ContentDisposition formats an attachment header for name.
func ContentDisposition(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
