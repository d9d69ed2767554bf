package domain

import (
	"encoding/json"
	"net/http"
)

// PredictionRecord is one forecast day. Weather holds the service's
// weather_data object verbatim.
type PredictionRecord struct {
	Date                Date            `json:"date"`
	PVProductionKWh     float64         `json:"pv_production_kwh"`
	FinancialSavingsMAD float64         `json:"financial_savings_mad"`
	Weather             json.RawMessage `json:"weather_data,omitempty"`
}

// SummaryDateRange is the span reported inside a service summary.
type SummaryDateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// SummaryRecord holds aggregates computed by the forecasting service.
// A record decoded from JSON remembers its source bytes and marshals back to
// them unchanged, including keys it has no field for.
type SummaryRecord struct {
	TotalDays             int              `json:"total_days"`
	TotalProductionKWh    float64          `json:"total_production_kwh"`
	TotalSavingsMAD       float64          `json:"total_savings_mad"`
	AvgDailyProductionKWh float64          `json:"avg_daily_production_kwh"`
	AvgDailySavingsMAD    float64          `json:"avg_daily_savings_mad"`
	MinDailyProductionKWh float64          `json:"min_daily_production_kwh,omitempty"`
	MaxDailyProductionKWh float64          `json:"max_daily_production_kwh,omitempty"`
	StdDailyProductionKWh float64          `json:"std_daily_production_kwh,omitempty"`
	ConversionRate        float64          `json:"conversion_rate_mad_per_kwh,omitempty"`
	DateRange             SummaryDateRange `json:"date_range"`
	DataCompleteness      any              `json:"data_completeness,omitempty"`

	raw json.RawMessage
}

type summaryFields SummaryRecord

func (s *SummaryRecord) UnmarshalJSON(b []byte) error {
	var f summaryFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = SummaryRecord(f)
	s.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (s SummaryRecord) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(summaryFields(s))
}

// MetadataRecord is the run-level descriptive object (location label,
// capacity, conversion rate, model, data source). Its keys are not interpreted.
type MetadataRecord map[string]any

// PredictionResult is the decoded answer to a prediction request.
type PredictionResult struct {
	Success     bool               `json:"success"`
	Predictions []PredictionRecord `json:"predictions"`
	Summary     *SummaryRecord     `json:"summary,omitempty"`
	Metadata    MetadataRecord     `json:"metadata,omitempty"`
}

// ExportArtifact is a spreadsheet returned by the export endpoint together
// with the response headers it arrived with.
type ExportArtifact struct {
	Data   []byte
	Header http.Header
}
