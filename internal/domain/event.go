package domain

import "time"

// RunEventKind names the dashboard operation a RunEvent records.
type RunEventKind string

const (
	RunPredicted RunEventKind = "prediction_completed"
	RunExported  RunEventKind = "export_saved"
)

// RunEvent is the record published after a prediction run is applied or an
// export is saved. Export events carry the run they were made from.
type RunEvent struct {
	ID                 string       `json:"id"`
	Kind               RunEventKind `json:"kind"`
	Location           *Coordinate  `json:"location,omitempty"`
	DateRange          *DateRange   `json:"date_range,omitempty"`
	CapacityKWp        *float64     `json:"capacity_kwp,omitempty"`
	Days               int          `json:"days"`
	TotalProductionKWh float64      `json:"total_production_kwh"`
	TotalSavingsMAD    float64      `json:"total_savings_mad"`
	Filename           string       `json:"filename,omitempty"`
	Bytes              int          `json:"bytes,omitempty"`
	OccurredAt         time.Time    `json:"occurred_at"`
}
