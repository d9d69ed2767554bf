package domain

import (
	"math"
	"strconv"
)

// Statistics are aggregates recomputed locally from a prediction sequence.
type Statistics struct {
	Days                  int     `json:"days"`
	TotalProductionKWh    float64 `json:"total_production_kwh"`
	TotalSavingsMAD       float64 `json:"total_savings_mad"`
	AvgDailyProductionKWh float64 `json:"avg_daily_production_kwh"`
	AvgDailySavingsMAD    float64 `json:"avg_daily_savings_mad"`
	FirstDate             Date    `json:"first_date"`
	LastDate              Date    `json:"last_date"`
}

// ComputeStatistics sums and averages production and savings, each rounded
// to two decimals. The second result is false for an empty sequence.
// Records are assumed to be in ascending date order.
func ComputeStatistics(records []PredictionRecord) (Statistics, bool) {
	if len(records) == 0 {
		return Statistics{}, false
	}

	var production, savings float64
	for _, r := range records {
		production += r.PVProductionKWh
		savings += r.FinancialSavingsMAD
	}
	n := float64(len(records))

	return Statistics{
		Days:                  len(records),
		TotalProductionKWh:    RoundHalfUp(production, 2),
		TotalSavingsMAD:       RoundHalfUp(savings, 2),
		AvgDailyProductionKWh: RoundHalfUp(production/n, 2),
		AvgDailySavingsMAD:    RoundHalfUp(savings/n, 2),
		FirstDate:             records[0].Date,
		LastDate:              records[len(records)-1].Date,
	}, true
}

// Summary renders the statistics in the service's summary shape, for runs
// where the service sent none.
func (s Statistics) Summary() *SummaryRecord {
	return &SummaryRecord{
		TotalDays:             s.Days,
		TotalProductionKWh:    s.TotalProductionKWh,
		TotalSavingsMAD:       s.TotalSavingsMAD,
		AvgDailyProductionKWh: s.AvgDailyProductionKWh,
		AvgDailySavingsMAD:    s.AvgDailySavingsMAD,
		DateRange: SummaryDateRange{
			Start: s.FirstDate.String(),
			End:   s.LastDate.String(),
		},
	}
}

// RoundHalfUp rounds v to the given number of decimal places, ties away from
// zero. The shift is done on the shortest decimal representation of v so
// that values such as 1.005 round to 1.01 rather than 1.00.
func RoundHalfUp(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	exp := strconv.Itoa(places)
	shifted, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', -1, 64)+"e"+exp, 64)
	if err != nil {
		pow := math.Pow10(places)
		return math.Round(v*pow) / pow
	}
	back, err := strconv.ParseFloat(strconv.FormatFloat(math.Round(shifted), 'f', 0, 64)+"e-"+exp, 64)
	if err != nil {
		return math.Round(shifted) / math.Pow10(places)
	}
	return back
}
