package fakeservice

import (
	"encoding/json"
	"math"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
)

// ConversionRate is the MAD earned per kWh of production.
const ConversionRate = 1.2

// Model inputs for a synthetic day. Irradiance is in kWh/m²/day.
type weatherDay struct {
	Irradiance  float64 `json:"ALLSKY_SFC_SW_DWN"`
	Temperature float64 `json:"T2M"`
	CloudAmount float64 `json:"CLOUD_AMT"`
	WindSpeed   float64 `json:"WS2M"`
	Humidity    float64 `json:"RH2M"`
}

// syntheticWeather produces repeatable weather for a location and day: a
// seasonal irradiance curve mirrored across the equator, damped toward the
// poles, with a deterministic cloud pattern on top.
func syntheticWeather(lat, lng float64, d domain.Date) weatherDay {
	doy := float64(d.Time().YearDay())
	season := math.Cos(2 * math.Pi * (doy - 172) / 365.25)
	if lat < 0 {
		season = -season
	}
	latRad := lat * math.Pi / 180

	clear := 3.0 + 4.0*math.Cos(latRad) + 1.5*season*math.Min(1, math.Abs(lat)/30)
	cloud := 35 + 30*math.Sin(doy*0.9+lng/10)
	irradiance := math.Max(0, clear*(1-cloud/140))

	return weatherDay{
		Irradiance:  round(irradiance, 3),
		Temperature: round(15+12*math.Cos(latRad)*0.8+8*season, 3),
		CloudAmount: round(cloud, 3),
		WindSpeed:   round(3.5+1.5*math.Sin(doy*0.37), 3),
		Humidity:    round(60-15*season+10*math.Sin(doy*0.21), 3),
	}
}

// production converts a day's weather into kWh for a system of capacity kWp
// using a fixed performance ratio with a small temperature derate.
func production(w weatherDay, capacity float64) float64 {
	derate := 1 - math.Max(0, w.Temperature-25)*0.004
	return math.Max(0, capacity*w.Irradiance*0.8*derate)
}

// generate builds inclusive daily predictions from start to end.
func generate(lat, lng, capacity float64, start, end domain.Date) ([]domain.PredictionRecord, []float64) {
	var (
		records []domain.PredictionRecord
		raw     []float64
	)
	for d := start; !d.After(end); d = d.AddDays(1) {
		w := syntheticWeather(lat, lng, d)
		kwh := production(w, capacity)
		weather, _ := json.Marshal(w) //nolint:errcheck // plain struct of floats
		records = append(records, domain.PredictionRecord{
			Date:                d,
			PVProductionKWh:     round(kwh, 1),
			FinancialSavingsMAD: round(kwh*ConversionRate, 1),
			Weather:             weather,
		})
		raw = append(raw, kwh)
	}
	return records, raw
}

// summarize mirrors the service's summary: aggregates over unrounded
// production plus the data span and completeness.
func summarize(raw []float64, start, end domain.Date) map[string]any {
	n := float64(len(raw))
	var sum, lo, hi float64
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, v := range raw {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / n
	var sq float64
	for _, v := range raw {
		sq += (v - mean) * (v - mean)
	}

	return map[string]any{
		"total_days":                  len(raw),
		"total_production_kwh":        sum,
		"total_savings_mad":           sum * ConversionRate,
		"avg_daily_production_kwh":    mean,
		"avg_daily_savings_mad":       mean * ConversionRate,
		"min_daily_production_kwh":    lo,
		"max_daily_production_kwh":    hi,
		"std_daily_production_kwh":    math.Sqrt(sq / n),
		"conversion_rate_mad_per_kwh": ConversionRate,
		"date_range": map[string]string{
			"start": start.String(),
			"end":   end.String(),
		},
		"data_completeness": 100.0,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
