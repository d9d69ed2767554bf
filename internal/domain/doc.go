// Package domain models a photovoltaic (PV) production forecast session.
//
// # Inputs
//
// A forecast run is keyed by a [Coordinate] and a [DateRange]. Both are
// validated locally before any request leaves the process:
//
//	latitude   [-90, 90]     NaN and ±Inf are rejected as out of range
//	longitude  [-180, 180]
//	start < end, end ≤ today, end − start ≤ 365 days
//
// Dates are calendar days with no time-of-day component. They travel on the
// wire as "YYYY-MM-DD" and are compared as UTC midnights, so a range from
// 2024-01-01 to 2024-12-31 spans 365 days and is accepted.
//
// # Results
//
// The forecasting service answers a run with three records that always move
// together: the per-day [PredictionRecord] sequence, a [SummaryRecord] with
// service-computed aggregates, and an opaque [MetadataRecord]. Weather fields
// on each prediction and every metadata key are carried through untouched so
// the export round trip sends back exactly what was received.
//
// [ComputeStatistics] recomputes totals and averages locally. Figures are
// rounded to two decimals, half away from zero (production and savings are
// never negative, so this is the usual round-half-up).
//
// # Errors
//
// Client-side failures are [*ValidationError] values whose Kind unwraps to
// one of the Err* sentinels, so callers can branch with errors.Is.
package domain
