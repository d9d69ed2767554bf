package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a client-side validation failure.
type Kind string

const (
	KindOutOfRange    Kind = "out_of_range"
	KindMissingField  Kind = "missing_field"
	KindOrderError    Kind = "order_error"
	KindFutureDate    Kind = "future_date"
	KindRangeTooLarge Kind = "range_too_large"
	KindEmptyDataset  Kind = "empty_dataset"
)

// Sentinels matched by errors.Is against any *ValidationError of that kind.
var (
	ErrOutOfRange    = errors.New("value out of range")
	ErrMissingField  = errors.New("required field missing")
	ErrOrderError    = errors.New("start date must be before end date")
	ErrFutureDate    = errors.New("end date is in the future")
	ErrRangeTooLarge = errors.New("date range too large")
	ErrEmptyDataset  = errors.New("no prediction data")
)

var kindSentinels = map[Kind]error{
	KindOutOfRange:    ErrOutOfRange,
	KindMissingField:  ErrMissingField,
	KindOrderError:    ErrOrderError,
	KindFutureDate:    ErrFutureDate,
	KindRangeTooLarge: ErrRangeTooLarge,
	KindEmptyDataset:  ErrEmptyDataset,
}

// ValidationError is a failure detected before any network call.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return kindSentinels[e.Kind]
}

func newValidationError(kind Kind, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// EmptyDatasetError reports an operation that needs predictions but has none.
func EmptyDatasetError() *ValidationError {
	return newValidationError(KindEmptyDataset, "predictions", "no prediction data to export")
}
