package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// predictionRequest leaves range and date checks to the domain validators so
// their error kinds reach the caller. Dates stay raw until toForecast so a
// malformed one is reported against its own field.
type predictionRequest struct {
	Latitude  *float64        `json:"latitude" validate:"required"`
	Longitude *float64        `json:"longitude" validate:"required"`
	StartDate json.RawMessage `json:"start_date"`
	EndDate   json.RawMessage `json:"end_date"`
	Capacity  *float64        `json:"capacity,omitempty"`
}

func (p predictionRequest) toForecast() (forecast.PredictionRequest, error) {
	start, err := parseDateField("start_date", p.StartDate)
	if err != nil {
		return forecast.PredictionRequest{}, err
	}
	end, err := parseDateField("end_date", p.EndDate)
	if err != nil {
		return forecast.PredictionRequest{}, err
	}
	return forecast.PredictionRequest{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		StartDate: start,
		EndDate:   end,
		Capacity:  p.Capacity,
	}, nil
}

// parseDateField decodes one date value. An absent, null or empty value is
// the zero Date, which range validation reports as missing.
func parseDateField(field string, raw json.RawMessage) (domain.Date, error) {
	var d domain.Date
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.Date{}, &domain.ValidationError{
			Kind:    domain.KindMissingField,
			Field:   field,
			Message: fmt.Sprintf("must be a %s date, got %s", domain.DateLayout, raw),
		}
	}
	return d, nil
}

// numericFields are range-checked downstream; a value of the wrong JSON type
// is reported as out of range rather than as a malformed body.
var numericFields = map[string]bool{
	"latitude":  true,
	"longitude": true,
	"capacity":  true,
}

// bind decodes a JSON request body into v and checks its struct tags.
// Failures come back as validation errors.
func bind(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}

	err := validate.Struct(v)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.ValidationError{
			Kind:    domain.KindMissingField,
			Field:   fe.Field(),
			Message: "is required",
		}
	}
	return err
}

func decodeError(err error) *domain.ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		if numericFields[typeErr.Field] {
			return &domain.ValidationError{
				Kind:    domain.KindOutOfRange,
				Field:   typeErr.Field,
				Message: fmt.Sprintf("must be a number, got %s", typeErr.Value),
			}
		}
		return &domain.ValidationError{
			Kind:    domain.KindMissingField,
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be of type %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &domain.ValidationError{
		Kind:    domain.KindMissingField,
		Field:   "body",
		Message: fmt.Sprintf("invalid JSON: %v", err),
	}
}
