package forecastapi

import "fmt"

// TransportError is any failure at the forecast service boundary.
// Status 0 means no response was obtained at all.
type TransportError struct {
	Message  string
	Status   int
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unreachable reports whether the service could not be reached.
func (e *TransportError) Unreachable() bool { return e.Status == 0 }
