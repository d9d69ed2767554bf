// Package session holds the state of one interactive forecast session: the
// latest prediction run and the most recent error. The three records of a run
// are only ever replaced together.
package session

import (
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
)

// State is the store's macro-state.
type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// Ticket identifies one prediction request. Outcomes presented with a ticket
// older than the newest one issued are discarded.
type Ticket struct {
	generation uint64
}

// Snapshot is an immutable copy of the session at one point in time.
type Snapshot struct {
	State       State
	Predictions []domain.PredictionRecord
	Summary     *domain.SummaryRecord
	Metadata    domain.MetadataRecord
	UpdatedAt   time.Time
	Err         error
}

// Populated reports whether the snapshot holds a prediction run.
func (s Snapshot) Populated() bool { return s.State == StatePopulated }

// Statistics recomputes aggregates from the snapshot's predictions. The
// second result is false when the snapshot is empty.
func (s Snapshot) Statistics() (domain.Statistics, bool) {
	return domain.ComputeStatistics(s.Predictions)
}

// EffectiveSummary returns the service summary, or one derived from the
// predictions when the service sent none. Nil when empty.
func (s Snapshot) EffectiveSummary() *domain.SummaryRecord {
	if s.Summary != nil {
		return s.Summary
	}
	stats, ok := s.Statistics()
	if !ok {
		return nil
	}
	return stats.Summary()
}

// Store owns the session state. All mutation goes through its methods.
type Store struct {
	mu          sync.RWMutex
	predictions []domain.PredictionRecord
	summary     *domain.SummaryRecord
	metadata    domain.MetadataRecord
	updatedAt   time.Time
	err         error

	issued uint64 // newest ticket handed out or invalidated by Clear

	metrics *observability.Metrics
}

// NewStore creates an empty store.
func NewStore(metrics *observability.Metrics) *Store {
	return &Store{metrics: metrics}
}

// Begin issues a ticket for a new prediction request, superseding all
// earlier ones.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket{generation: s.issued}
}

// Apply replaces the held run with res and clears the error slot. It returns
// false, leaving the store untouched, when t has been superseded.
func (s *Store) Apply(t Ticket, res domain.PredictionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.issued {
		s.metrics.StaleResponses.Inc()
		return false
	}
	s.replaceLocked(res)
	return true
}

// Fail records err in the error slot without touching held data. It returns
// false when t has been superseded.
func (s *Store) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.generation != s.issued {
		s.metrics.StaleResponses.Inc()
		return false
	}
	s.err = err
	return true
}

func (s *Store) replaceLocked(res domain.PredictionResult) {
	s.predictions = clonePredictions(res.Predictions)
	s.summary = cloneSummary(res.Summary)
	s.metadata = cloneMetadata(res.Metadata)
	s.updatedAt = domain.Now()
	s.err = nil
	s.setPopulatedGauge()
}

// Clear empties the store and the error slot. Requests still in flight are
// superseded so their outcomes cannot repopulate it.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.predictions = nil
	s.summary = nil
	s.metadata = nil
	s.updatedAt = domain.Now()
	s.err = nil
	s.setPopulatedGauge()
}

// SetError records the failure of an operation that holds no ticket.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ClearError empties the error slot after a successful operation.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Err returns the current error slot.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// State returns the current macro-state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	if len(s.predictions) == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Snapshot returns a copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:       s.stateLocked(),
		Predictions: clonePredictions(s.predictions),
		Summary:     cloneSummary(s.summary),
		Metadata:    cloneMetadata(s.metadata),
		UpdatedAt:   s.updatedAt,
		Err:         s.err,
	}
}

func (s *Store) setPopulatedGauge() {
	if s.stateLocked() == StatePopulated {
		s.metrics.SessionPopulated.Set(1)
	} else {
		s.metrics.SessionPopulated.Set(0)
	}
}

func clonePredictions(in []domain.PredictionRecord) []domain.PredictionRecord {
	if in == nil {
		return nil
	}
	out := make([]domain.PredictionRecord, len(in))
	for i, r := range in {
		r.Weather = append(json.RawMessage(nil), r.Weather...)
		out[i] = r
	}
	return out
}

func cloneSummary(in *domain.SummaryRecord) *domain.SummaryRecord {
	if in == nil {
		return nil
	}
	c := *in
	return &c
}

// cloneMetadata copies the top level; nested values are shared but never
// mutated by this package.
func cloneMetadata(in domain.MetadataRecord) domain.MetadataRecord {
	return maps.Clone(in)
}
