// Package export drives the spreadsheet round trip: the held prediction run
// is sent back to the forecast service and the returned workbook is saved
// locally under the name the service suggests.
package export

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/session"
)

// DefaultFilename is used when the service suggests no usable name.
const DefaultFilename = "pv_predictions.xlsx"

// ArtifactSource produces an export workbook from a prediction run.
type ArtifactSource interface {
	ExportPredictions(ctx context.Context, predictions []domain.PredictionRecord, summary *domain.SummaryRecord, metadata domain.MetadataRecord) (domain.ExportArtifact, error)
}

// SnapshotReader exposes the current session contents.
type SnapshotReader interface {
	Snapshot() session.Snapshot
}

// Result describes a saved export.
type Result struct {
	Filename string        `json:"filename"`
	Path     string        `json:"path"`
	Bytes    int           `json:"bytes"`
	Workbook *WorkbookInfo `json:"workbook,omitempty"`
}

// Exporter runs export round trips against the session store.
type Exporter struct {
	source   ArtifactSource
	store    SnapshotReader
	saver    Saver
	fallback string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewExporter creates an Exporter. An empty fallback uses DefaultFilename.
func NewExporter(source ArtifactSource, store SnapshotReader, saver Saver, fallback string, metrics *observability.Metrics, logger *slog.Logger) *Exporter {
	if fallback == "" {
		fallback = DefaultFilename
	}
	return &Exporter{
		source:   source,
		store:    store,
		saver:    saver,
		fallback: fallback,
		metrics:  metrics,
		logger:   logger,
	}
}

// Export sends the held run to the service and saves the workbook. It fails
// with an EmptyDataset validation error, without a request, when the store
// is empty; with the transport error when the service fails; and with a
// *SaveError when the file cannot be stored.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	snap := e.store.Snapshot()
	if !snap.Populated() {
		e.metrics.Exports.WithLabelValues("empty").Inc()
		return Result{}, domain.EmptyDatasetError()
	}

	art, err := e.source.ExportPredictions(ctx, snap.Predictions, snap.Summary, snap.Metadata)
	if err != nil {
		e.metrics.Exports.WithLabelValues("transport_error").Inc()
		return Result{}, err
	}

	name := ResolveFilename(art.Header.Get("Content-Disposition"), e.fallback)
	path, err := e.saver.Save(name, art.Data)
	if err != nil {
		e.metrics.Exports.WithLabelValues("save_error").Inc()
		e.logger.Error("export save failed", "filename", name, "error", err)
		return Result{}, &SaveError{Filename: name, Err: err}
	}

	e.metrics.Exports.WithLabelValues("saved").Inc()
	e.metrics.ExportBytes.Observe(float64(len(art.Data)))

	res := Result{Filename: name, Path: path, Bytes: len(art.Data)}
	if info, err := InspectWorkbook(art.Data); err != nil {
		e.logger.Warn("saved export is not a readable workbook", "path", path, "error", err)
	} else {
		res.Workbook = &info
		e.logger.Info("export saved", "path", path, "bytes", res.Bytes, "sheets", len(info.Sheets), "rows", info.Rows("Predictions"))
	}
	return res, nil
}
