// Command pvctl runs single forecast operations from the terminal, using the
// same validation, normalization, and export path as the dashboard.
//
// Usage:
//
//	pvctl [-api http://localhost:5000] health
//	pvctl model-metrics
//	pvctl model-health
//	pvctl locate -lat 33.5731 -lng -7.5898
//	pvctl predict -lat 33.5731 -lng -7.5898 -start 2024-01-01 -end 2024-01-10 [-capacity 5] [-export exports]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/export"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/session"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pvctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", sharedcfg.EnvOrDefault("FORECAST_API_URL", "http://localhost:5000"), "forecast service base URL")
	timeout := fs.Duration("timeout", 0, "per-request timeout (0 disables)")
	verbose := fs.Bool("v", false, "log every request")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, "text")
	// Unregistered: the CLI serves no /metrics.
	metrics := observability.NewMetricsForTesting()

	client := forecastapi.NewClient(*api, *timeout, metrics, logger)
	svc := forecast.NewService(client, metrics, logger)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "health":
		err = printResult[forecast.Health](stdout)(svc.CheckHealth(ctx))
	case "model-metrics":
		var m forecast.ModelMetrics
		if m, err = svc.GetModelMetrics(ctx); err == nil {
			err = printJSON(stdout, m.Raw)
		}
	case "model-health":
		err = printResult[forecast.ModelHealth](stdout)(svc.GetModelHealth(ctx))
	case "locate":
		err = locate(ctx, svc, rest, stdout, stderr)
	case "predict":
		err = predict(ctx, svc, metrics, logger, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func locate(ctx context.Context, svc *forecast.Service, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.String("lat", "", "latitude")
	lng := fs.String("lng", "", "longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := domain.ParseCoordinate(*lat, *lng)
	if err != nil {
		return err
	}
	a, err := svc.ValidateLocationRemotely(ctx, c.Latitude, c.Longitude)
	if err != nil {
		return err
	}
	return printJSON(stdout, a.Raw)
}

// parsePrediction turns predict flags into a request. Every malformed value
// is reported as a *domain.ValidationError naming its field.
func parsePrediction(lat, lng, start, end, capacity string) (forecast.PredictionRequest, error) {
	c, err := domain.ParseCoordinate(lat, lng)
	if err != nil {
		return forecast.PredictionRequest{}, err
	}
	req := forecast.PredictionRequest{
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		StartDate: domain.ParseDate(start),
		EndDate:   domain.ParseDate(end),
	}
	if capacity != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(capacity), 64)
		if err != nil {
			return forecast.PredictionRequest{}, &domain.ValidationError{
				Kind:    domain.KindOutOfRange,
				Field:   "capacity",
				Message: fmt.Sprintf("must be a number of kWp, got %q", capacity),
			}
		}
		req.Capacity = &v
	}
	return req, nil
}

func predict(ctx context.Context, svc *forecast.Service, metrics *observability.Metrics, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.String("lat", "", "latitude")
	lng := fs.String("lng", "", "longitude")
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	capacity := fs.String("capacity", "", "system capacity in kWp (service default when empty)")
	exportDir := fs.String("export", "", "save the run as a workbook into this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := parsePrediction(*lat, *lng, *start, *end, *capacity)
	if err != nil {
		return err
	}

	store := session.NewStore(metrics)
	exporter := export.NewExporter(svc, store, export.DirSaver{Dir: *exportDir}, "", metrics, logger)
	ctrl := dashboard.NewController(svc, svc, store, exporter, nil, metrics, logger)

	if _, err := ctrl.Predict(ctx, req); err != nil {
		return err
	}

	view := ctrl.Session()
	if view.Statistics == nil {
		fmt.Fprintln(stdout, "service returned no predictions")
		return nil
	}
	st := view.Statistics
	fmt.Fprintf(stdout, "%s to %s (%d days)\n", st.FirstDate, st.LastDate, st.Days)
	fmt.Fprintf(stdout, "  total production: %.2f kWh\n", st.TotalProductionKWh)
	fmt.Fprintf(stdout, "  total savings:    %.2f MAD\n", st.TotalSavingsMAD)
	fmt.Fprintf(stdout, "  daily average:    %.2f kWh / %.2f MAD\n", st.AvgDailyProductionKWh, st.AvgDailySavingsMAD)

	if *exportDir == "" {
		return nil
	}
	res, err := ctrl.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved %s (%d bytes)\n", res.Path, res.Bytes)
	return nil
}

func printResult[T any](w io.Writer) func(T, error) error {
	return func(v T, err error) error {
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return printResult[any](w)(v, nil)
}

