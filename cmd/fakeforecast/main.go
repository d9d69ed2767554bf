// Command fakeforecast serves a deterministic stand-in for the PV forecast
// service, for local development of the dashboard.
//
// Usage:
//
//	go run ./cmd/fakeforecast -addr :5000
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/fakeservice"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	unloaded := flag.Bool("unloaded", false, "start without a model until /api/reload-model is called")
	lag := flag.Int("data-lag-days", 4, "days between today and the newest weather data")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, "text")

	srv := &http.Server{
		Addr: *addr,
		Handler: fakeservice.New(fakeservice.Options{
			ModelLoaded: !*unloaded,
			Logger:      logger,
			DataLagDays: *lag,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("fake forecast service listening", "addr", *addr, "model_loaded", !*unloaded)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
