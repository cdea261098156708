// Command auditrail serves the audit log query and manual log API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/auditrail/internal/api"
	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/config"
	"github.com/persistorai/auditrail/internal/db"
	"github.com/persistorai/auditrail/internal/dbpool"
	"github.com/persistorai/auditrail/internal/service"
	"github.com/persistorai/auditrail/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		log.WithError(err).Fatal("auditrail exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(level)

	captureOpts, err := config.LoadCaptureOptions(cfg.AuditConfigFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, nil); err != nil {
		return err
	}

	auditStore := store.NewAuditStore(store.Base{Pool: pool, Log: log})
	capturer := capture.NewCapturer(capture.NewRegistry(log), auditStore, captureOpts, log)
	worker := service.NewAuditWorker(auditStore, log, cfg.AuditQueueSize, cfg.AuditFlushRetries)
	svc := service.NewAuditService(auditStore, capturer, log, service.WithRetryQueue(worker))

	apiSrv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(&api.RouterDeps{
			Log:         log,
			DB:          api.PoolChecker{Pool: pool},
			Audit:       svc,
			CORSOrigins: cfg.CORSOrigins,
			Version:     config.Version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":           cfg.Addr(),
		"metrics_addr":   cfg.MetricsAddr(),
		"version":        config.Version,
		"schema_version": db.SchemaVersion(),
		"capture":        captureOpts.EnableAutomaticLogging,
	}).Info("starting auditrail")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	for _, srv := range []*http.Server{apiSrv, metricsSrv} {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("shutting down")

		return errors.Join(apiSrv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
