package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitlifekr/backend/internal/config"
	"github.com/fitlifekr/backend/internal/db"
	"github.com/fitlifekr/backend/internal/fitness"
	"github.com/fitlifekr/backend/internal/logging"
	"github.com/fitlifekr/backend/internal/prescription"
	"github.com/fitlifekr/backend/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// trainer is a one-shot batch job: load fitness test results from
// postgres, train an exercise prescription model, and persist the
// artifact bundle to the model dir the main service reads from.
func main() {
	fmt.Println("starting trainer ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	timeout := flag.Duration("timeout", 30*time.Minute, "abort the training run after this duration")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   true,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: false,
		Environment:   cfg.Environment,
		SentryEnabled: false,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		receivedSig := <-chOsInterrupt
		log.Warnf("signal [%s] received, aborting training ...", receivedSig)
		cancel()
	}()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	store, err := prescription.NewFileStore(cfg.ModelDir)
	if err != nil {
		log.Fatalf("new model store: %s", err)
	}

	runner := prescription.NewTrainRunner(
		fitness.NewRepo(dbPool),
		store,
		metrics.NewManager("backend", "trainer", prometheus.NewRegistry()),
	)

	startedAt := time.Now()
	meta, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("training run failed: %s", err)
	}

	log.Infof("training done in %s", time.Since(startedAt))
	log.Infof("  version:   %s", meta.Version)
	log.Infof("  samples:   %d", meta.NSamples)
	log.Infof("  micro f1:  %.4f", meta.CVResults.MicroF1)
	log.Infof("  macro f1:  %.4f", meta.CVResults.MacroF1)
	log.Infof("artifacts saved to: %s", cfg.ModelDir)
}
