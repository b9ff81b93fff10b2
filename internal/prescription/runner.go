package prescription

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fitlifekr/backend/internal/telemetry/metrics"
	"github.com/fitlifekr/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

type rawRecordsRepo interface {
	ListForTraining(ctx context.Context) ([]RawRecord, error)
}

type artifactSaver interface {
	Save(ctx context.Context, artifact *Artifact) error
}

// TrainRunner drives one full training run: pull the raw records from
// storage, train, persist the bundle. At most one run at a time; a
// failed or aborted run never touches the stored bundle.
type TrainRunner struct {
	repo      rawRecordsRepo
	store     artifactSaver
	metrics   *metrics.Manager
	inFlight  atomic.Bool
	trainFunc func(ctx context.Context, records []RawRecord) (*Artifact, error)
}

func NewTrainRunner(repo rawRecordsRepo, store artifactSaver, metricsManager *metrics.Manager) *TrainRunner {
	return &TrainRunner{
		repo:      repo,
		store:     store,
		metrics:   metricsManager,
		trainFunc: Train,
	}
}

// InProgress reports whether a run is currently executing.
func (r *TrainRunner) InProgress() bool {
	return r.inFlight.Load()
}

// Run executes one training run and returns the new bundle's metadata.
func (r *TrainRunner) Run(ctx context.Context) (_ *Meta, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prescription.trainrunner.run")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer r.inFlight.Store(false)

	defer func(begin time.Time) {
		if r.metrics == nil {
			return
		}
		r.metrics.HistTrainingRunTime.Observe(time.Since(begin).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		r.metrics.CounterTrainingRuns.WithLabelValues(outcome).Inc()
	}(time.Now())

	records, err := r.repo.ListForTraining(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records for training: %w", err)
	}
	log.Infof("training run: %d raw records loaded", len(records))

	artifact, err := r.trainFunc(ctx, records)
	if err != nil {
		// the stored bundle stays as-is on any failure, including an
		// empty dataset or an abort
		return nil, err
	}

	if err := r.store.Save(ctx, artifact); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	return &artifact.Meta, nil
}
