package prescription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fitlifekr/backend/internal/telemetry/metrics"
	"github.com/fitlifekr/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultTopK         = 3
	MaxTopK             = 10
	DefaultConfidenceTr = 0.55
)

// PredictionQuery is one recommendation request.
type PredictionQuery struct {
	HeightCm            float64 `json:"heightCm"`
	WeightKg            float64 `json:"weightKg"`
	TopK                int     `json:"topK"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// Validate normalizes defaults and rejects unusable values before any
// model access.
func (q *PredictionQuery) Validate() error {
	if q.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidInput)
	}
	if q.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK < 1 || q.TopK > MaxTopK {
		return fmt.Errorf("%w: topK must be in [1, %d]", ErrInvalidInput, MaxTopK)
	}
	if q.ConfidenceThreshold < 0 || q.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold must be in [0, 1]", ErrInvalidInput)
	}
	return nil
}

// Candidate is one ranked recommendation.
type Candidate struct {
	Tag         TagID   `json:"tag"`
	PresNote    string  `json:"presNote"`
	Probability float64 `json:"prob"`
}

type artifactLoader interface {
	Load(ctx context.Context) (*Artifact, error)
}

// Service serves ranked exercise-tag recommendations from the loaded
// model artifact. The artifact reference is swapped atomically on
// reload, so concurrent predictions always see either the fully-old
// or the fully-new bundle. Predictions themselves only read the
// bundle; no locking on the hot path.
type Service struct {
	loader   artifactLoader
	metrics  *metrics.Manager
	artifact atomic.Pointer[Artifact]
	loadMu   sync.Mutex
}

func NewService(loader artifactLoader, metricsManager *metrics.Manager) *Service {
	return &Service{
		loader:  loader,
		metrics: metricsManager,
	}
}

// Loaded reports whether an artifact is currently published.
func (s *Service) Loaded() bool {
	return s.artifact.Load() != nil
}

// Reload loads a fresh artifact from the store and publishes it with a
// single pointer swap. In-flight predictions keep the bundle they
// started with.
func (s *Service) Reload(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prescription.service.reload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	artifact, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}

	s.artifact.Store(artifact)
	if s.metrics != nil {
		s.metrics.CounterModelReloads.Inc()
		s.metrics.GaugeModelLoaded.Set(1)
	}
	log.Infof(
		"prescription model loaded: version=%s, n_samples=%d, cv_micro_f1=%.4f",
		artifact.Meta.Version, artifact.Meta.NSamples, artifact.Meta.CVResults.MicroF1,
	)
	return nil
}

// currentArtifact returns the published bundle, attempting one lazy
// load when nothing is published yet.
func (s *Service) currentArtifact(ctx context.Context) (*Artifact, error) {
	if artifact := s.artifact.Load(); artifact != nil {
		return artifact, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if artifact := s.artifact.Load(); artifact != nil {
		return artifact, nil
	}

	if err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, err)
	}
	return s.artifact.Load(), nil
}

// Predict computes the hybrid score for every vocabulary tag and
// returns the top-K candidates at or above the confidence threshold,
// sorted by descending score with ties broken by vocabulary order.
// Pure for a fixed artifact: identical queries yield identical
// results.
func (s *Service) Predict(ctx context.Context, query PredictionQuery) (_ []Candidate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prescription.service.predict")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := query.Validate(); err != nil {
		return nil, err
	}

	defer func(begin time.Time) {
		if s.metrics != nil {
			s.metrics.HistPredictDuration.Observe(time.Since(begin).Seconds())
		}
	}(time.Now())

	artifact, err := s.currentArtifact(ctx)
	if err != nil {
		return nil, err
	}

	// bucket boundaries come from the artifact, not a hardcoded copy:
	// they must match whatever the model was trained with
	features := BuildFeatures(query.HeightCm, query.WeightKg, artifact.Meta.BMIBins)
	span.SetAttributes(attribute.Float64("bmi", features.BMI))

	row := artifact.Preprocessor.TransformRow(features)

	scores := artifact.Classifier.PredictProba(row)
	for j := range scores {
		scores[j] = clip(scores[j], probaClipLo, probaClipHi)
	}

	knnScores, ok := artifact.Neighbors.Scores(row, len(scores))
	if ok {
		for j := range scores {
			scores[j] = logisticScoreWeight*scores[j] + neighborScoreWeight*knnScores[j]
		}
	} else {
		// bundle carries no training label matrix; serve from the
		// logistic signal alone and make the degradation visible
		log.Warnf("neighbor label matrix unavailable, serving logistic-only scores")
		if s.metrics != nil {
			s.metrics.CounterDegradedPrediction.Inc()
		}
	}

	order := make([]int, len(scores))
	for j := range order {
		order[j] = j
	}
	// stable keeps vocabulary order for equal scores
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	candidates := make([]Candidate, 0, query.TopK)
	for _, j := range order {
		if len(candidates) == query.TopK {
			break
		}
		if scores[j] < query.ConfidenceThreshold {
			break
		}
		tag := artifact.Meta.Tags[j]
		candidates = append(candidates, Candidate{
			Tag:         tag,
			PresNote:    TagLabel(tag),
			Probability: scores[j],
		})
	}

	if s.metrics != nil {
		s.metrics.CounterPredictions.WithLabelValues("ok").Inc()
	}
	return candidates, nil
}
