package prescription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fitlifekr/backend/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubLoader struct {
	mu       sync.Mutex
	artifact *Artifact
	err      error
	loads    int
}

func (l *stubLoader) Load(_ context.Context) (*Artifact, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	return l.artifact, nil
}

// serviceArtifact returns a fixed bundle where tag columns map to the
// vocabulary and scores are easy to reason about: identity-ish
// preprocessing and strongly opinionated per-tag logistic models.
func serviceArtifact() *Artifact {
	numTags := len(Vocabulary)

	models := make([]LogisticModel, numTags)
	for j := range models {
		// tag j likes tall people, with falling enthusiasm per tag
		models[j] = LogisticModel{
			Weights: []float64{2 - float64(j)*0.4, 0, 0, 0},
			Bias:    -float64(j) * 0.5,
		}
	}

	return &Artifact{
		Preprocessor: &Preprocessor{
			Means:      []float64{170, 70, 24},
			Stds:       []float64{10, 15, 4},
			Categories: []int{3},
		},
		Classifier: &OneVsRestLogistic{Models: models, NumFeatures: 4},
		Neighbors: &KNNModel{
			K: 2,
			X: [][]float64{
				{1, 0, 0.05, 1},
				{-1, 0, -0.05, 0},
			},
			Y: [][]float64{
				onehotRow(0),
				onehotRow(1),
			},
		},
		Meta: Meta{
			Version:  ArtifactVersion,
			Tags:     VocabularyTagIDs(),
			BMIBins:  DefaultBMIBoundaries,
			NSamples: 2,
		},
	}
}

func onehotRow(j int) []float64 {
	row := make([]float64, len(Vocabulary))
	row[j] = 1
	return row
}

func TestPredictionQuery_Validate(t *testing.T) {
	q := PredictionQuery{HeightCm: 170, WeightKg: 70}
	require.NoError(t, q.Validate())
	assert.Equal(t, DefaultTopK, q.TopK)

	for name, query := range map[string]PredictionQuery{
		"zero height":      {HeightCm: 0, WeightKg: 70},
		"negative height":  {HeightCm: -170, WeightKg: 70},
		"zero weight":      {HeightCm: 170, WeightKg: 0},
		"negative topK":    {HeightCm: 170, WeightKg: 70, TopK: -1},
		"topK too large":   {HeightCm: 170, WeightKg: 70, TopK: MaxTopK + 1},
		"threshold low":    {HeightCm: 170, WeightKg: 70, ConfidenceThreshold: -0.1},
		"threshold high":   {HeightCm: 170, WeightKg: 70, ConfidenceThreshold: 1.1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, query.Validate(), ErrInvalidInput)
		})
	}
}

func TestService_Predict(t *testing.T) {
	service := NewService(&stubLoader{artifact: serviceArtifact()}, metrics.NewTestManager())

	candidates, err := service.Predict(context.Background(), PredictionQuery{
		HeightCm: 185,
		WeightKg: 80,
		TopK:     3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.LessOrEqual(t, len(candidates), 3)

	// descending scores, labels resolved from the vocabulary
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Probability, candidates[i].Probability)
	}
	for _, c := range candidates {
		assert.Equal(t, TagLabel(c.Tag), c.PresNote)
		assert.GreaterOrEqual(t, c.Probability, 0.0)
		assert.LessOrEqual(t, c.Probability, 1.0)
	}
}

func TestService_Predict_Deterministic(t *testing.T) {
	service := NewService(&stubLoader{artifact: serviceArtifact()}, metrics.NewTestManager())

	query := PredictionQuery{HeightCm: 172.5, WeightKg: 68.2, TopK: 5}
	first, err := service.Predict(context.Background(), query)
	require.NoError(t, err)
	second, err := service.Predict(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestService_Predict_ThresholdFilters(t *testing.T) {
	service := NewService(&stubLoader{artifact: serviceArtifact()}, metrics.NewTestManager())
	ctx := context.Background()
	query := PredictionQuery{HeightCm: 185, WeightKg: 80, TopK: MaxTopK}

	all, err := service.Predict(ctx, query)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	// raising the threshold can only shrink the candidate list
	query.ConfidenceThreshold = all[0].Probability
	strict, err := service.Predict(ctx, query)
	require.NoError(t, err)
	assert.Less(t, len(strict), len(all)+1)
	for _, c := range strict {
		assert.GreaterOrEqual(t, c.Probability, query.ConfidenceThreshold)
	}

	// a threshold above every score yields no candidates at all
	query.ConfidenceThreshold = 1.0
	none, err := service.Predict(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Predict_InvalidInput(t *testing.T) {
	loader := &stubLoader{artifact: serviceArtifact()}
	service := NewService(loader, metrics.NewTestManager())

	_, err := service.Predict(context.Background(), PredictionQuery{HeightCm: -1, WeightKg: 70})
	assert.ErrorIs(t, err, ErrInvalidInput)
	// validation failures never touch the store
	assert.Equal(t, 0, loader.loads)
}

func TestService_Predict_ModelUnavailable(t *testing.T) {
	service := NewService(&stubLoader{err: ErrArtifactNotFound}, metrics.NewTestManager())

	_, err := service.Predict(context.Background(), PredictionQuery{HeightCm: 170, WeightKg: 70})
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, service.Loaded())
}

func TestService_Predict_DegradedWithoutNeighborLabels(t *testing.T) {
	artifact := serviceArtifact()
	artifact.Neighbors.Y = nil
	manager, registry := metrics.NewTestManagerAndRegistry()
	service := NewService(&stubLoader{artifact: artifact}, manager)

	candidates, err := service.Predict(context.Background(), PredictionQuery{
		HeightCm: 185, WeightKg: 80, TopK: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)

	mfs, err := registry.Gather()
	require.NoError(t, err)
	var degraded float64
	for _, mf := range mfs {
		if mf.GetName() == "backend_test_server_prescription_predictions_degraded" {
			degraded = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, degraded)
}

func TestService_LazyLoadOnce(t *testing.T) {
	loader := &stubLoader{artifact: serviceArtifact()}
	service := NewService(loader, metrics.NewTestManager())
	assert.False(t, service.Loaded())

	ctx := context.Background()
	query := PredictionQuery{HeightCm: 170, WeightKg: 70}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Predict(ctx, query)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, service.Loaded())
	assert.Equal(t, 1, loader.loads)
}

func TestService_Reload(t *testing.T) {
	loader := &stubLoader{artifact: serviceArtifact()}
	service := NewService(loader, metrics.NewTestManager())

	require.NoError(t, service.Reload(context.Background()))
	assert.True(t, service.Loaded())

	loader.mu.Lock()
	loader.err = errors.New("disk gone")
	loader.mu.Unlock()

	// a failed reload keeps the previously published bundle
	assert.Error(t, service.Reload(context.Background()))
	assert.True(t, service.Loaded())

	_, err := service.Predict(context.Background(), PredictionQuery{HeightCm: 170, WeightKg: 70})
	assert.NoError(t, err)
}

func TestService_ConcurrentPredictAndReload(t *testing.T) {
	loader := &stubLoader{artifact: serviceArtifact()}
	service := NewService(loader, metrics.NewTestManager())
	require.NoError(t, service.Reload(context.Background()))

	ctx := context.Background()
	query := PredictionQuery{HeightCm: 170, WeightKg: 70}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				_, err := service.Predict(ctx, query)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 10; n++ {
				assert.NoError(t, service.Reload(ctx))
			}
		}()
	}
	wg.Wait()
}
