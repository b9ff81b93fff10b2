package prescription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fitlifekr/backend/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecordsRepo struct {
	records []RawRecord
	err     error
}

func (r *stubRecordsRepo) ListForTraining(_ context.Context) ([]RawRecord, error) {
	return r.records, r.err
}

type stubSaver struct {
	mu    sync.Mutex
	saved *Artifact
	err   error
}

func (s *stubSaver) Save(_ context.Context, artifact *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = artifact
	return nil
}

func TestTrainRunner_Run(t *testing.T) {
	repo := &stubRecordsRepo{records: trainingRecords(100)}
	saver := &stubSaver{}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	meta, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, ArtifactVersion, meta.Version)
	assert.Equal(t, 100, meta.NSamples)
	require.NotNil(t, saver.saved)
	assert.Equal(t, *meta, saver.saved.Meta)
	assert.False(t, runner.InProgress())
}

func TestTrainRunner_Run_RepoError(t *testing.T) {
	repo := &stubRecordsRepo{err: errors.New("db gone")}
	saver := &stubSaver{}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	_, err := runner.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, saver.saved)
}

func TestTrainRunner_Run_EmptyDataset(t *testing.T) {
	repo := &stubRecordsRepo{records: nil}
	saver := &stubSaver{}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyDataset)
	// a failed run never touches the stored bundle
	assert.Nil(t, saver.saved)
}

func TestTrainRunner_Run_SaveError(t *testing.T) {
	repo := &stubRecordsRepo{records: trainingRecords(100)}
	saver := &stubSaver{err: errors.New("disk full")}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	_, err := runner.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, runner.InProgress())
}

func TestTrainRunner_Run_Aborted(t *testing.T) {
	repo := &stubRecordsRepo{records: trainingRecords(100)}
	saver := &stubSaver{}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, ErrTrainingAborted)
	assert.Nil(t, saver.saved)
	assert.False(t, runner.InProgress())
}

func TestTrainRunner_SingleRunAtATime(t *testing.T) {
	repo := &stubRecordsRepo{records: trainingRecords(100)}
	saver := &stubSaver{}
	runner := NewTrainRunner(repo, saver, metrics.NewTestManager())

	started := make(chan struct{})
	release := make(chan struct{})
	runner.trainFunc = func(ctx context.Context, records []RawRecord) (*Artifact, error) {
		close(started)
		<-release
		return Train(ctx, records)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		errCh <- err
	}()

	<-started
	assert.True(t, runner.InProgress())

	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrTrainingInProgress)

	close(release)
	require.NoError(t, <-errCh)
	assert.False(t, runner.InProgress())
	assert.NotNil(t, saver.saved)
}
