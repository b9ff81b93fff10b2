package prescription

import "errors"

var (
	// ErrInvalidInput - the caller supplied an unusable query (e.g. non-positive height).
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyDataset - no usable training examples survived filtering.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrArtifactNotFound - no complete model artifact bundle in the store.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrModelUnavailable - no artifact loaded and lazy load failed.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrVocabularyMismatch - stored artifact was trained with a different tag vocabulary.
	ErrVocabularyMismatch = errors.New("artifact tag vocabulary mismatch")
	// ErrTrainingAborted - the training run was aborted through its context.
	ErrTrainingAborted = errors.New("training aborted")
	// ErrTrainingInProgress - another training run is already running.
	ErrTrainingInProgress = errors.New("training already in progress")
)
