package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fitlifekr/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Bundle blob names. The four files together are the unit of storage;
// a directory holding only some of them is not a usable artifact.
const (
	preprocessFileName = "prescriptor_preprocess.json"
	classifierFileName = "prescriptor_ovr_lr.json"
	knnFileName        = "prescriptor_knn.json"
	metaFileName       = "prescriptor_meta.json"
)

// FileStore persists the artifact bundle as four co-located JSON blobs
// under one directory. Save stages the whole bundle into a sibling
// directory first and promotes it with a rename, so a crashed save
// leaves either the old complete bundle or a missing one - never a
// mixed state that Load would accept.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("model dir cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("create model dir parent: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the full bundle, replacing any previous one wholesale.
func (fs *FileStore) Save(ctx context.Context, artifact *Artifact) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "prescription.store.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	stagingDir := fs.dir + ".staging"
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(stagingDir); rmErr != nil {
			err = multierr.Append(err, rmErr)
		}
	}()

	blobs := map[string]any{
		preprocessFileName: artifact.Preprocessor,
		classifierFileName: artifact.Classifier,
		knnFileName:        artifact.Neighbors,
		metaFileName:       artifact.Meta,
	}
	for name, blob := range blobs {
		if err := writeJSONFile(filepath.Join(stagingDir, name), blob); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	oldDir := fs.dir + ".old"
	if err := os.RemoveAll(oldDir); err != nil {
		return fmt.Errorf("clear old bundle dir: %w", err)
	}
	if _, statErr := os.Stat(fs.dir); statErr == nil {
		if err := os.Rename(fs.dir, oldDir); err != nil {
			return fmt.Errorf("move previous bundle aside: %w", err)
		}
	}
	if err := os.Rename(stagingDir, fs.dir); err != nil {
		return fmt.Errorf("promote staged bundle: %w", err)
	}
	if err := os.RemoveAll(oldDir); err != nil {
		log.Warnf("failed to remove previous bundle dir: %s", err)
	}

	log.Infof("prescription model artifact saved to %s", fs.dir)
	return nil
}

// Load reads the bundle back. A partially present bundle is
// ErrArtifactNotFound, and a bundle trained with a different tag
// vocabulary is ErrVocabularyMismatch - serving it would attach wrong
// labels to every score.
func (fs *FileStore) Load(ctx context.Context) (_ *Artifact, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "prescription.store.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	for _, name := range []string{preprocessFileName, classifierFileName, knnFileName, metaFileName} {
		if _, err := os.Stat(filepath.Join(fs.dir, name)); err != nil {
			return nil, fmt.Errorf("%w: missing %s", ErrArtifactNotFound, name)
		}
	}

	artifact := &Artifact{
		Preprocessor: &Preprocessor{},
		Classifier:   &OneVsRestLogistic{},
		Neighbors:    &KNNModel{},
	}
	if err := readJSONFile(filepath.Join(fs.dir, preprocessFileName), artifact.Preprocessor); err != nil {
		return nil, fmt.Errorf("read preprocess blob: %w", err)
	}
	if err := readJSONFile(filepath.Join(fs.dir, classifierFileName), artifact.Classifier); err != nil {
		return nil, fmt.Errorf("read classifier blob: %w", err)
	}
	if err := readJSONFile(filepath.Join(fs.dir, knnFileName), artifact.Neighbors); err != nil {
		return nil, fmt.Errorf("read knn blob: %w", err)
	}
	if err := readJSONFile(filepath.Join(fs.dir, metaFileName), &artifact.Meta); err != nil {
		return nil, fmt.Errorf("read meta blob: %w", err)
	}

	if !tagListsEqual(artifact.Meta.Tags, VocabularyTagIDs()) {
		return nil, fmt.Errorf(
			"%w: artifact trained with %d tags, vocabulary has %d",
			ErrVocabularyMismatch, len(artifact.Meta.Tags), len(Vocabulary),
		)
	}

	return artifact, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func tagListsEqual(a, b []TagID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
