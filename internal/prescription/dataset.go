package prescription

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Plausible measurement bounds. Rows outside are data-entry errors in
// the public dataset, not signal.
const (
	MinHeightCm = 120
	MaxHeightCm = 220
	MinWeightKg = 30
	MaxWeightKg = 250
	MinBMI      = 10
	MaxBMI      = 60

	// MinTrainingSamples - below this the preparer refuses to yield a
	// dataset; a model fit on a handful of rows is noise.
	MinTrainingSamples = 10
)

// RawRecord is one measurement row as the ingestion collaborator
// stores it: measurement values arrive as strings from the public
// dataset and get parsed here.
type RawRecord struct {
	ID       int
	HeightCm string
	WeightKg string
	PresNote string

	// measurement metadata, not used as model input
	AgeClass string
	TestSex  string
	TestYM   string
}

// TrainingExample is a cleaned, labeled row. Tags is never empty -
// unlabeled rows are dropped by the preparer.
type TrainingExample struct {
	Features FeatureVector
	Tags     []TagID
}

// Dataset holds the prepared training matrices. X columns follow
// FeatureVector.row() order; Y has one multi-hot column per
// vocabulary tag.
type Dataset struct {
	X        *mat.Dense
	Y        *mat.Dense
	Tags     []TagID
	Examples []TrainingExample
}

func (d *Dataset) Len() int {
	return len(d.Examples)
}

// PrepareDataset cleans the raw records and yields the training
// matrices. Rows with missing or unparsable height, weight or note,
// rows outside plausible measurement bounds and rows with no
// extractable tag are dropped. Returns ErrEmptyDataset when fewer
// than MinTrainingSamples rows survive.
func PrepareDataset(records []RawRecord) (*Dataset, error) {
	examples := make([]TrainingExample, 0, len(records))
	for _, rec := range records {
		heightCm, weightKg, ok := parseMeasurements(rec)
		if !ok {
			continue
		}

		features := BuildFeatures(heightCm, weightKg, DefaultBMIBoundaries)
		if features.BMI < MinBMI || features.BMI > MaxBMI {
			continue
		}

		tags := ExtractTags(rec.PresNote)
		if len(tags) == 0 {
			continue
		}

		examples = append(examples, TrainingExample{
			Features: features,
			Tags:     tags,
		})
	}

	log.Debugf("dataset: %d of %d raw records usable", len(examples), len(records))

	if len(examples) < MinTrainingSamples {
		return nil, ErrEmptyDataset
	}

	tags := VocabularyTagIDs()
	x := mat.NewDense(len(examples), 4, nil)
	y := mat.NewDense(len(examples), len(tags), nil)
	for i, ex := range examples {
		x.SetRow(i, ex.Features.row())
		for j, tag := range tags {
			if containsTag(ex.Tags, tag) {
				y.Set(i, j, 1)
			}
		}
	}

	return &Dataset{
		X:        x,
		Y:        y,
		Tags:     tags,
		Examples: examples,
	}, nil
}

func parseMeasurements(rec RawRecord) (heightCm, weightKg float64, ok bool) {
	heightStr := strings.TrimSpace(rec.HeightCm)
	weightStr := strings.TrimSpace(rec.WeightKg)
	if heightStr == "" || weightStr == "" || strings.TrimSpace(rec.PresNote) == "" {
		return 0, 0, false
	}

	heightCm, err := strconv.ParseFloat(heightStr, 64)
	if err != nil {
		log.Tracef("record %d: unparsable height [%s]", rec.ID, heightStr)
		return 0, 0, false
	}
	weightKg, err = strconv.ParseFloat(weightStr, 64)
	if err != nil {
		log.Tracef("record %d: unparsable weight [%s]", rec.ID, weightStr)
		return 0, 0, false
	}

	if heightCm < MinHeightCm || heightCm > MaxHeightCm {
		return 0, 0, false
	}
	if weightKg < MinWeightKg || weightKg > MaxWeightKg {
		return 0, 0, false
	}

	return heightCm, weightKg, true
}

func containsTag(tags []TagID, tag TagID) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
