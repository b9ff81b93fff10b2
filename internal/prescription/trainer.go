package prescription

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/fitlifekr/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const (
	cvMaxSplits  = 5
	cvRandomSeed = 42
	knnNeighbors = 7

	// binarization threshold used only for cross-validation scoring
	cvDecisionThreshold = 0.5
)

// Train fits the full model bundle on the raw records: preprocessing
// transform, one-vs-rest logistic classifier and the neighbor index,
// plus a k-fold cross-validation estimate in the metadata. It has no
// side effects - persisting the returned artifact is the caller's
// job, so an aborted or failed run can never leave a partial bundle
// behind.
//
// The context is checked between folds; training is not cancellable
// mid-fold.
func Train(ctx context.Context, records []RawRecord) (_ *Artifact, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prescription.train")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dataset, err := PrepareDataset(records)
	if err != nil {
		return nil, err
	}
	log.Infof("training prescription model on %d examples", dataset.Len())

	preprocessor := FitPreprocessor(dataset.X)
	transformed := preprocessor.Transform(dataset.X)

	classifier := FitOneVsRest(transformed, dataset.Y)
	neighbors := FitKNN(knnNeighbors, transformed, dataset.Y)

	cvResults, err := crossValidate(ctx, transformed, dataset.Y)
	if err != nil {
		return nil, err
	}
	log.Infof("cross-validation: micro-F1=%.4f macro-F1=%.4f", cvResults.MicroF1, cvResults.MacroF1)

	return &Artifact{
		Preprocessor: preprocessor,
		Classifier:   classifier,
		Neighbors:    neighbors,
		Meta: Meta{
			Version:     ArtifactVersion,
			Tags:        dataset.Tags,
			NumFeatures: numFeatureNames,
			CatFeatures: catFeatureNames,
			BMIBins:     DefaultBMIBoundaries,
			CVResults:   cvResults,
			NSamples:    dataset.Len(),
		},
	}, nil
}

// crossValidate estimates generalization with a shuffled, seeded
// k-fold split, scoring every validation row with the same hybrid
// formula the inference path uses.
func crossValidate(ctx context.Context, x, y *mat.Dense) (CVResults, error) {
	rows, numTags := y.Dims()

	numSplits := rows / 50
	if numSplits > cvMaxSplits {
		numSplits = cvMaxSplits
	}
	if numSplits < 2 {
		numSplits = 2
	}

	folds := kfoldSplit(rows, numSplits, cvRandomSeed)

	var microF1Sum, macroF1Sum float64
	for fold, validationIdx := range folds {
		if err := ctx.Err(); err != nil {
			return CVResults{}, fmt.Errorf("%w: before fold %d", ErrTrainingAborted, fold+1)
		}

		trainIdx := complementIndices(rows, validationIdx)
		xTrain, yTrain := selectRows(x, trainIdx), selectRows(y, trainIdx)

		foldClassifier := FitOneVsRest(xTrain, yTrain)
		foldNeighbors := FitKNN(knnNeighbors, xTrain, yTrain)

		predicted := mat.NewDense(len(validationIdx), numTags, nil)
		actual := mat.NewDense(len(validationIdx), numTags, nil)
		for vi, rowIdx := range validationIdx {
			row := x.RawRowView(rowIdx)
			scores := hybridScores(foldClassifier, foldNeighbors, row, numTags)

			// binarize; a row predicting no tag at all forces its
			// top-scoring tag to 1 instead
			bestJ, bestScore := 0, scores[0]
			var anySet bool
			for j, s := range scores {
				if s >= cvDecisionThreshold {
					predicted.Set(vi, j, 1)
					anySet = true
				}
				if s > bestScore {
					bestJ, bestScore = j, s
				}
			}
			if !anySet {
				predicted.Set(vi, bestJ, 1)
			}

			for j := 0; j < numTags; j++ {
				actual.Set(vi, j, y.At(rowIdx, j))
			}
		}

		micro, macro := f1Scores(actual, predicted)
		microF1Sum += micro
		macroF1Sum += macro
		log.Debugf("fold %d/%d: micro-F1=%.4f macro-F1=%.4f", fold+1, numSplits, micro, macro)
	}

	return CVResults{
		MicroF1: microF1Sum / float64(len(folds)),
		MacroF1: macroF1Sum / float64(len(folds)),
	}, nil
}

// hybridScores combines the clipped logistic probabilities with the
// neighbor label average. Used by cross-validation; the inference
// service applies the identical formula.
func hybridScores(classifier *OneVsRestLogistic, neighbors *KNNModel, row []float64, numTags int) []float64 {
	scores := classifier.PredictProba(row)
	for j := range scores {
		scores[j] = clip(scores[j], probaClipLo, probaClipHi)
	}

	knnScores, ok := neighbors.Scores(row, numTags)
	if !ok {
		return scores
	}
	for j := range scores {
		scores[j] = logisticScoreWeight*scores[j] + neighborScoreWeight*knnScores[j]
	}
	return scores
}

// kfoldSplit shuffles the row indices with the given seed and deals
// them into numSplits validation folds.
func kfoldSplit(rows, numSplits int, seed int64) [][]int {
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(rows, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([][]int, numSplits)
	foldSize := rows / numSplits
	remainder := rows % numSplits
	start := 0
	for f := 0; f < numSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		folds[f] = indices[start : start+size]
		start += size
	}
	return folds
}

func complementIndices(rows int, excluded []int) []int {
	excludedSet := make(map[int]bool, len(excluded))
	for _, i := range excluded {
		excludedSet[i] = true
	}
	out := make([]int, 0, rows-len(excluded))
	for i := 0; i < rows; i++ {
		if !excludedSet[i] {
			out = append(out, i)
		}
	}
	return out
}

func selectRows(m *mat.Dense, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, rowIdx := range indices {
		out.SetRow(i, m.RawRowView(rowIdx))
	}
	return out
}

// f1Scores computes multi-label micro and macro F1. Labels with no
// positive examples and no positive predictions contribute 0 to the
// macro average, matching the usual zero-division convention.
func f1Scores(actual, predicted *mat.Dense) (micro, macro float64) {
	rows, numTags := actual.Dims()

	var tpTotal, fpTotal, fnTotal int
	var macroSum float64
	for j := 0; j < numTags; j++ {
		var tp, fp, fn int
		for i := 0; i < rows; i++ {
			a := actual.At(i, j) > 0.5
			p := predicted.At(i, j) > 0.5
			switch {
			case a && p:
				tp++
			case !a && p:
				fp++
			case a && !p:
				fn++
			}
		}
		tpTotal += tp
		fpTotal += fp
		fnTotal += fn
		if denom := 2*tp + fp + fn; denom > 0 {
			macroSum += 2 * float64(tp) / float64(denom)
		}
	}

	if denom := 2*tpTotal + fpTotal + fnTotal; denom > 0 {
		micro = 2 * float64(tpTotal) / float64(denom)
	}
	macro = macroSum / float64(numTags)
	return micro, macro
}
