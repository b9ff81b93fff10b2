package prescription

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// neighbor weight epsilon, keeps an exact-match distance of 0 finite
const knnDistanceEpsilon = 1e-6

// KNNModel scores tags by distance-weighted label averaging over the
// K nearest training examples in preprocessed feature space. The
// training label matrix is persisted with the index on purpose: the
// neighbor signal cannot be computed without it (see Scores).
type KNNModel struct {
	K int `json:"k"`
	// X holds the transformed training features, one row per example.
	X [][]float64 `json:"x"`
	// Y holds the multi-hot label rows matching X. May be absent in
	// bundles written by older trainers; scoring then degrades to
	// logistic-only at the call site.
	Y [][]float64 `json:"y,omitempty"`
}

// FitKNN builds the neighbor index over the transformed features with
// the multi-hot label matrix as neighbor values.
func FitKNN(k int, x, y *mat.Dense) *KNNModel {
	rows, _ := x.Dims()
	model := &KNNModel{
		K: k,
		X: make([][]float64, rows),
		Y: make([][]float64, rows),
	}
	for i := 0; i < rows; i++ {
		model.X[i] = copyRow(x.RawRowView(i))
		model.Y[i] = copyRow(y.RawRowView(i))
	}
	return model
}

// HasLabels reports whether the training label matrix was retained.
func (m *KNNModel) HasLabels() bool {
	return len(m.Y) == len(m.X) && len(m.X) > 0
}

// Scores returns the per-tag neighbor score for one transformed query
// row: the labels of the K nearest examples, weighted by inverse
// distance and normalized to sum to 1. Returns ok=false when the
// label matrix is unavailable - the caller must fall back explicitly.
func (m *KNNModel) Scores(query []float64, numTags int) (scores []float64, ok bool) {
	if !m.HasLabels() {
		return nil, false
	}

	k := m.K
	if k > len(m.X) {
		k = len(m.X)
	}

	type neighbor struct {
		index    int
		distance float64
	}
	neighbors := make([]neighbor, len(m.X))
	for i, row := range m.X {
		neighbors[i] = neighbor{
			index:    i,
			distance: floats.Distance(query, row, 2),
		}
	}
	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].distance == neighbors[b].distance {
			return neighbors[a].index < neighbors[b].index
		}
		return neighbors[a].distance < neighbors[b].distance
	})

	weights := make([]float64, k)
	var weightSum float64
	for i := 0; i < k; i++ {
		weights[i] = 1.0 / (neighbors[i].distance + knnDistanceEpsilon)
		weightSum += weights[i]
	}

	scores = make([]float64, numTags)
	for i := 0; i < k; i++ {
		labelRow := m.Y[neighbors[i].index]
		w := weights[i] / weightSum
		for j := 0; j < numTags && j < len(labelRow); j++ {
			scores[j] += w * labelRow[j]
		}
	}
	return scores, true
}

func copyRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
