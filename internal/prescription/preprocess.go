package prescription

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Preprocessor standardizes the numeric features (zero mean, unit
// variance) and one-hot encodes the bmi_bucket category. Buckets never
// seen during fitting encode to an all-zero vector at inference time,
// which is not an error.
type Preprocessor struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
	// Categories are the bmi buckets observed at fit time, ascending.
	Categories []int `json:"categories"`
}

const numNumericFeatures = 3 // height_cm, weight_kg, bmi

// FitPreprocessor computes the scaling parameters and the observed
// category set from the raw feature matrix.
func FitPreprocessor(x *mat.Dense) *Preprocessor {
	rows, _ := x.Dims()

	means := make([]float64, numNumericFeatures)
	stds := make([]float64, numNumericFeatures)
	col := make([]float64, rows)
	for j := 0; j < numNumericFeatures; j++ {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.PopStdDev(col, nil)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		seen[int(x.At(i, numNumericFeatures))] = true
	}
	categories := make([]int, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Ints(categories)

	return &Preprocessor{
		Means:      means,
		Stds:       stds,
		Categories: categories,
	}
}

// NumOutputFeatures is the width of a transformed row.
func (p *Preprocessor) NumOutputFeatures() int {
	return numNumericFeatures + len(p.Categories)
}

// TransformRow maps one feature vector into model space.
func (p *Preprocessor) TransformRow(f FeatureVector) []float64 {
	out := make([]float64, p.NumOutputFeatures())
	raw := f.row()
	for j := 0; j < numNumericFeatures; j++ {
		out[j] = (raw[j] - p.Means[j]) / p.Stds[j]
	}
	for ci, c := range p.Categories {
		if f.BMIBucket == c {
			out[numNumericFeatures+ci] = 1
			break
		}
	}
	return out
}

// Transform maps a whole raw feature matrix into model space.
func (p *Preprocessor) Transform(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, p.NumOutputFeatures(), nil)
	for i := 0; i < rows; i++ {
		f := FeatureVector{
			HeightCm:  x.At(i, 0),
			WeightKg:  x.At(i, 1),
			BMI:       x.At(i, 2),
			BMIBucket: int(x.At(i, 3)),
		}
		out.SetRow(i, p.TransformRow(f))
	}
	return out
}
