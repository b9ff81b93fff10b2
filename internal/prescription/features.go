package prescription

import "math"

// DefaultBMIBoundaries are the half-open BMI interval edges used to
// derive the categorical bmi_bucket feature. Bucket i covers
// [boundaries[i], boundaries[i+1]).
var DefaultBMIBoundaries = []float64{0, 16, 18.5, 23, 25, 30, 35, 100}

var (
	numFeatureNames = []string{"height_cm", "weight_kg", "bmi"}
	catFeatureNames = []string{"bmi_bucket"}
)

// FeatureVector is the fixed feature shape shared by the batch trainer
// and the live inference path. Train/serve parity of the bmi_bucket
// assignment depends on both sides going through BuildFeatures with
// the same boundary list.
type FeatureVector struct {
	HeightCm  float64
	WeightKg  float64
	BMI       float64
	BMIBucket int
}

// ComputeBMI returns weight/(height/100)^2, or NaN for non-positive
// height - BMI is undefined there, not zero. Callers must validate
// height before using the result.
func ComputeBMI(heightCm, weightKg float64) float64 {
	heightM := heightCm / 100.0
	if heightM <= 0 {
		return math.NaN()
	}
	return weightKg / (heightM * heightM)
}

// BMIBucketIndex locates the half-open interval containing bmi.
// Values below the first boundary or at/above the last clamp to the
// edge buckets.
func BMIBucketIndex(bmi float64, boundaries []float64) int {
	lastBucket := len(boundaries) - 2
	if bmi < boundaries[0] {
		return 0
	}
	for i := 0; i < len(boundaries)-1; i++ {
		if bmi >= boundaries[i] && bmi < boundaries[i+1] {
			return i
		}
	}
	return lastBucket
}

// BuildFeatures derives the full feature vector for one person.
func BuildFeatures(heightCm, weightKg float64, boundaries []float64) FeatureVector {
	bmi := ComputeBMI(heightCm, weightKg)
	return FeatureVector{
		HeightCm:  heightCm,
		WeightKg:  weightKg,
		BMI:       bmi,
		BMIBucket: BMIBucketIndex(bmi, boundaries),
	}
}

// row returns the raw (pre-scaling) feature row in column order
// height_cm, weight_kg, bmi, bmi_bucket.
func (f FeatureVector) row() []float64 {
	return []float64{f.HeightCm, f.WeightKg, f.BMI, float64(f.BMIBucket)}
}
