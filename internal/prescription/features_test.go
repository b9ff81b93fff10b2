package prescription

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBMI(t *testing.T) {
	assert.InDelta(t, 24.22, ComputeBMI(170, 70), 0.01)
	assert.InDelta(t, 22.86, ComputeBMI(175, 70), 0.01)
	assert.True(t, math.IsNaN(ComputeBMI(0, 70)))
	assert.True(t, math.IsNaN(ComputeBMI(-170, 70)))
}

func TestBMIBucketIndex(t *testing.T) {
	boundaries := DefaultBMIBoundaries

	testCases := []struct {
		bmi      float64
		expected int
	}{
		{bmi: -5, expected: 0},  // below first edge clamps down
		{bmi: 0, expected: 0},   // [0, 16)
		{bmi: 15.9, expected: 0},
		{bmi: 16, expected: 1},  // [16, 18.5)
		{bmi: 18.5, expected: 2},
		{bmi: 22.9, expected: 2},
		{bmi: 23, expected: 3},  // boundary lands in the upper bucket
		{bmi: 24.2, expected: 3},
		{bmi: 25, expected: 4},
		{bmi: 29.9, expected: 4},
		{bmi: 30, expected: 5},
		{bmi: 35, expected: 6},
		{bmi: 99.9, expected: 6},
		{bmi: 100, expected: 6}, // at/above last edge clamps up
		{bmi: 150, expected: 6},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, BMIBucketIndex(tc.bmi, boundaries), "bmi %.1f", tc.bmi)
	}
}

func TestBuildFeatures(t *testing.T) {
	f := BuildFeatures(170, 70, DefaultBMIBoundaries)
	assert.Equal(t, 170.0, f.HeightCm)
	assert.Equal(t, 70.0, f.WeightKg)
	assert.InDelta(t, 24.22, f.BMI, 0.01)
	assert.Equal(t, 3, f.BMIBucket)

	row := f.row()
	require.Len(t, row, 4)
	assert.Equal(t, f.HeightCm, row[0])
	assert.Equal(t, f.WeightKg, row[1])
	assert.Equal(t, f.BMI, row[2])
	assert.Equal(t, float64(f.BMIBucket), row[3])
}

// the trainer and the inference path must assign the same bucket for
// the same person, whatever the measurements
func TestBuildFeatures_BucketParity(t *testing.T) {
	for heightCm := 120.0; heightCm <= 220; heightCm += 7 {
		for weightKg := 30.0; weightKg <= 250; weightKg += 13 {
			f := BuildFeatures(heightCm, weightKg, DefaultBMIBoundaries)
			again := BuildFeatures(heightCm, weightKg, DefaultBMIBoundaries)
			assert.Equal(t, f.BMIBucket, again.BMIBucket)
			assert.Equal(t, BMIBucketIndex(f.BMI, DefaultBMIBoundaries), f.BMIBucket)
		}
	}
}
