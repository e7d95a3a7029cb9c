package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareWithinTolerance(t *testing.T) {
	want := []float64{1, -2, 3e10, 0}
	got := []float64{1 + 1e-12, -2 * (1 + 1e-8), 3e10 * (1 - 1e-8), 1e-12}

	r, err := Compare(got, want, DefaultAbsTol, DefaultRelTol)
	require.NoError(t, err)
	assert.True(t, r.OK(), r.String())
	assert.Equal(t, 4, r.Total)
}

func TestCompareFlagsMismatches(t *testing.T) {
	want := []float64{1, 2, 3}
	got := []float64{1, 2.5, 3}

	r, err := Compare(got, want, 1e-10, 1e-6)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Equal(t, 1, r.Mismatches)
	assert.Equal(t, 1, r.WorstIndex)
	assert.Equal(t, 2.5, r.WorstGot)
	assert.Equal(t, 2.0, r.WorstWant)
	assert.InDelta(t, 0.5, r.MaxAbsDiff, 1e-15)
	assert.Contains(t, r.String(), "worst at 1")
}

func TestCompareAbsoluteFloorCoversZeroReference(t *testing.T) {
	// A tiny value against a zero reference passes on the absolute floor
	// even though the relative error is infinite.
	r, err := Compare([]float64{1e-12}, []float64{0}, 1e-10, 1e-6)
	require.NoError(t, err)
	assert.True(t, r.OK())

	r, err = Compare([]float64{1e-8}, []float64{0}, 1e-10, 1e-6)
	require.NoError(t, err)
	assert.False(t, r.OK())
}

func TestCompareNaNIsMismatch(t *testing.T) {
	r, err := Compare([]float64{math.NaN()}, []float64{1}, 1e-10, 1e-6)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.True(t, math.IsInf(r.WorstRatio, 1))
}

func TestCompareLengthMismatch(t *testing.T) {
	_, err := Compare([]float64{1}, []float64{1, 2}, 0, 0)
	assert.Error(t, err)
}

func TestCompareEmpty(t *testing.T) {
	r, err := Compare(nil, nil, 1e-10, 1e-6)
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Zero(t, r.Total)
}
