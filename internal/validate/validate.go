// Package validate compares kernel outputs against reference arrays with
// the mixed absolute/relative tolerance customary for stiff kinetics:
// values agree when the difference falls inside the absolute floor or
// inside the relative band, whichever is wider at that magnitude.
package validate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Default tolerances for double-precision species rates.
const (
	DefaultAbsTol = 1e-10
	DefaultRelTol = 1e-6
)

// Result summarizes one array comparison.
type Result struct {
	Total      int
	Mismatches int

	// Worst element by normalized error |got-want|/(absTol+relTol*|want|).
	WorstIndex int
	WorstGot   float64
	WorstWant  float64
	WorstRatio float64

	MaxAbsDiff float64
}

// OK reports whether every element was within tolerance.
func (r Result) OK() bool { return r.Mismatches == 0 }

func (r Result) String() string {
	if r.OK() {
		return fmt.Sprintf("%d values within tolerance (max abs diff %.3e)", r.Total, r.MaxAbsDiff)
	}
	return fmt.Sprintf("%d of %d values outside tolerance; worst at %d: got %.9e want %.9e (%.1fx tolerance)",
		r.Mismatches, r.Total, r.WorstIndex, r.WorstGot, r.WorstWant, r.WorstRatio)
}

// Compare checks got against want element-wise. NaNs never compare equal,
// so a NaN anywhere in got counts as a mismatch.
func Compare(got, want []float64, absTol, relTol float64) (Result, error) {
	if len(got) != len(want) {
		return Result{}, fmt.Errorf("validate: %d values against %d references", len(got), len(want))
	}
	r := Result{Total: len(got), WorstIndex: -1}
	if len(got) == 0 {
		return r, nil
	}

	for i := range got {
		if !scalar.EqualWithinAbsOrRel(got[i], want[i], absTol, relTol) {
			r.Mismatches++
		}
		ratio := normalizedError(got[i], want[i], absTol, relTol)
		if r.WorstIndex < 0 || ratio > r.WorstRatio {
			r.WorstIndex = i
			r.WorstGot = got[i]
			r.WorstWant = want[i]
			r.WorstRatio = ratio
		}
	}
	r.MaxAbsDiff = floats.Distance(got, want, math.Inf(1))
	return r, nil
}

func normalizedError(got, want, absTol, relTol float64) float64 {
	diff := math.Abs(got - want)
	denom := absTol + relTol*math.Abs(want)
	switch {
	case math.IsNaN(diff):
		return math.Inf(1)
	case diff == 0:
		return 0
	case denom == 0:
		return math.Inf(1)
	}
	return diff / denom
}
