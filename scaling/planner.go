package scaling

import (
	"sort"

	"github.com/mano8/imgtools-m8/errors"
)

// DefaultMaxPasses bounds the length of an upscale plan. It is a safety
// bound covering the documented two-pass scenarios with room to spare,
// not a user-facing knob.
const DefaultMaxPasses = 5

// Planner computes upscale plans against a set of supported model factors.
type Planner struct {
	// MaxPasses overrides DefaultMaxPasses when > 0.
	MaxPasses int
}

// NeededRatio returns the scale the source must reach to cover the target
// in its most demanding dimension.
func NeededRatio(sourceW, sourceH, targetW, targetH int) float64 {
	rw := float64(targetW) / float64(sourceW)
	rh := float64(targetH) / float64(sourceH)
	if rw > rh {
		return rw
	}
	return rh
}

// Plan returns the ordered upscale factors to apply so that the working
// image covers targetW x targetH. An empty plan means the source is already
// large enough (pure downscale).
//
// The plan is greedy: each pass multiplies by the largest supported factor
// until the cumulative scale covers the needed ratio, which minimizes the
// number of inference passes. A model pinned to a single low factor simply
// repeats it.
func (p Planner) Plan(sourceW, sourceH, targetW, targetH int, factors []int) ([]int, error) {
	needed := NeededRatio(sourceW, sourceH, targetW, targetH)
	if needed <= 1 {
		return nil, nil
	}
	if len(factors) == 0 {
		return nil, errors.NewUnreachableScale(needed, nil, p.maxPasses())
	}

	largest := largestFactor(factors)
	if largest < 2 {
		return nil, errors.NewUnreachableScale(needed, factors, p.maxPasses())
	}

	maxPasses := p.maxPasses()
	var plan []int
	cumulative := 1.0
	for cumulative < needed {
		if len(plan) >= maxPasses {
			return nil, errors.NewUnreachableScale(needed, factors, maxPasses)
		}
		plan = append(plan, largest)
		cumulative *= float64(largest)
	}
	return plan, nil
}

func (p Planner) maxPasses() int {
	if p.MaxPasses > 0 {
		return p.MaxPasses
	}
	return DefaultMaxPasses
}

func largestFactor(factors []int) int {
	sorted := make([]int, len(factors))
	copy(sorted, factors)
	sort.Ints(sorted)
	return sorted[len(sorted)-1]
}
