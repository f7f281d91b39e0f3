package model

import (
	"github.com/mano8/imgtools-m8/errors"
)

// SelectScale decides which model scale to load.
//
// A pinned scale (> 0) is honored as-is; availability and validity are
// enforced by Store.Load. With no pin, auto-selection picks the smallest
// available scale covering neededRatio so a single pass suffices, falling
// back to the largest available scale when none covers it (the planner then
// issues multiple passes).
func SelectScale(available []int, pinned int, neededRatio float64) (int, error) {
	if pinned > 0 {
		return pinned, nil
	}
	if len(available) == 0 {
		return 0, errors.New(errors.ErrorTypeModelNotFound, "no model files available")
	}

	needed := neededRatio
	if needed < 1 {
		needed = 1
	}
	best := 0
	largest := 0
	for _, s := range available {
		if s > largest {
			largest = s
		}
		if float64(s) >= needed && (best == 0 || s < best) {
			best = s
		}
	}
	if best != 0 {
		return best, nil
	}
	return largest, nil
}

// OverallRatio reduces per-entry needed ratios to the single ratio the
// whole output configuration demands of one source.
func OverallRatio(ratios []float64) float64 {
	max := 1.0
	for _, r := range ratios {
		if r > max {
			max = r
		}
	}
	return max
}
