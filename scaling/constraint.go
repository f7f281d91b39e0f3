// Package scaling holds the pure geometry of the resize pipeline: resolving
// a size constraint against source dimensions and planning the sequence of
// super-resolution passes needed to cover a target.
package scaling

import (
	"github.com/mano8/imgtools-m8/errors"
)

// Constraint is one requested output size. At least one dimension must be
// set; a zero value means "derive proportionally".
type Constraint struct {
	FixedWidth  int `mapstructure:"fixed_width" json:"fixed_width" yaml:"fixed_width"`
	FixedHeight int `mapstructure:"fixed_height" json:"fixed_height" yaml:"fixed_height"`
}

// Validate checks the constraint invariant: at least one dimension set,
// none negative.
func (c Constraint) Validate() error {
	if c.FixedWidth == 0 && c.FixedHeight == 0 {
		return errors.NewConfiguration("size constraint needs fixed_width or fixed_height")
	}
	if c.FixedWidth < 0 {
		return errors.NewInvalidSetting("fixed_width", c.FixedWidth, "must be > 0")
	}
	if c.FixedHeight < 0 {
		return errors.NewInvalidSetting("fixed_height", c.FixedHeight, "must be > 0")
	}
	return nil
}

// Target resolves the constraint against the source dimensions.
//
// With a single dimension set, the other is derived proportionally. With
// both set, the binding dimension is the one whose ratio target/source is
// the larger scale-up (resp. the smaller scale-down); the other dimension
// follows the binding ratio rather than its own fixed value. On equal
// ratios width binds; the tie-break is arbitrary but fixed.
func (c Constraint) Target(sourceW, sourceH int) (int, int, error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	if sourceW < 1 || sourceH < 1 {
		return 0, 0, errors.NewInvalidSetting("source_size", [2]int{sourceW, sourceH}, "must be positive")
	}

	switch {
	case c.FixedHeight == 0:
		r := float64(c.FixedWidth) / float64(sourceW)
		return c.FixedWidth, derive(sourceH, r), nil
	case c.FixedWidth == 0:
		r := float64(c.FixedHeight) / float64(sourceH)
		return derive(sourceW, r), c.FixedHeight, nil
	}

	rw := float64(c.FixedWidth) / float64(sourceW)
	rh := float64(c.FixedHeight) / float64(sourceH)

	var widthBinds bool
	if rw > 1 || rh > 1 {
		// Upscaling: the dimension needing the larger enlargement binds.
		widthBinds = rw >= rh
	} else {
		// Downscaling: the dimension needing the stronger shrink binds,
		// so the result fits within both limits.
		widthBinds = rw <= rh
	}

	if widthBinds {
		return c.FixedWidth, derive(sourceH, rw), nil
	}
	return derive(sourceW, rh), c.FixedHeight, nil
}

// Ratio returns the scale factor the constraint demands of the source in
// its binding dimension; > 1 means an upscale is needed.
func (c Constraint) Ratio(sourceW, sourceH int) (float64, error) {
	w, h, err := c.Target(sourceW, sourceH)
	if err != nil {
		return 0, err
	}
	rw := float64(w) / float64(sourceW)
	rh := float64(h) / float64(sourceH)
	if rw > rh {
		return rw, nil
	}
	return rh, nil
}

// derive scales dim by r, truncating like the documented examples
// (216 * 300/340 -> 190), but never below one pixel.
func derive(dim int, r float64) int {
	v := int(float64(dim) * r)
	if v < 1 {
		v = 1
	}
	return v
}
