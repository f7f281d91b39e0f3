package scaling

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	procerrors "github.com/mano8/imgtools-m8/errors"
)

func TestConstraintValidate(t *testing.T) {
	require.Error(t, Constraint{}.Validate())
	require.Error(t, Constraint{FixedWidth: -1}.Validate())
	require.Error(t, Constraint{FixedHeight: -20}.Validate())
	require.NoError(t, Constraint{FixedWidth: 100}.Validate())
	require.NoError(t, Constraint{FixedHeight: 80}.Validate())
	require.NoError(t, Constraint{FixedWidth: 10, FixedHeight: 10}.Validate())

	err := Constraint{}.Validate()
	require.True(t, stderrors.Is(err, procerrors.New(procerrors.ErrorTypeConfiguration, "")))
}

func TestTargetSingleDimension(t *testing.T) {
	tests := []struct {
		name         string
		c            Constraint
		srcW, srcH   int
		wantW, wantH int
	}{
		{"width only downscale", Constraint{FixedWidth: 200}, 340, 216, 200, 127},
		{"height only downscale", Constraint{FixedHeight: 200}, 340, 216, 314, 200},
		{"width only upscale", Constraint{FixedWidth: 680}, 340, 216, 680, 432},
		{"height only upscale", Constraint{FixedHeight: 432}, 340, 216, 680, 432},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := tt.c.Target(tt.srcW, tt.srcH)
			require.NoError(t, err)
			require.Equal(t, tt.wantW, w)
			require.Equal(t, tt.wantH, h)
		})
	}
}

// The documented example: a 340x216 source with fixed_width=300 and
// fixed_height=200 resolves to 300x190. Width binds and height follows
// the binding ratio instead of its own fixed value.
func TestTargetBothDimensionsWidthBinds(t *testing.T) {
	w, h, err := Constraint{FixedWidth: 300, FixedHeight: 200}.Target(340, 216)
	require.NoError(t, err)
	require.Equal(t, 300, w)
	require.Equal(t, 190, h)
}

func TestTargetBothDimensionsHeightBinds(t *testing.T) {
	// 139x200 source, limits 180x100: height demands the stronger shrink.
	w, h, err := Constraint{FixedWidth: 180, FixedHeight: 100}.Target(200, 139)
	require.NoError(t, err)
	require.Equal(t, 100, h)
	require.Equal(t, 143, w)
}

func TestTargetBothDimensionsUpscale(t *testing.T) {
	// Upscaling: the larger enlargement binds.
	w, h, err := Constraint{FixedWidth: 300, FixedHeight: 200}.Target(100, 100)
	require.NoError(t, err)
	require.Equal(t, 300, w)
	require.Equal(t, 300, h)
}

func TestTargetEqualRatiosWidthWins(t *testing.T) {
	// 100x100 source, both limits demand exactly 0.5: width binds by
	// convention.
	w, h, err := Constraint{FixedWidth: 50, FixedHeight: 50}.Target(100, 100)
	require.NoError(t, err)
	require.Equal(t, 50, w)
	require.Equal(t, 50, h)

	// Equal upscale ratios on a non-square source.
	w, h, err = Constraint{FixedWidth: 400, FixedHeight: 200}.Target(200, 100)
	require.NoError(t, err)
	require.Equal(t, 400, w)
	require.Equal(t, 200, h)
}

func TestTargetRejectsBadSource(t *testing.T) {
	_, _, err := Constraint{FixedWidth: 100}.Target(0, 100)
	require.Error(t, err)
}

func TestRatio(t *testing.T) {
	r, err := Constraint{FixedWidth: 680}.Ratio(340, 216)
	require.NoError(t, err)
	require.InDelta(t, 2.0, r, 1e-9)

	r, err = Constraint{FixedWidth: 200}.Ratio(340, 216)
	require.NoError(t, err)
	require.Less(t, r, 1.0)
}
