package model

import (
	"image"

	"github.com/nfnt/resize"
)

// interpHandle upsamples by plain Lanczos resampling. It is the fallback
// backend used when no native inference runtime is linked in: the pipeline
// behaves identically (plans, passes, caching), only the pixel quality of a
// pass differs from a real network.
type interpHandle struct {
	scale int
}

func (h *interpHandle) Scale() int { return h.scale }

func (h *interpHandle) Upscale(img image.Image) (image.Image, error) {
	b := img.Bounds()
	out := resize.Resize(uint(b.Dx()*h.scale), uint(b.Dy()*h.scale), img, resize.Lanczos3)
	return out, nil
}

// InterpolationLoader returns a LoaderFunc producing resampling handles. The
// descriptor's weights file is only probed for existence by the store; its
// contents are not read.
func InterpolationLoader() LoaderFunc {
	return func(d Descriptor) (Handle, error) {
		return &interpHandle{scale: d.Scale}, nil
	}
}
