// Package pipeline orchestrates a batch run: decoding sources, running the
// upscale plan through the loaded model, fanning the working image out to
// every configured size and format, and collecting per-source results.
package pipeline

import (
	"image"
)

// stepCache holds the working images of one source, keyed by the cumulative
// scale reached relative to the original. Scale 1 is the original itself.
// Every inference pass is cached so later output entries never repeat one.
type stepCache struct {
	steps map[int]image.Image
}

func newStepCache(original image.Image) *stepCache {
	return &stepCache{steps: map[int]image.Image{1: original}}
}

func (c *stepCache) put(scale int, img image.Image) {
	c.steps[scale] = img
}

func (c *stepCache) get(scale int) (image.Image, bool) {
	img, ok := c.steps[scale]
	return img, ok
}

// best returns the smallest cached scale covering needed, so the final
// interpolation always shrinks or keeps size. When nothing covers it the
// largest cached scale is returned.
func (c *stepCache) best(needed float64) (image.Image, int) {
	bestScale := 0
	for scale := range c.steps {
		if float64(scale) >= needed && (bestScale == 0 || scale < bestScale) {
			bestScale = scale
		}
	}
	if bestScale == 0 {
		return c.largest()
	}
	return c.steps[bestScale], bestScale
}

// largest returns the highest cached scale.
func (c *stepCache) largest() (image.Image, int) {
	top := 0
	for scale := range c.steps {
		if scale > top {
			top = scale
		}
	}
	return c.steps[top], top
}
