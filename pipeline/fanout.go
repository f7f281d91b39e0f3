package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mano8/imgtools-m8/config"
	"github.com/mano8/imgtools-m8/imaging"
	"github.com/mano8/imgtools-m8/logging"
	"github.com/mano8/imgtools-m8/metrics"
	"github.com/mano8/imgtools-m8/storage"
	"github.com/mano8/imgtools-m8/utils"
)

// Output describes one file written for a source.
type Output struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Ext    string `json:"ext"`
	Size   int64  `json:"size_bytes"`
}

// fanOut renders every configured output entry of one source from its step
// cache: pick the smallest adequate intermediate, resize it exactly to the
// entry's target, then encode and write one file per format. Existing files
// are overwritten.
type fanOut struct {
	codec    imaging.Codec
	provider storage.Provider
	metrics  *metrics.Collector
	log      logging.Logger
}

func (f *fanOut) produce(ctx context.Context, cache *stepCache, sourcePath, outputDir string, entries []config.OutputEntry) ([]Output, error) {
	original, _ := cache.get(1)
	origW, origH := imaging.Size(original)
	stem, _ := utils.CutStem(filepath.Base(sourcePath))

	var outputs []Output
	for _, entry := range entries {
		// Targets always resolve against the original dimensions, never
		// against an upscaled intermediate.
		targetW, targetH, err := entry.Constraint().Target(origW, origH)
		if err != nil {
			return outputs, err
		}
		needed, err := entry.Constraint().Ratio(origW, origH)
		if err != nil {
			return outputs, err
		}

		intermediate, fromScale := cache.best(needed)
		var resized image.Image
		if float64(fromScale) >= needed {
			resized = f.codec.Resize(intermediate, targetW, targetH)
		} else {
			// No intermediate covers the target (no model configured), so
			// the largest available image is written untouched rather than
			// stretched; the filename carries its real dimensions.
			resized = intermediate
			targetW, targetH = imaging.Size(intermediate)
		}
		f.log.Debug("resolved output size",
			zap.String("source", sourcePath),
			zap.Int("width", targetW),
			zap.Int("height", targetH),
			zap.Int("from_scale", fromScale))

		for _, spec := range entry.Formats {
			data, err := f.codec.Encode(resized, spec)
			if err != nil {
				return outputs, err
			}

			name := fmt.Sprintf("%s_%dx%d%s", stem, targetW, targetH, spec.NormalizedExt())
			path := filepath.Join(outputDir, name)
			if ok, err := f.provider.Exists(ctx, path); err == nil && ok {
				f.log.Debug("overwriting existing output", zap.String("path", path))
			}
			if err := f.provider.Write(ctx, path, data); err != nil {
				return outputs, err
			}

			f.metrics.Inc(metrics.OutputsWritten)
			f.log.Info("output written",
				zap.String("path", path),
				zap.String("size", utils.HumanSize(int64(len(data)))))
			outputs = append(outputs, Output{
				Path:   path,
				Width:  targetW,
				Height: targetH,
				Ext:    spec.NormalizedExt(),
				Size:   int64(len(data)),
			})
		}
	}
	return outputs, nil
}
