package pipeline

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mano8/imgtools-m8/config"
	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/imaging"
	"github.com/mano8/imgtools-m8/logging"
	"github.com/mano8/imgtools-m8/metrics"
	"github.com/mano8/imgtools-m8/model"
	"github.com/mano8/imgtools-m8/scaling"
)

type fakeHandle struct {
	scale  int
	passes *int
}

func (h *fakeHandle) Scale() int { return h.scale }

func (h *fakeHandle) Upscale(img image.Image) (image.Image, error) {
	if h.passes != nil {
		*h.passes++
	}
	b := img.Bounds()
	return image.NewRGBA(image.Rect(0, 0, b.Dx()*h.scale, b.Dy()*h.scale)), nil
}

type fakeStore struct {
	scales []int
	loaded []int
	passes int
}

func (s *fakeStore) AvailableScales() ([]int, error) {
	return s.scales, nil
}

func (s *fakeStore) Load(scale int) (model.Handle, error) {
	s.loaded = append(s.loaded, scale)
	return &fakeHandle{scale: scale, passes: &s.passes}, nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func baseConfig(t *testing.T, outputs []config.OutputEntry) (config.Process, string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))
	return config.Process{
		SourcePath: src,
		OutputPath: out,
		Outputs:    outputs,
		Jobs:       1,
	}, src, out
}

func jpgEntry(width, height int) config.OutputEntry {
	return config.OutputEntry{
		FixedWidth:  width,
		FixedHeight: height,
		Formats:     []imaging.FormatSpec{{Ext: ".jpg"}},
	}
}

func decodeDims(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestEngineWritesActualDimensionsInFilenames(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{{
		FixedWidth:  300,
		FixedHeight: 200,
		Formats:     []imaging.FormatSpec{{Ext: ".jpg"}, {Ext: ".png"}, {Ext: ".webp"}},
	}})
	writePNG(t, filepath.Join(src, "photo.png"), 340, 216)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	require.True(t, report.Sources[0].OK())

	// Width binds: 340x216 under w300/h200 resolves to 300x190, and the
	// filename carries those actual dimensions, not the configured ones.
	for _, ext := range []string{".jpg", ".png", ".webp"} {
		w, h := decodeDims(t, filepath.Join(out, "photo_300x190"+ext))
		require.Equal(t, 300, w, ext)
		require.Equal(t, 190, h, ext)
	}

	files, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, files, 3)
}

func TestEngineWithoutModelWritesOriginalForUpscaleEntries(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(400, 0)})
	writePNG(t, filepath.Join(src, "photo.png"), 100, 80)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Sources[0].OK())

	// No model: the source is never stretched, the original is written
	// as-is and the name reflects its real size.
	w, h := decodeDims(t, filepath.Join(out, "photo_100x80.jpg"))
	require.Equal(t, 100, w)
	require.Equal(t, 80, h)
}

func TestEngineReusesIntermediatesAcrossEntries(t *testing.T) {
	cfg, src, _ := baseConfig(t, []config.OutputEntry{
		jpgEntry(200, 0),
		jpgEntry(400, 0),
	})
	writePNG(t, filepath.Join(src, "small.png"), 100, 100)

	store := &fakeStore{scales: []int{2}}
	engine, err := NewEngine(cfg, WithStore(store))
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Sources[0].OK())

	// x2 needs one pass, x4 needs two; the shared first pass runs once.
	require.Equal(t, 2, store.passes)
	require.Equal(t, int64(2), engine.Metrics().Get(metrics.UpscalePasses))
	require.Equal(t, int64(1), engine.Metrics().Get(metrics.CacheHits))
	require.Greater(t, engine.Metrics().Duration(metrics.UpscaleTime), time.Duration(0))

	require.Len(t, report.Sources[0].Outputs, 2)
	require.Equal(t, 200, report.Sources[0].Outputs[0].Width)
	require.Equal(t, 400, report.Sources[0].Outputs[1].Width)
}

func TestEngineAutoSelectsSmallestAdequateScale(t *testing.T) {
	cfg, src, _ := baseConfig(t, []config.OutputEntry{jpgEntry(260, 0)})
	writePNG(t, filepath.Join(src, "tiny.png"), 100, 80)

	store := &fakeStore{scales: []int{2, 3, 4}}
	engine, err := NewEngine(cfg, WithStore(store))
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	// Needed ratio 2.6: scale 3 is the smallest that covers it.
	require.Equal(t, []int{3}, store.loaded)
}

func TestEnginePinnedScaleWins(t *testing.T) {
	cfg, src, _ := baseConfig(t, []config.OutputEntry{jpgEntry(150, 0)})
	cfg.Model.Scale = 4
	writePNG(t, filepath.Join(src, "tiny.png"), 100, 80)

	store := &fakeStore{scales: []int{2, 3, 4}}
	engine, err := NewEngine(cfg, WithStore(store))
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{4}, store.loaded)
}

func TestEngineRejectsInvalidPinnedScale(t *testing.T) {
	cfg, _, _ := baseConfig(t, []config.OutputEntry{jpgEntry(150, 0)})
	cfg.Model.Scale = 5

	_, err := NewEngine(cfg, WithStore(&fakeStore{scales: []int{2}}))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeInvalidScale))
	require.True(t, errors.IsFatal(err))
}

func TestEngineFailsBeforeProcessingOnMissingModelFile(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "a_small.png"), 100, 100)

	modelDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "EDSR_x4.pb"), []byte("weights"), 0o644))
	cfg.Model.Path = modelDir
	cfg.Model.Scale = 2

	// The pinned scale has no model file: this must fail at construction,
	// before any source (even downscale-only ones) produces output.
	_, err := NewEngine(cfg)
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeModelNotFound))
	require.True(t, errors.IsFatal(err))

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))
}

func TestEngineFailsBeforeProcessingOnEmptyModelDir(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "a_small.png"), 100, 100)
	cfg.Model.Path = t.TempDir()

	_, err := NewEngine(cfg)
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeModelNotFound))
	require.True(t, errors.IsFatal(err))

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr))
}

func TestEngineRejectsPinnedScaleMissingFromStore(t *testing.T) {
	cfg, _, _ := baseConfig(t, []config.OutputEntry{jpgEntry(150, 0)})
	cfg.Model.Scale = 4

	_, err := NewEngine(cfg, WithStore(&fakeStore{scales: []int{2}}))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeModelNotFound))
}

func TestEngineUnreachableScaleFailsSource(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(1600, 0)})
	writePNG(t, filepath.Join(src, "micro.png"), 100, 100)

	store := &fakeStore{scales: []int{2}}
	engine, err := NewEngine(cfg,
		WithStore(store),
		WithPlanner(scaling.Planner{MaxPasses: 2}))
	require.NoError(t, err)

	// x16 would need four passes of x2; the bound makes it unreachable,
	// which fails the source but not the run.
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	require.False(t, report.Sources[0].OK())
	require.Equal(t, errors.ErrorTypeUnreachableScale, report.Sources[0].Error.Type)

	// The failing source must not leave partial outputs behind.
	files, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestEngineContinuesAfterDecodeFailure(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "a_good.png"), 100, 100)
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.png"), []byte("not an image"), 0o644))
	writePNG(t, filepath.Join(src, "z_good.png"), 100, 100)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 3)

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Contains(t, failed[0].Source, "broken.png")
	require.Equal(t, errors.ErrorTypeDecode, failed[0].Error.Type)

	summary := report.Summary()
	require.True(t, summary.HasErrors())
	require.Len(t, summary.Files(), 1)

	// The good sources still produced their outputs.
	for _, name := range []string{"a_good_50x50.jpg", "z_good_50x50.jpg"} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err)
	}
	require.Equal(t, int64(2), engine.Metrics().Get(metrics.SourcesOK))
	require.Equal(t, int64(1), engine.Metrics().Get(metrics.SourcesFailed))
}

func TestEngineOverwritesExistingOutputs(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "photo.png"), 100, 100)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Sources[0].OK())

	outFile := filepath.Join(out, "photo_50x50.jpg")
	first, err := os.ReadFile(outFile)
	require.NoError(t, err)

	report, err = engine.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Sources[0].OK())

	// Re-running overwrites in place with identical bytes.
	second, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, first, second)

	files, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestEngineParallelRunsMatchSequential(t *testing.T) {
	outputs := []config.OutputEntry{jpgEntry(50, 0)}
	cfg, src, _ := baseConfig(t, outputs)
	cfg.Jobs = 4
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		writePNG(t, filepath.Join(src, name), 100, 100)
	}

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 5)

	// Results keep listing order whatever the worker count.
	for i := 1; i < len(report.Sources); i++ {
		require.Less(t, report.Sources[i-1].Source, report.Sources[i].Source)
	}
	require.Equal(t, int64(5), engine.Metrics().Get(metrics.SourcesOK))
}

func TestEngineSingleFileSource(t *testing.T) {
	cfg, src, out := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	file := filepath.Join(src, "one.png")
	writePNG(t, file, 100, 100)
	cfg.SourcePath = file

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)

	_, err = os.Stat(filepath.Join(out, "one_50x50.jpg"))
	require.NoError(t, err)
}

func TestEngineEmptySourceDir(t *testing.T) {
	cfg, _, _ := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})

	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Sources)
}

func TestEngineLogsSourceSizeOnOpen(t *testing.T) {
	cfg, src, _ := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "photo.png"), 100, 100)

	core, logs := observer.New(zapcore.DebugLevel)
	engine, err := NewEngine(cfg, WithLogger(logging.FromZap(zap.New(core))))
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("open image").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Contains(t, fields["source"], "photo.png")
	require.EqualValues(t, 100, fields["width"])
	require.EqualValues(t, 100, fields["height"])
	require.NotEmpty(t, fields["size"])
	require.NotEqual(t, "0 B", fields["size"])
}

func TestReportWriteJSON(t *testing.T) {
	cfg, src, _ := baseConfig(t, []config.OutputEntry{jpgEntry(50, 0)})
	writePNG(t, filepath.Join(src, "photo.png"), 100, 100)

	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "photo.png")
	require.Contains(t, string(data), "outputs_written")
}
