package pipeline

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/logging"
	"github.com/mano8/imgtools-m8/metrics"
	"github.com/mano8/imgtools-m8/model"
	"github.com/mano8/imgtools-m8/scaling"
)

// upscaler grows a source's step cache until it covers a needed ratio,
// running only the inference passes the cache does not already hold.
type upscaler struct {
	planner scaling.Planner
	metrics *metrics.Collector
	log     logging.Logger
}

// ensure runs upscale passes until the cache's largest cumulative scale
// covers needed. Already cached steps are reused, so two output entries
// sharing a prefix of the plan cost one inference each step, not two.
func (u *upscaler) ensure(ctx context.Context, handle model.Handle, cache *stepCache, sourceW, sourceH, targetW, targetH int) error {
	plan, err := u.planner.Plan(sourceW, sourceH, targetW, targetH, []int{handle.Scale()})
	if err != nil {
		return err
	}

	img, _ := cache.get(1)
	cumulative := 1
	for _, factor := range plan {
		if err := ctx.Err(); err != nil {
			return errors.WrapWithType(err, errors.ErrorTypeIO, "run canceled")
		}
		cumulative *= factor
		if cached, ok := cache.get(cumulative); ok {
			img = cached
			u.metrics.Inc(metrics.CacheHits)
			continue
		}

		var out image.Image
		err := u.metrics.Time(metrics.UpscaleTime, func() error {
			var passErr error
			out, passErr = handle.Upscale(img)
			return passErr
		})
		if err != nil {
			return errors.FromError(err).WithDetail("pass_scale", cumulative)
		}
		cache.put(cumulative, out)
		img = out
		u.metrics.Inc(metrics.UpscalePasses)
		u.log.Debug("upscale pass done",
			zap.Int("factor", factor),
			zap.Int("cumulative_scale", cumulative))
	}
	return nil
}
