package splat

import "github.com/tigas/renderer-encoder/internal/model"

// GpuBackend is the pluggable accelerated render path. The renderer
// queries Available() once at construction and never re-queries after a
// TryRender failure.
type GpuBackend interface {
	Available() bool
	TryRender(points []model.Point, sample model.MovementSample, frame *model.RGBFrame) error
}

// NoopGpuBackend is always unavailable. It satisfies GpuBackend so a
// Renderer can be constructed without any accelerated path.
type NoopGpuBackend struct{}

func (NoopGpuBackend) Available() bool { return false }

func (NoopGpuBackend) TryRender(points []model.Point, sample model.MovementSample, frame *model.RGBFrame) error {
	return errUnavailable
}
