// Package pipeline drives the per-sample render/encode/sidecar loop: one
// rendered frame per movement sample, fanned out to every configured
// encoder in order, paced to real time when enabled.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tigas/renderer-encoder/internal/model"
)

// Encoder is the subset of encode.Encoder the pipeline depends on.
type Encoder interface {
	Encode(frame *model.RGBFrame, meta model.FrameMetadata) error
	Flush() error
}

// Renderer is the subset of splat.Renderer the pipeline depends on.
type Renderer interface {
	Render(sample model.MovementSample) *model.RGBFrame
}

// Sidecar is the subset of MetadataSidecar the pipeline depends on.
type Sidecar interface {
	Append(meta model.FrameMetadata) error
}

// Clock abstracts wall-clock time so the realtime pacing loop can be
// tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time   { return time.Now() }
func (systemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Pipeline renders each movement sample once and fans the frame out to
// every encoder in list order.
type Pipeline struct {
	log      *slog.Logger
	renderer Renderer
	encoders []Encoder
	sidecar  Sidecar
	realtime bool
	clock    Clock
}

// New constructs a Pipeline. encoders are flushed, in order, after Run
// completes or fails.
func New(renderer Renderer, encoders []Encoder, sidecar Sidecar, realtime bool, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:      log.With("component", "pipeline"),
		renderer: renderer,
		encoders: encoders,
		sidecar:  sidecar,
		realtime: realtime,
		clock:    systemClock{},
	}
}

// Run processes every sample in order. If any encoder returns an error,
// the run aborts immediately and the error is surfaced; every encoder is
// still flushed afterward, in list order, with flush errors logged but
// not returned (flush errors are only reported when Flush is called
// explicitly outside the pipeline).
func (p *Pipeline) Run(samples []model.MovementSample) error {
	start := p.clock.Now()
	var runErr error

	for _, sample := range samples {
		if p.realtime {
			target := start.Add(time.Duration(sample.TMs) * time.Millisecond)
			if d := target.Sub(p.clock.Now()); d > 0 {
				p.clock.Sleep(d)
			}
		}

		frame := p.renderer.Render(sample)
		meta := model.FrameMetadata{FrameID: sample.FrameID, TimestampMs: sample.TMs}

		for i, enc := range p.encoders {
			if err := enc.Encode(frame, meta); err != nil {
				runErr = fmt.Errorf("pipeline: encoder %d: frame %d: %w", i, sample.FrameID, err)
				break
			}
		}
		if runErr != nil {
			break
		}

		if err := p.sidecar.Append(meta); err != nil {
			runErr = fmt.Errorf("pipeline: sidecar: frame %d: %w", sample.FrameID, err)
			break
		}
	}

	for _, enc := range p.encoders {
		if err := enc.Flush(); err != nil {
			p.log.Error("encoder flush failed", "error", err)
		}
	}

	return runErr
}
