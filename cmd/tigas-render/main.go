// Command tigas-render renders a movement trace against a Gaussian
// splat point cloud and encodes the result into a lossless archival
// stream, a lossy (or live DASH) test stream, an optional CRF ladder,
// and a per-frame metadata sidecar.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tigas/renderer-encoder/internal/config"
	"github.com/tigas/renderer-encoder/internal/encode"
	"github.com/tigas/renderer-encoder/internal/model"
	"github.com/tigas/renderer-encoder/internal/pipeline"
	"github.com/tigas/renderer-encoder/internal/splat"
	"github.com/tigas/renderer-encoder/internal/tigaslog"
	"github.com/tigas/renderer-encoder/internal/trace"
)

const diagnosticPrefix = "[tigas_renderer_encoder]"

func main() {
	log := tigaslog.Init()

	if err := run(os.Args[1:], log); err != nil {
		log.Error("run failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s %v\n", diagnosticPrefix, err)
		os.Exit(1)
	}
}

func run(args []string, log *slog.Logger) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}
	log = log.With("run_id", cfg.RunID)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	samples, err := trace.NewFileProvider(cfg.TracePath).Samples()
	if err != nil {
		return err
	}
	if cfg.MaxFrames > 0 && len(samples) > cfg.MaxFrames {
		samples = samples[:cfg.MaxFrames]
	}

	renderer, err := splat.New(cfg.PlyPath, cfg.PreferGpu, nil, log)
	if err != nil {
		return err
	}

	width, height := frameDimensions(samples)

	encoders, err := buildEncoders(cfg, width, height, log)
	if err != nil {
		return err
	}

	sidecar, err := pipeline.NewMetadataSidecar(filepath.Join(cfg.OutputDir, "frame_metadata.csv"))
	if err != nil {
		return err
	}
	defer sidecar.Close()

	pipelineEncoders := make([]pipeline.Encoder, len(encoders))
	for i, e := range encoders {
		pipelineEncoders[i] = e
		defer e.Destroy()
	}

	realtime := cfg.Realtime || cfg.LiveDash
	p := pipeline.New(renderer, pipelineEncoders, sidecar, realtime, log)
	return p.Run(samples)
}

// frameDimensions picks the dimensions of the first sample (800x600 when
// no samples are present), clamped to the same bounds Render applies per
// sample: encoders are constructed once, up front, so they must agree
// with Render's dimensions from the first frame onward.
func frameDimensions(samples []model.MovementSample) (int, int) {
	if len(samples) == 0 {
		return splat.ClampDimensions(800, 600)
	}
	return splat.ClampDimensions(samples[0].Width, samples[0].Height)
}

func buildEncoders(cfg *config.Config, width, height int, log *slog.Logger) ([]*encode.Encoder, error) {
	var encoders []*encode.Encoder

	if !cfg.LiveDash {
		lossless, err := encode.New(
			filepath.Join(cfg.OutputDir, "ground_truth_lossless.mkv"),
			model.EncodeConfig{FPS: cfg.FPS, Lossless: true, RunID: cfg.RunID},
			width, height, log,
		)
		if err != nil {
			return nil, err
		}
		encoders = append(encoders, lossless)
	}

	baseEncodeConfig := model.EncodeConfig{
		CodecName:        cfg.CodecName,
		FPS:              cfg.FPS,
		CRF:              cfg.CRF,
		LiveDash:         cfg.LiveDash,
		DashWindowSize:   cfg.DashWindow,
		DashInitSegName:  "init_$RepresentationID$.m4s",
		DashMediaSegName: "chunk_$RepresentationID$_$Number$.m4s",
		RunID:            cfg.RunID,
	}

	basePath := filepath.Join(cfg.OutputDir, "test_stream_lossy.mp4")
	if cfg.LiveDash {
		basePath = cfg.OutputDir
	}
	base, err := encode.New(basePath, baseEncodeConfig, width, height, log)
	if err != nil {
		return nil, err
	}
	encoders = append(encoders, base)

	if !cfg.LiveDash {
		for i, crf := range cfg.CRFLadder {
			if crf == cfg.CRF {
				continue
			}
			ladderConfig := baseEncodeConfig
			ladderConfig.CRF = crf
			path := filepath.Join(cfg.OutputDir, fmt.Sprintf("test_stream_lossy_p%d.mp4", i))
			enc, err := encode.New(path, ladderConfig, width, height, log)
			if err != nil {
				return nil, err
			}
			encoders = append(encoders, enc)
		}
	}

	return encoders, nil
}
