// Package config parses the CLI surface that drives one render: the
// movement trace and PLY paths, output directory, encode parameters,
// and an optional YAML file supplying defaults for any of them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrConfig is the sentinel for missing required inputs, an unparsable
// CRF ladder, or an unrecognized CLI option.
var ErrConfig = errors.New("config: invalid configuration")

// Error wraps ErrConfig with the field that failed validation.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return ErrConfig
}

// Config is the fully resolved set of parameters for one render run.
type Config struct {
	TracePath  string
	OutputDir  string
	PlyPath    string
	MaxFrames  int
	FPS        int
	CRF        int
	CodecName  string
	PreferGpu  bool
	CRFLadder  []int
	LiveDash   bool
	Realtime   bool
	DashWindow int

	RunID string
}

// fileOverlay mirrors the optional YAML config file's shape. Every field
// is optional; CLI flags always override values present here.
type fileOverlay struct {
	TracePath  *string `yaml:"trace_path"`
	OutputDir  *string `yaml:"output_dir"`
	PlyPath    *string `yaml:"ply_path"`
	MaxFrames  *int    `yaml:"max_frames"`
	FPS        *int    `yaml:"fps"`
	CRF        *int    `yaml:"crf"`
	CodecName  *string `yaml:"codec_name"`
	PreferGpu  *bool   `yaml:"prefer_gpu"`
	CRFLadder  *string `yaml:"crf_ladder"`
	LiveDash   *bool   `yaml:"live_dash"`
	Realtime   *bool   `yaml:"realtime"`
	DashWindow *int    `yaml:"dash_window_size"`
}

// Parse parses CLI arguments, applies an optional --config YAML overlay
// as defaults, and validates the result.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tigas-render", flag.ContinueOnError)

	configPath := fs.String("config", "", "optional YAML file supplying parameter defaults")
	tracePath := fs.String("trace", "", "path to the movement trace JSON file")
	outputDir := fs.String("output", "", "output directory for rendered/encoded artifacts")
	plyPath := fs.String("ply", "", "optional path to a PLY point cloud")
	maxFrames := fs.Int("max-frames", 600, "maximum number of frames to render")
	fps := fs.Int("fps", 60, "frames per second")
	crf := fs.Int("crf", 26, "base CRF/CQ value")
	codecName := fs.String("codec", "h264_nvenc", "codec name")
	preferGpu := fs.Bool("gpu", true, "prefer the GPU render path when available")
	crfLadder := fs.String("crf-ladder", "", "comma-separated CRF ladder, e.g. 26,28,30")
	liveDash := fs.Bool("live-dash", false, "emit a live DASH stream instead of MP4/MKV outputs")
	realtime := fs.Bool("realtime", false, "pace frame production to real time")
	dashWindow := fs.Int("dash-window", 5, "DASH live window size in segments")

	if err := fs.Parse(args); err != nil {
		return nil, &Error{Field: "args", Err: err}
	}

	cfg := &Config{
		TracePath:  *tracePath,
		OutputDir:  *outputDir,
		PlyPath:    *plyPath,
		MaxFrames:  *maxFrames,
		FPS:        *fps,
		CRF:        *crf,
		CodecName:  *codecName,
		PreferGpu:  *preferGpu,
		LiveDash:   *liveDash,
		Realtime:   *realtime,
		DashWindow: *dashWindow,
	}

	ladderStr := *crfLadder

	if *configPath != "" {
		overlay, err := loadOverlay(*configPath)
		if err != nil {
			return nil, err
		}
		applyOverlay(cfg, overlay, fs, &ladderStr)
	}

	if cfg.LiveDash {
		cfg.Realtime = true
	}

	if ladderStr != "" {
		ladder, err := parseLadder(ladderStr)
		if err != nil {
			return nil, &Error{Field: "crf-ladder", Err: err}
		}
		cfg.CRFLadder = ladder
	}

	if cfg.TracePath == "" {
		return nil, &Error{Field: "trace", Err: errors.New("required")}
	}
	if cfg.OutputDir == "" {
		return nil, &Error{Field: "output", Err: errors.New("required")}
	}

	cfg.RunID = uuid.NewString()

	return cfg, nil
}

func loadOverlay(path string) (*fileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "config", Err: err}
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, &Error{Field: "config", Err: err}
	}
	return &overlay, nil
}

// applyOverlay fills any parameter whose flag was not set on the command
// line with the corresponding overlay value, if present. Flags explicitly set on the
// command line are never overridden.
func applyOverlay(cfg *Config, overlay *fileOverlay, fs *flag.FlagSet, ladderStr *string) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["trace"] && overlay.TracePath != nil {
		cfg.TracePath = *overlay.TracePath
	}
	if !set["output"] && overlay.OutputDir != nil {
		cfg.OutputDir = *overlay.OutputDir
	}
	if !set["ply"] && overlay.PlyPath != nil {
		cfg.PlyPath = *overlay.PlyPath
	}
	if !set["max-frames"] && overlay.MaxFrames != nil {
		cfg.MaxFrames = *overlay.MaxFrames
	}
	if !set["fps"] && overlay.FPS != nil {
		cfg.FPS = *overlay.FPS
	}
	if !set["crf"] && overlay.CRF != nil {
		cfg.CRF = *overlay.CRF
	}
	if !set["codec"] && overlay.CodecName != nil {
		cfg.CodecName = *overlay.CodecName
	}
	if !set["gpu"] && overlay.PreferGpu != nil {
		cfg.PreferGpu = *overlay.PreferGpu
	}
	if !set["crf-ladder"] && overlay.CRFLadder != nil && *ladderStr == "" {
		*ladderStr = *overlay.CRFLadder
	}
	if !set["live-dash"] && overlay.LiveDash != nil {
		cfg.LiveDash = *overlay.LiveDash
	}
	if !set["realtime"] && overlay.Realtime != nil {
		cfg.Realtime = *overlay.Realtime
	}
	if !set["dash-window"] && overlay.DashWindow != nil {
		cfg.DashWindow = *overlay.DashWindow
	}
}

func parseLadder(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ladder := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse ladder entry %q: %w", p, err)
		}
		ladder = append(ladder, v)
	}
	return ladder, nil
}
