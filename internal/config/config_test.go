package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Parse([]string{"-trace", "trace.json", "-output", "out"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.FPS != 60 || cfg.CRF != 26 || cfg.MaxFrames != 600 || cfg.CodecName != "h264_nvenc" {
		t.Errorf("defaults mismatch: %+v", cfg)
	}
	if !cfg.PreferGpu {
		t.Errorf("PreferGpu default should be true")
	}
	if cfg.RunID == "" {
		t.Errorf("RunID should be populated")
	}
}

func TestParseMissingTraceIsConfigError(t *testing.T) {
	t.Parallel()
	_, err := Parse([]string{"-output", "out"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("error = %v, want wrapping ErrConfig", err)
	}
}

func TestParseMissingOutputIsConfigError(t *testing.T) {
	t.Parallel()
	_, err := Parse([]string{"-trace", "trace.json"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("error = %v, want wrapping ErrConfig", err)
	}
}

func TestLiveDashImpliesRealtime(t *testing.T) {
	t.Parallel()
	cfg, err := Parse([]string{"-trace", "t.json", "-output", "out", "-live-dash"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Realtime {
		t.Errorf("live-dash should imply realtime")
	}
}

func TestParseCRFLadder(t *testing.T) {
	t.Parallel()
	cfg, err := Parse([]string{"-trace", "t.json", "-output", "out", "-crf-ladder", "26,28,30"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []int{26, 28, 30}
	if len(cfg.CRFLadder) != len(want) {
		t.Fatalf("ladder = %v, want %v", cfg.CRFLadder, want)
	}
	for i := range want {
		if cfg.CRFLadder[i] != want[i] {
			t.Errorf("ladder[%d] = %d, want %d", i, cfg.CRFLadder[i], want[i])
		}
	}
}

func TestParseInvalidCRFLadder(t *testing.T) {
	t.Parallel()
	_, err := Parse([]string{"-trace", "t.json", "-output", "out", "-crf-ladder", "26,oops"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("error = %v, want wrapping ErrConfig", err)
	}
}

func TestParseYAMLOverlayDoesNotOverrideExplicitFlags(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "overlay.yaml")
	contents := "fps: 30\ncrf: 18\noutput_dir: from-yaml\n"
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg, err := Parse([]string{"-trace", "t.json", "-output", "from-cli", "-config", cfgPath, "-fps", "24"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.FPS != 24 {
		t.Errorf("FPS = %d, want CLI value 24 to win over overlay", cfg.FPS)
	}
	if cfg.CRF != 18 {
		t.Errorf("CRF = %d, want overlay value 18 since not set on CLI", cfg.CRF)
	}
	if cfg.OutputDir != "from-cli" {
		t.Errorf("OutputDir = %q, want CLI value to win", cfg.OutputDir)
	}
}

func TestParseMissingConfigFileIsConfigError(t *testing.T) {
	t.Parallel()
	_, err := Parse([]string{"-trace", "t.json", "-output", "out", "-config", "/nonexistent/overlay.yaml"})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("error = %v, want wrapping ErrConfig", err)
	}
}
