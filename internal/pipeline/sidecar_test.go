package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tigas/renderer-encoder/internal/model"
)

func TestMetadataSidecarWritesExpectedLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "frame_metadata.csv")
	sc, err := NewMetadataSidecar(path)
	if err != nil {
		t.Fatalf("NewMetadataSidecar: %v", err)
	}
	if err := sc.Append(model.FrameMetadata{FrameID: 0, TimestampMs: 0}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := sc.Append(model.FrameMetadata{FrameID: 1, TimestampMs: 16}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "0,0\n1,16\n"
	if string(data) != want {
		t.Errorf("contents = %q, want %q", data, want)
	}
}

func TestMetadataSidecarOpenFailureIsIOError(t *testing.T) {
	t.Parallel()
	_, err := NewMetadataSidecar(filepath.Join(t.TempDir(), "missing-dir", "out.csv"))
	if err == nil {
		t.Fatal("expected error opening sidecar in nonexistent directory")
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("error = %v, want wrapping ErrIO", err)
	}
}
