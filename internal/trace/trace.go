// Package trace loads the movement trace that drives a render: an
// ordered sequence of camera poses and viewport sizes.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tigas/renderer-encoder/internal/model"
)

// ErrMalformed is returned when the trace file's root value is not a
// JSON array.
var ErrMalformed = errors.New("trace: malformed movement trace")

// ErrIO is returned when the trace file cannot be opened or read.
var ErrIO = errors.New("trace: io failure")

// MalformedError wraps ErrMalformed with the path that failed to parse.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("trace: parse %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// IOError wraps ErrIO with the path that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("trace: read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return ErrIO
}

// Provider yields the ordered sequence of movement samples for a render.
type Provider interface {
	Samples() ([]model.MovementSample, error)
}

// rawSample mirrors the JSON shape of one trace element; every field is
// optional and defaults per entry below.
type rawSample struct {
	TMs        *int64   `json:"tMs"`
	DurationMs *int     `json:"durationMs"`
	X          *float32 `json:"x"`
	Y          *float32 `json:"y"`
	Z          *float32 `json:"z"`
	Angle      *float32 `json:"angle"`
	Elevation  *float32 `json:"elevation"`
	Width      *int     `json:"width"`
	Height     *int     `json:"height"`
}

// FileProvider loads a movement trace from a JSON file on disk.
type FileProvider struct {
	Path string
}

// NewFileProvider returns a Provider backed by the JSON file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Samples reads and decodes the trace file, assigning FrameID in
// enumeration order and applying the documented per-field defaults.
func (p *FileProvider) Samples() ([]model.MovementSample, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, &IOError{Path: p.Path, Err: err}
	}

	var raw []rawSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedError{Path: p.Path, Err: err}
	}

	samples := make([]model.MovementSample, len(raw))
	for i, r := range raw {
		samples[i] = model.MovementSample{
			FrameID:    i,
			TMs:        derefInt64(r.TMs, 0),
			DurationMs: derefInt(r.DurationMs, 16),
			X:          derefFloat32(r.X, 0),
			Y:          derefFloat32(r.Y, 0),
			Z:          derefFloat32(r.Z, 0),
			Angle:      derefFloat32(r.Angle, 0),
			Elevation:  derefFloat32(r.Elevation, 0),
			Width:      derefInt(r.Width, 800),
			Height:     derefInt(r.Height, 600),
		}
	}
	return samples, nil
}

func derefInt64(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

func derefInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func derefFloat32(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}
