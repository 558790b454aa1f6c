// Package model holds the data types shared across the rendering and
// encoding pipeline: points loaded from a PLY file, the movement samples
// that drive a render, the RGB frames produced by the renderer, and the
// per-frame encode configuration.
package model

// Point is a single Gaussian splat: position, color, opacity and screen
// footprint radius, already resolved from whatever PLY property layout
// produced it.
type Point struct {
	X, Y, Z float32
	R, G, B uint8
	Opacity float32
	Radius  float32
}

// MovementSample is one entry of a movement trace: a camera pose and
// viewport size at a point in time.
type MovementSample struct {
	FrameID    int
	TMs        int64
	DurationMs int
	X, Y, Z    float32
	Angle      float32
	Elevation  float32
	Width      int
	Height     int
}

// RGBFrame is an 8-bit packed RGB image, row-major, no row padding.
type RGBFrame struct {
	Width, Height int
	Data          []byte
}

// NewRGBFrame allocates a zeroed frame of the given dimensions.
func NewRGBFrame(width, height int) *RGBFrame {
	return &RGBFrame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*3),
	}
}

// At returns the byte offset of pixel (x, y) within Data.
func (f *RGBFrame) At(x, y int) int {
	return (y*f.Width + x) * 3
}

// FrameMetadata is the per-frame record carried in the metadata sidecar
// and in the in-band SEI payload.
type FrameMetadata struct {
	FrameID     int
	TimestampMs int64
}

// EncodeConfig parameterizes one Encoder instance.
type EncodeConfig struct {
	CodecName        string
	FPS              int
	CRF              int
	Lossless         bool
	LiveDash         bool
	DashWindowSize   int
	DashInitSegName  string
	DashMediaSegName string
	// RunID correlates every log line for a single render invocation; it
	// has no wire-format or behavioral meaning.
	RunID string
}
