// Package splat implements the CPU point-cloud renderer: projection,
// depth culling, screen-space Gaussian splatting with alpha compositing,
// and a deterministic fallback texture when no points are loaded.
package splat

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/tigas/renderer-encoder/internal/model"
	"github.com/tigas/renderer-encoder/internal/ply"
)

// ErrLoadFailed indicates a non-empty PLY path parsed to zero points.
var ErrLoadFailed = errors.New("splat: ply load failed")

var errUnavailable = errors.New("splat: gpu backend unavailable")

// LoadError wraps ErrLoadFailed with the path that failed to load.
type LoadError struct {
	Path string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("splat: load %s: %v", e.Path, ErrLoadFailed)
}

func (e *LoadError) Unwrap() error {
	return ErrLoadFailed
}

const (
	minWidth, maxWidth   = 64, 1280
	minHeight, maxHeight = 64, 720
)

// ClampDimensions clamps a requested (width, height) pair to the same
// [64,1280]×[64,720] bounds Render applies per sample, for callers that
// need to size a frame before the first sample is rendered.
func ClampDimensions(width, height int) (int, int) {
	return clampInt(width, minWidth, maxWidth), clampInt(height, minHeight, maxHeight)
}

// Renderer projects a point cloud into RGB frames for a sequence of
// camera poses, or synthesizes a deterministic fallback texture when no
// points were loaded.
type Renderer struct {
	points []model.Point
	gpu    GpuBackend
	useGpu bool
	log    *slog.Logger

	gpuFailureLogged bool
}

// New constructs a Renderer. If plyPath is non-empty and loads zero
// points, it returns a *LoadError. An empty plyPath is valid and selects
// the fallback-texture path.
func New(plyPath string, preferGpu bool, gpu GpuBackend, log *slog.Logger) (*Renderer, error) {
	if log == nil {
		log = slog.Default()
	}
	if gpu == nil {
		gpu = NoopGpuBackend{}
	}

	var points []model.Point
	if plyPath != "" {
		loaded, err := ply.Load(plyPath)
		if err != nil {
			return nil, &LoadError{Path: plyPath}
		}
		if len(loaded) == 0 {
			return nil, &LoadError{Path: plyPath}
		}
		points = loaded
	}

	return &Renderer{
		points: points,
		gpu:    gpu,
		useGpu: preferGpu && gpu.Available(),
		log:    log.With("component", "splat-renderer"),
	}, nil
}

// Render produces one frame for the given sample.
func (r *Renderer) Render(sample model.MovementSample) *model.RGBFrame {
	width := clampInt(sample.Width, minWidth, maxWidth)
	height := clampInt(sample.Height, minHeight, maxHeight)
	frame := model.NewRGBFrame(width, height)

	if r.useGpu && len(r.points) > 0 {
		if err := r.gpu.TryRender(r.points, sample, frame); err == nil {
			return frame
		}
		r.useGpu = false
		if !r.gpuFailureLogged {
			r.log.Warn("gpu render failed, falling back to cpu path", "error", "gpu render failed")
			r.gpuFailureLogged = true
		}
	}

	if len(r.points) > 0 {
		renderCPU(frame, r.points, sample)
	} else {
		renderFallback(frame, sample)
	}
	return frame
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func renderCPU(frame *model.RGBFrame, points []model.Point, sample model.MovementSample) {
	width, height := frame.Width, frame.Height
	yaw := radians(float64(sample.Angle))
	pitch := radians(float64(sample.Elevation))
	cx := float64(width) / 2
	cy := float64(height) / 2

	sinYaw, cosYaw := math.Sin(yaw), math.Cos(yaw)
	sinPitch, cosPitch := math.Sin(pitch), math.Cos(pitch)

	for _, p := range points {
		tx := float64(p.X) - float64(sample.X)
		ty := float64(p.Y) - float64(sample.Y)
		tz := float64(p.Z) - float64(sample.Z)

		xzX := cosYaw*tx - sinYaw*tz
		xzZ := sinYaw*tx + cosYaw*tz
		yzY := cosPitch*ty - sinPitch*xzZ
		yzZ := sinPitch*ty + cosPitch*xzZ

		if yzZ <= 0.01 {
			continue
		}

		px := int(cx + (xzX/yzZ)*float64(width)/2)
		py := int(cy - (yzY/yzZ)*float64(height)/2)

		if px <= 0 || py <= 0 || px >= width-1 || py >= height-1 {
			continue
		}

		depthWeight := clampF(2/(1+yzZ*yzZ), 0.15, 1.0)
		screenRadius := clampF((float64(p.Radius)*float64(width)/math.Max(yzZ, 0.05))*0.05, 1.0, 9.0)
		radiusPx := int(math.Ceil(screenRadius))
		sigma2 := math.Max(0.5, screenRadius*screenRadius/2)

		for dy := -radiusPx; dy <= radiusPx; dy++ {
			y := py + dy
			if y < 0 || y >= height {
				continue
			}
			for dx := -radiusPx; dx <= radiusPx; dx++ {
				x := px + dx
				if x < 0 || x >= width {
					continue
				}
				d2 := float64(dx*dx + dy*dy)
				alpha := clampF(math.Exp(-d2/(2*sigma2))*float64(p.Opacity)*depthWeight, 0, 1)
				compositePixel(frame, x, y, p.R, p.G, p.B, alpha)
			}
		}
	}
}

func compositePixel(frame *model.RGBFrame, x, y int, r, g, b uint8, alpha float64) {
	off := frame.At(x, y)
	frame.Data[off+0] = blend(frame.Data[off+0], r, alpha)
	frame.Data[off+1] = blend(frame.Data[off+1], g, alpha)
	frame.Data[off+2] = blend(frame.Data[off+2], b, alpha)
}

func blend(base, color uint8, alpha float64) uint8 {
	v := float64(base)*(1-alpha) + float64(color)*alpha
	return uint8(clampF(v, 0, 255))
}

func renderFallback(frame *model.RGBFrame, sample model.MovementSample) {
	width, height := frame.Width, frame.Height
	yaw := radians(float64(sample.Angle))
	pitch := radians(float64(sample.Elevation))
	phase := 0.6*float64(sample.X) + 0.4*float64(sample.Z) + yaw
	elev := pitch

	for y := 0; y < height; y++ {
		ny := float64(y) / float64(height)
		for x := 0; x < width; x++ {
			nx := float64(x) / float64(width)
			r := (math.Sin((nx+phase)*math.Pi)/2 + 0.5) * 255
			g := (math.Cos((ny+elev)*math.Pi)/2 + 0.5) * 255
			b := (math.Sin((nx+ny+phase)*math.Pi)/2 + 0.5) * 255

			off := frame.At(x, y)
			frame.Data[off+0] = uint8(clampF(r, 0, 255))
			frame.Data[off+1] = uint8(clampF(g, 0, 255))
			frame.Data[off+2] = uint8(clampF(b, 0, 255))
		}
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
