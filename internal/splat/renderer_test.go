package splat

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/tigas/renderer-encoder/internal/model"
)

func TestNewEmptyPathUsesFallback(t *testing.T) {
	t.Parallel()
	r, err := New("", true, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frame := r.Render(model.MovementSample{Width: 128, Height: 128})
	if len(frame.Data) != 128*128*3 {
		t.Fatalf("frame data length = %d, want %d", len(frame.Data), 128*128*3)
	}
}

func TestNewNonEmptyPathZeroPointsFails(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/path.ply", false, nil, nil)
	if err == nil {
		t.Fatal("expected LoadFailed error")
	}
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("error = %v, want wrapping ErrLoadFailed", err)
	}
}

func TestRenderClampsDimensions(t *testing.T) {
	t.Parallel()
	r, err := New("", false, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := []struct {
		name                   string
		width, height          int
		wantWidth, wantHeight  int
	}{
		{"too-small", 0, 0, 64, 64},
		{"negative", -10, -10, 64, 64},
		{"too-large", 2000, 2000, 1280, 720},
		{"in-range", 320, 240, 320, 240},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame := r.Render(model.MovementSample{Width: c.width, Height: c.height})
			if frame.Width != c.wantWidth || frame.Height != c.wantHeight {
				t.Errorf("dims = %d,%d want %d,%d", frame.Width, frame.Height, c.wantWidth, c.wantHeight)
			}
			if len(frame.Data) != frame.Width*frame.Height*3 {
				t.Errorf("data length = %d, want %d", len(frame.Data), frame.Width*frame.Height*3)
			}
		})
	}
}

func TestFallbackTextureDeterministic(t *testing.T) {
	t.Parallel()
	r1, _ := New("", false, nil, nil)
	r2, _ := New("", false, nil, nil)
	sample := model.MovementSample{X: 1, Z: 2, Angle: 30, Elevation: 5, Width: 100, Height: 80}
	f1 := r1.Render(sample)
	f2 := r2.Render(sample)
	if len(f1.Data) != len(f2.Data) {
		t.Fatalf("length mismatch")
	}
	for i := range f1.Data {
		if f1.Data[i] != f2.Data[i] {
			t.Fatalf("byte %d differs: %d != %d", i, f1.Data[i], f2.Data[i])
		}
	}
}

func TestRenderSinglePointRedBlob(t *testing.T) {
	t.Parallel()
	points := []model.Point{
		{X: 0, Y: 0, Z: 0, R: 255, G: 0, B: 0, Opacity: 1.0, Radius: 1.0},
	}
	r := &Renderer{points: points, gpu: NoopGpuBackend{}}
	sample := model.MovementSample{X: 0, Y: 0, Z: -2, Angle: 0, Elevation: 0, Width: 128, Height: 128}
	frame := r.Render(sample)
	off := frame.At(64, 64)
	red, green, blue := frame.Data[off], frame.Data[off+1], frame.Data[off+2]
	// yz_z=2 gives depth_weight=2/(1+4)=0.4, alpha=1.0*0.4 at the center,
	// so the blended peak red is 255*0.4≈102 rather than near-opaque; the
	// blob is still unambiguously red-dominated over the black background.
	if red <= green || red <= blue {
		t.Errorf("center pixel = (%d,%d,%d), want red-dominated", red, green, blue)
	}
	if red < 95 || red > 110 {
		t.Errorf("peak red at center = %d, want ≈102", red)
	}
}

type failingGpu struct{ calls int }

func (g *failingGpu) Available() bool { return true }
func (g *failingGpu) TryRender(points []model.Point, sample model.MovementSample, frame *model.RGBFrame) error {
	g.calls++
	return errUnavailable
}

func TestGpuFailureFallsBackPermanently(t *testing.T) {
	t.Parallel()
	gpu := &failingGpu{}
	points := []model.Point{{X: 0, Y: 0, Z: 0, R: 1, G: 2, B: 3, Opacity: 1, Radius: 1}}
	r := &Renderer{points: points, gpu: gpu, useGpu: true, log: slog.Default()}
	sample := model.MovementSample{Width: 64, Height: 64}
	r.Render(sample)
	r.Render(sample)
	if gpu.calls != 1 {
		t.Errorf("gpu.TryRender called %d times, want exactly 1 (permanent fallback)", gpu.calls)
	}
}

func TestNearPlanePointsDoNotAlterPixels(t *testing.T) {
	t.Parallel()
	frame := model.NewRGBFrame(64, 64)
	before := make([]byte, len(frame.Data))
	copy(before, frame.Data)
	points := []model.Point{
		{X: 0, Y: 0, Z: 0.009, R: 255, G: 255, B: 255, Opacity: 1, Radius: 1},
	}
	renderCPU(frame, points, model.MovementSample{Width: 64, Height: 64})
	for i := range frame.Data {
		if frame.Data[i] != before[i] {
			t.Fatalf("byte %d changed despite yz_z <= 0.01 cull", i)
		}
	}
}
