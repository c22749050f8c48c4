package host

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func openHeadless(t *testing.T) *GPU {
	t.Helper()
	g, err := NewHeadless(Options{Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("NewHeadless: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestHeadlessProvider(t *testing.T) {
	g := openHeadless(t)

	var _ gpucontext.DeviceProvider = g

	if _, ok := g.HalDevice().(hal.Device); !ok {
		t.Errorf("HalDevice() = %T, want hal.Device", g.HalDevice())
	}
	if _, ok := g.HalQueue().(hal.Queue); !ok {
		t.Errorf("HalQueue() = %T, want hal.Queue", g.HalQueue())
	}
	if g.SurfaceFormat() == gputypes.TextureFormatUndefined {
		t.Error("SurfaceFormat() is undefined")
	}
	if g.SurfaceFormat() != g.Format() {
		t.Errorf("SurfaceFormat() = %v, Format() = %v", g.SurfaceFormat(), g.Format())
	}
	if info := g.AdapterInfo(); info.Name == "" {
		t.Error("AdapterInfo().Name is empty")
	}
	w, h := g.Size()
	if w != 320 || h != 240 {
		t.Errorf("Size() = %dx%d, want 320x240", w, h)
	}
}

func TestHeadlessRequestedFormat(t *testing.T) {
	g, err := NewHeadless(Options{Width: 8, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("NewHeadless: %v", err)
	}
	defer g.Close()
	if g.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", g.Format())
	}
}

func TestHeadlessZeroArea(t *testing.T) {
	_, err := NewHeadless(Options{Width: 0, Height: 10})
	if !errors.Is(err, hal.ErrZeroArea) {
		t.Errorf("NewHeadless(0x10) error = %v, want hal.ErrZeroArea", err)
	}
}

func TestWindowAcquirePresent(t *testing.T) {
	g := openHeadless(t)

	for i := 0; i < 3; i++ {
		tex, err := g.AcquireTexture()
		if err != nil {
			t.Fatalf("frame %d: AcquireTexture: %v", i, err)
		}
		if tex == nil {
			t.Fatalf("frame %d: nil texture", i)
		}
		if err := g.Present(tex); err != nil {
			t.Fatalf("frame %d: Present: %v", i, err)
		}
	}

	tex, err := g.AcquireTexture()
	if err != nil {
		t.Fatalf("AcquireTexture: %v", err)
	}
	g.Discard(tex)
}

func TestWindowResize(t *testing.T) {
	g := openHeadless(t)

	if err := g.Resize(640, 480); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := g.Size(); w != 640 || h != 480 {
		t.Errorf("Size() = %dx%d, want 640x480", w, h)
	}
	if err := g.Resize(0, 480); !errors.Is(err, hal.ErrZeroArea) {
		t.Errorf("Resize(0, 480) error = %v, want hal.ErrZeroArea", err)
	}
	if w, h := g.Size(); w != 640 || h != 480 {
		t.Errorf("failed Resize changed size to %dx%d", w, h)
	}
}

func TestWindowClosed(t *testing.T) {
	g, err := NewHeadless(Options{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("NewHeadless: %v", err)
	}
	g.Close()
	g.Close()

	if _, err := g.AcquireTexture(); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("AcquireTexture after Close error = %v, want ErrSurfaceClosed", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(gputypes.Backend(250), Options{Width: 4, Height: 4})
	if !errors.Is(err, hal.ErrBackendNotFound) {
		t.Errorf("Open(unknown) error = %v, want hal.ErrBackendNotFound", err)
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   gputypes.DeviceType
		want gpucontext.AdapterType
	}{
		{gputypes.DeviceTypeDiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{gputypes.DeviceTypeIntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{gputypes.DeviceTypeCPU, gpucontext.AdapterTypeSoftware},
		{gputypes.DeviceTypeOther, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
