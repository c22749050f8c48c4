package host

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// The noop backend backs the headless host.
	_ "github.com/gogpu/wgpu/hal/noop"
)

// Options configures a host.
type Options struct {
	Width  uint32
	Height uint32

	// Format is the requested color format. Undefined picks the surface's
	// preferred format.
	Format gputypes.TextureFormat

	// PresentMode defaults to Fifo.
	PresentMode gputypes.PresentMode

	// DisplayHandle and WindowHandle are the platform handles passed to
	// hal.Instance.CreateSurface. Headless hosts ignore them.
	DisplayHandle uintptr
	WindowHandle  uintptr
}

// Host is a GPU device plus a presentation surface. It is what the renderer
// needs from a windowing layer.
type Host interface {
	gpucontext.DeviceProvider
	Surface

	HalDevice() any
	HalQueue() any
	Close()
}

// GPU is a Host over a hal backend: it owns the instance, the opened device
// and queue, and a configured Window.
type GPU struct {
	*Window

	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
	surface  hal.Surface
}

var _ Host = (*GPU)(nil)

// Open creates an instance of the registered hal backend variant, a surface
// from the handles in opts, and a device on the first adapter, preferring
// discrete and integrated GPUs.
func Open(variant gputypes.Backend, opts Options) (*GPU, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("host: %s: %w", variant, hal.ErrBackendNotFound)
	}

	g := &GPU{}
	if err := g.open(backend, opts); err != nil {
		g.Close()
		return nil, err
	}
	slogger().Info("host opened", "backend", variant.String(), "adapter", g.info.Name)
	return g, nil
}

func (g *GPU) open(backend hal.Backend, opts Options) error {
	var err error

	g.instance, err = backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("host: create instance: %w", err)
	}

	g.surface, err = g.instance.CreateSurface(opts.DisplayHandle, opts.WindowHandle)
	if err != nil {
		return fmt.Errorf("host: create surface: %w", err)
	}

	adapters := g.instance.EnumerateAdapters(g.surface)
	if len(adapters) == 0 {
		return fmt.Errorf("host: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	g.adapter = selected.Adapter
	g.info = selected.Info

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("host: open device: %w", err)
	}
	g.device = openDev.Device
	g.queue = openDev.Queue

	g.Window, err = NewWindow(g.device, g.queue, g.surface, selected.Adapter.SurfaceCapabilities(g.surface), opts)
	return err
}

// NewHeadless opens a host on the noop backend. Every operation succeeds
// and nothing is drawn, which makes it suitable for tests and dry runs.
func NewHeadless(opts Options) (*GPU, error) {
	return Open(gputypes.BackendEmpty, opts)
}

// Device returns the hal.Device as a gpucontext.Device.
func (g *GPU) Device() gpucontext.Device { return g.device }

// Queue returns the hal.Queue as a gpucontext.Queue.
func (g *GPU) Queue() gpucontext.Queue { return g.queue }

// Adapter returns the hal.Adapter.
func (g *GPU) Adapter() gpucontext.Adapter { return g.adapter }

// HalDevice returns the hal.Device.
func (g *GPU) HalDevice() any { return g.device }

// HalQueue returns the hal.Queue.
func (g *GPU) HalQueue() any { return g.queue }

// SurfaceFormat returns the configured surface format.
func (g *GPU) SurfaceFormat() gputypes.TextureFormat {
	if g.Window == nil {
		return gputypes.TextureFormatUndefined
	}
	return g.Window.Format()
}

// AdapterInfo reports the adapter name and type.
func (g *GPU) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: g.info.Name, Type: adapterType(g.info.DeviceType)}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// Close releases the surface, device and instance in reverse order.
// Safe to call multiple times and on a partially opened host.
func (g *GPU) Close() {
	if g.Window != nil {
		g.Window.Close()
	}
	if g.device != nil {
		if err := g.device.WaitIdle(); err != nil {
			slogger().Warn("wait idle before close", "error", err)
		}
		g.device.Destroy()
		g.device = nil
	}
	if g.surface != nil {
		g.surface.Destroy()
		g.surface = nil
	}
	if g.adapter != nil {
		g.adapter.Destroy()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Destroy()
		g.instance = nil
	}
}
