package host

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Surface is the presentation surface the renderer draws into. Every frame
// the renderer acquires a texture, draws into it, and hands it back through
// Present, or through Discard if the frame was abandoned.
//
// A texture is only valid until it is presented or discarded.
type Surface interface {
	// Size returns the surface dimensions in pixels.
	Size() (width, height uint32)

	// Format returns the color format of acquired textures.
	Format() gputypes.TextureFormat

	// AcquireTexture returns the texture to draw into this frame.
	AcquireTexture() (hal.SurfaceTexture, error)

	// Present queues texture for display.
	Present(texture hal.SurfaceTexture) error

	// Discard returns texture without displaying it.
	Discard(texture hal.SurfaceTexture)
}

// ErrSurfaceClosed is returned when acquiring from a closed Window.
var ErrSurfaceClosed = errors.New("host: surface is closed")

// Window is a Surface over a configured hal.Surface.
type Window struct {
	surface hal.Surface
	device  hal.Device
	queue   hal.Queue
	config  hal.SurfaceConfiguration
	closed  bool
}

// NewWindow configures surface for rendering with device and presents
// through queue. An undefined opts.Format selects the first format in caps.
func NewWindow(device hal.Device, queue hal.Queue, surface hal.Surface, caps *hal.SurfaceCapabilities, opts Options) (*Window, error) {
	if device == nil || queue == nil || surface == nil {
		return nil, errors.New("host: device, queue and surface are required")
	}
	if opts.Width == 0 || opts.Height == 0 {
		return nil, fmt.Errorf("host: %w", hal.ErrZeroArea)
	}

	format := opts.Format
	if format == gputypes.TextureFormatUndefined {
		if caps == nil || len(caps.Formats) == 0 {
			return nil, errors.New("host: surface reports no formats")
		}
		format = caps.Formats[0]
	}

	presentMode := opts.PresentMode
	if presentMode == gputypes.PresentModeUndefined {
		presentMode = gputypes.PresentModeFifo
	}

	w := &Window{
		surface: surface,
		device:  device,
		queue:   queue,
		config: hal.SurfaceConfiguration{
			Width:       opts.Width,
			Height:      opts.Height,
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: presentMode,
			AlphaMode:   hal.CompositeAlphaModeOpaque,
		},
	}
	if err := surface.Configure(device, &w.config); err != nil {
		return nil, fmt.Errorf("host: configure surface: %w", err)
	}
	slogger().Debug("surface configured",
		"width", opts.Width, "height", opts.Height, "format", format.String())
	return w, nil
}

// Size returns the configured dimensions.
func (w *Window) Size() (uint32, uint32) { return w.config.Width, w.config.Height }

// Format returns the configured color format.
func (w *Window) Format() gputypes.TextureFormat { return w.config.Format }

// AcquireTexture acquires the next surface texture. hal.ErrSurfaceOutdated,
// hal.ErrSurfaceLost and hal.ErrTimeout are passed through wrapped.
func (w *Window) AcquireTexture() (hal.SurfaceTexture, error) {
	if w.closed {
		return nil, ErrSurfaceClosed
	}
	acquired, err := w.surface.AcquireTexture(nil)
	if err != nil {
		return nil, fmt.Errorf("host: acquire texture: %w", err)
	}
	if acquired == nil || acquired.Texture == nil {
		return nil, errors.New("host: acquire texture: surface returned no texture")
	}
	if acquired.Suboptimal {
		slogger().Debug("surface texture is suboptimal")
	}
	return acquired.Texture, nil
}

// Present presents texture on the window.
func (w *Window) Present(texture hal.SurfaceTexture) error {
	if err := w.queue.Present(w.surface, texture, nil); err != nil {
		return fmt.Errorf("host: present: %w", err)
	}
	return nil
}

// Discard returns texture to the surface unpresented.
func (w *Window) Discard(texture hal.SurfaceTexture) {
	w.surface.DiscardTexture(texture)
}

// Resize reconfigures the surface. Textures acquired before Resize must
// already have been presented or discarded.
func (w *Window) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("host: resize: %w", hal.ErrZeroArea)
	}
	cfg := w.config
	cfg.Width, cfg.Height = width, height
	if err := w.surface.Configure(w.device, &cfg); err != nil {
		return fmt.Errorf("host: resize: %w", err)
	}
	w.config = cfg
	return nil
}

// Close unconfigures the surface. Safe to call multiple times.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.surface.Unconfigure(w.device)
}
