package spincube

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spincube/host"
	"github.com/gogpu/spincube/internal/gpu"
	"github.com/gogpu/spincube/mesh"
	"github.com/gogpu/spincube/transform"
)

// FrameStatus reports what OnFrame did with a frame.
type FrameStatus int

const (
	// FrameRendered means the frame was drawn and submitted. A failed
	// presentation is logged and counted in Stats.Unpresented.
	FrameRendered FrameStatus = iota

	// FrameSkipped means no surface texture was available. Nothing was
	// drawn and the next frame retries.
	FrameSkipped

	// FrameFailed means recording or submission failed. The texture was
	// discarded; OnFrame returns the cause.
	FrameFailed
)

// String returns the string representation of FrameStatus.
func (s FrameStatus) String() string {
	switch s {
	case FrameRendered:
		return "Rendered"
	case FrameSkipped:
		return "Skipped"
	case FrameFailed:
		return "Failed"
	default:
		return fmt.Sprintf("FrameStatus(%d)", int(s))
	}
}

// FrameContext carries the per-frame inputs of OnFrame. It lives for one call.
type FrameContext struct {
	// Index counts OnFrame calls, starting at zero.
	Index uint64

	// Delta and Elapsed are the seconds since the previous frame and since
	// the first.
	Delta   float64
	Elapsed float64

	// Model is the model matrix uploaded for this frame.
	Model mgl32.Mat4
}

// Stats counts frames by outcome.
type Stats struct {
	Rendered uint64
	Skipped  uint64
	Failed   uint64

	// Unpresented counts rendered frames whose presentation failed after
	// submission. They are included in Rendered.
	Unpresented uint64
}

// Frames returns the total number of frames attempted.
func (s Stats) Frames() uint64 { return s.Rendered + s.Skipped + s.Failed }

// Renderer errors.
var (
	// ErrAcquire wraps a surface acquisition failure. OnFrame only logs it.
	ErrAcquire = errors.New("spincube: acquire surface texture")

	// ErrNoHalDevice is returned by New when the provider does not expose
	// hal.Device and hal.Queue through HalDevice and HalQueue.
	ErrNoHalDevice = errors.New("spincube: provider has no HAL device")

	// ErrClosed is returned by methods called after Close.
	ErrClosed = errors.New("spincube: renderer closed")

	// ErrFormatMismatch is returned by New when the provider and the surface
	// report different color formats.
	ErrFormatMismatch = errors.New("spincube: provider and surface formats differ")
)

// halProvider is implemented by hosts that expose the raw HAL device and
// queue behind gpucontext.DeviceProvider.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// resizer is implemented by surfaces that can be reconfigured in place.
type resizer interface {
	Resize(width, height uint32) error
}

// Renderer draws a spinning cube into a host surface, one OnFrame call per
// display refresh.
//
// Every frame rewrites the model matrix, acquires a surface texture,
// records one pass that clears the texture and draws the cube, and submits
// it without waiting on the GPU. Command buffers are reclaimed once the
// queue reports them complete.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	cfg     Config
	device  hal.Device
	queue   hal.Queue
	surface host.Surface
	info    gpucontext.AdapterInfo

	swapchain *gpu.Swapchain
	resources *gpu.ResourceSet

	pending []*gpu.FrameEncoder
	frame   uint64
	stats   Stats
	closed  bool
}

// New creates a renderer on the device exposed by provider, presenting into
// surface. The pipeline renders in the surface's color format; a provider
// reporting a different one is rejected with ErrFormatMismatch.
//
// The swapchain is built first so the pipeline can be compiled for its color
// format, then the resource set and the initial projection and inverse view
// uniforms.
func New(provider gpucontext.DeviceProvider, surface host.Surface, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if provider == nil || surface == nil {
		return nil, ErrNoHalDevice
	}

	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoHalDevice, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice() returned %T", ErrNoHalDevice, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue() returned %T", ErrNoHalDevice, hp.HalQueue())
	}

	format, err := negotiateFormat(surface.Format(), provider.SurfaceFormat())
	if err != nil {
		return nil, err
	}
	width, height := o.config.Width, o.config.Height
	if w, h := surface.Size(); w != 0 && h != 0 {
		width, height = w, h
	}
	o.config.Width, o.config.Height = width, height

	r := &Renderer{
		cfg:     o.config,
		device:  device,
		queue:   queue,
		surface: surface,
		info:    provider.AdapterInfo(),
	}

	r.swapchain, err = gpu.NewSwapchain(device, surface, width, height, format)
	if err != nil {
		return nil, err
	}

	m := o.mesh
	if m == nil {
		m = mesh.Cube(o.config.CubeSize)
	}
	if err := m.Validate(); err != nil {
		r.swapchain.Destroy()
		return nil, err
	}
	var resOpts []gpu.ResourceOption
	if o.config.SPIRV {
		resOpts = append(resOpts, gpu.WithSPIRV())
	}
	r.resources, err = gpu.NewResourceSet(device, queue,
		gpu.MeshData{Vertices: m.VertexBytes(), Indices: m.IndexBytes()},
		o.shaders, r.swapchain.Format(), resOpts...)
	if err != nil {
		r.swapchain.Destroy()
		return nil, err
	}

	if err := r.uploadCamera(); err != nil {
		r.Close()
		return nil, err
	}

	Logger().Info("renderer ready",
		"adapter", r.info.Name,
		"format", r.swapchain.Format().String(),
		"width", width, "height", height,
		"indices", r.resources.IndexCount())
	return r, nil
}

// negotiateFormat picks the pipeline's color format. Acquired textures carry
// the surface format, so it wins; the provider's format is only a fallback.
func negotiateFormat(surface, provider gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	switch {
	case surface == gputypes.TextureFormatUndefined:
		return provider, nil
	case provider == gputypes.TextureFormatUndefined, provider == surface:
		return surface, nil
	default:
		return 0, fmt.Errorf("%w: provider %s, surface %s", ErrFormatMismatch, provider, surface)
	}
}

// uploadCamera writes the projection for the current swapchain size and the
// inverse view of the configured camera.
func (r *Renderer) uploadCamera() error {
	w, h := r.swapchain.Size()
	proj := transform.Perspective(r.cfg.FieldOfView, transform.Aspect(w, h), r.cfg.Near, r.cfg.Far)
	if err := r.resources.WriteMatrix(gpu.MatrixProjection, proj); err != nil {
		return err
	}
	eye := mgl32.Vec3{r.cfg.Camera[0], r.cfg.Camera[1], r.cfg.Camera[2]}
	return r.resources.WriteMatrix(gpu.MatrixInverseView, transform.InverseView(eye))
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Stats returns the frame counters.
func (r *Renderer) Stats() Stats { return r.stats }

// Format returns the color format the pipeline renders to.
func (r *Renderer) Format() gputypes.TextureFormat { return r.swapchain.Format() }

// OnFrame renders one frame at elapsed seconds. A frame without a surface
// texture is skipped and reported as FrameSkipped with a nil error. Any
// other failure discards the frame and is returned.
func (r *Renderer) OnFrame(delta, elapsed float64) (FrameStatus, error) {
	if r.closed {
		return FrameFailed, ErrClosed
	}
	fc := FrameContext{Index: r.frame, Delta: delta, Elapsed: elapsed}
	r.frame++
	r.reclaim()

	status, err := r.renderFrame(&fc)
	switch status {
	case FrameRendered:
		r.stats.Rendered++
	case FrameSkipped:
		r.stats.Skipped++
	case FrameFailed:
		r.stats.Failed++
	}
	return status, err
}

func (r *Renderer) renderFrame(fc *FrameContext) (FrameStatus, error) {
	fc.Model = transform.Model(float32(fc.Elapsed))
	if err := r.resources.UpdateModelMatrix(fc.Model); err != nil {
		return FrameFailed, fmt.Errorf("spincube: frame %d: %w", fc.Index, err)
	}

	texture, err := r.surface.AcquireTexture()
	if err != nil {
		r.swapchain.Discard()
		Logger().Warn("frame skipped",
			"frame", fc.Index,
			"err", fmt.Errorf("%w: %w", ErrAcquire, err))
		return FrameSkipped, nil
	}
	if err := r.swapchain.Refresh(texture); err != nil {
		return FrameFailed, fmt.Errorf("spincube: frame %d: %w", fc.Index, err)
	}

	if err := r.draw(); err != nil {
		r.swapchain.Discard()
		return FrameFailed, fmt.Errorf("spincube: frame %d: %w", fc.Index, err)
	}

	// The frame is on the queue; a presentation failure only loses this
	// frame's image.
	if err := r.swapchain.Present(); err != nil {
		r.stats.Unpresented++
		Logger().Warn("frame not presented", "frame", fc.Index, "err", err)
	}
	return FrameRendered, nil
}

// draw records and submits the frame held by the swapchain.
func (r *Renderer) draw() error {
	enc, err := gpu.NewFrameEncoder(r.device, "Frame Encoder")
	if err != nil {
		return err
	}
	if err := r.swapchain.Clear(enc, r.cfg.clearColor(), r.resources.Draw); err != nil {
		enc.Release()
		return err
	}
	if _, err := r.swapchain.Flush(enc); err != nil {
		enc.Release()
		return err
	}
	if err := enc.Submit(r.queue); err != nil {
		enc.Release()
		return err
	}
	r.pending = append(r.pending, enc)
	return nil
}

// reclaim releases encoders whose submissions the queue has finished.
func (r *Renderer) reclaim() {
	if len(r.pending) == 0 {
		return
	}
	done := r.queue.PollCompleted()
	n := 0
	for _, enc := range r.pending {
		if enc.Completed(done) {
			enc.Release()
			continue
		}
		r.pending[n] = enc
		n++
	}
	clear(r.pending[n:])
	r.pending = r.pending[:n]
}

// Run drives OnFrame from clock until ctx is done or frames frames have been
// attempted. frames <= 0 runs until ctx is done. Skipped frames count toward
// frames. Run returns the first frame error, or ctx.Err() on cancellation.
func (r *Renderer) Run(ctx context.Context, clock Clock, frames int) error {
	for i := 0; frames <= 0 || i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		delta, elapsed := clock.Tick()
		if _, err := r.OnFrame(delta, elapsed); err != nil {
			return err
		}
	}
	return nil
}

// Resize reconfigures the surface, rebuilds the depth target and re-uploads
// the projection for the new aspect ratio.
func (r *Renderer) Resize(width, height uint32) error {
	if r.closed {
		return ErrClosed
	}
	if rs, ok := r.surface.(resizer); ok {
		if err := rs.Resize(width, height); err != nil {
			return fmt.Errorf("spincube: resize surface: %w", err)
		}
	}
	if err := r.swapchain.Resize(width, height); err != nil {
		return fmt.Errorf("spincube: %w", err)
	}
	r.cfg.Width, r.cfg.Height = width, height
	if err := r.uploadCamera(); err != nil {
		return fmt.Errorf("spincube: resize: %w", err)
	}
	Logger().Debug("renderer resized", "width", width, "height", height)
	return nil
}

// Close waits for the device to go idle and releases every GPU object the
// renderer created. The surface and device stay owned by the host.
// Safe to call multiple times.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if err := r.device.WaitIdle(); err != nil {
		Logger().Warn("wait idle on close", "err", err)
	}
	for _, enc := range r.pending {
		enc.Release()
	}
	r.pending = nil
	r.swapchain.Destroy()
	r.resources.Destroy()
}
