package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SwapchainState is the per-frame state of a Swapchain.
type SwapchainState int

const (
	// SwapchainStale means no valid surface texture is held. Every frame
	// starts here; Refresh moves to Ready.
	SwapchainStale SwapchainState = iota

	// SwapchainReady means the current surface texture is held and no pass
	// has been opened against it yet.
	SwapchainReady

	// SwapchainRecording means a render pass was opened against the current
	// texture. The pass may still be open or may have ended.
	SwapchainRecording

	// SwapchainSubmittable means encoding has finished. The texture is
	// consumed and must not be drawn into again; Present or Discard returns
	// the swapchain to Stale.
	SwapchainSubmittable
)

// String returns the string representation of SwapchainState.
func (s SwapchainState) String() string {
	switch s {
	case SwapchainStale:
		return "Stale"
	case SwapchainReady:
		return "Ready"
	case SwapchainRecording:
		return "Recording"
	case SwapchainSubmittable:
		return "Submittable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Presenter hands surface textures back to the window system.
// host.Surface implementations satisfy it.
type Presenter interface {
	Present(texture hal.SurfaceTexture) error
	Discard(texture hal.SurfaceTexture)
}

// Swapchain tracks the surface texture that the current frame draws into.
//
// The host surface invalidates its texture after every presentation, so the
// swapchain must be refreshed with a newly acquired texture before any pass
// is recorded. The depth target, on the other hand, is persistent and only
// rebuilt on Resize.
//
// Per-frame state machine:
//
//	Stale -> Refresh -> Ready -> BeginPass -> Recording -> Flush -> Submittable
//	Submittable -> Present | Discard -> Stale
//
// Swapchain is not safe for concurrent use.
type Swapchain struct {
	device    hal.Device
	presenter Presenter
	format    gputypes.TextureFormat

	depth depthTarget

	texture hal.SurfaceTexture
	view    hal.TextureView

	state SwapchainState
	pass  *Pass
	frame uint64
}

// NewSwapchain creates a swapchain for a surface of the given size and
// negotiated color format. The format is fixed for the swapchain's lifetime.
// presenter may be nil when the host presents textures on its own.
func NewSwapchain(device hal.Device, presenter Presenter, width, height uint32, format gputypes.TextureFormat) (*Swapchain, error) {
	if device == nil {
		return nil, setupErr("swapchain", ErrDeviceNotReady)
	}
	if format == gputypes.TextureFormatUndefined {
		return nil, setupErr("swapchain", ErrUndefinedFormat)
	}
	if width == 0 || height == 0 {
		return nil, setupErr("swapchain", fmt.Errorf("%w: %dx%d", ErrZeroArea, width, height))
	}

	s := &Swapchain{
		device:    device,
		presenter: presenter,
		format:    format,
	}
	if err := s.depth.ensure(device, width, height); err != nil {
		return nil, setupErr("depth texture", err)
	}
	slogger().Debug("swapchain created", "format", format.String(), "width", width, "height", height)
	return s, nil
}

// State returns the current frame state.
func (s *Swapchain) State() SwapchainState { return s.state }

// Format returns the negotiated color format.
func (s *Swapchain) Format() gputypes.TextureFormat { return s.format }

// Size returns the dimensions of the depth target.
func (s *Swapchain) Size() (uint32, uint32) { return s.depth.width, s.depth.height }

// Frame returns the number of successful Refresh calls.
func (s *Swapchain) Frame() uint64 { return s.frame }

// Refresh replaces the held surface texture with a newly acquired one and
// creates a view of it. It must be called once at the start of every frame,
// before BeginPass or Clear.
//
// Refresh takes ownership of texture: if it fails, the texture is handed
// back to the presenter. A texture left over from an abandoned frame is
// discarded first. Refresh fails with ErrPassOpen while a pass is still
// recording.
func (s *Swapchain) Refresh(texture hal.SurfaceTexture) error {
	if texture == nil {
		return fmt.Errorf("refresh: %w", ErrNilTexture)
	}
	if s.pass != nil && !s.pass.IsEnded() {
		if s.presenter != nil {
			s.presenter.Discard(texture)
		}
		return fmt.Errorf("refresh: %w", ErrPassOpen)
	}
	if s.texture != nil {
		slogger().Warn("discarding unpresented surface texture",
			"frame", s.frame, "state", s.state.String())
		s.Discard()
	}

	view, err := s.device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label: "Surface Texture View",
	})
	if err != nil {
		if s.presenter != nil {
			s.presenter.Discard(texture)
		}
		s.state = SwapchainStale
		return fmt.Errorf("refresh: create surface view: %w", err)
	}

	s.texture = texture
	s.view = view
	s.pass = nil
	s.frame++
	s.state = SwapchainReady
	return nil
}

// BeginPass opens a render pass against the current surface texture and the
// persistent depth target. The color attachment is cleared to color and depth
// to 1.0 before any recorded command runs.
//
// The returned Pass must be ended before Flush.
func (s *Swapchain) BeginPass(encoder hal.CommandEncoder, color gputypes.Color) (*Pass, error) {
	switch s.state {
	case SwapchainStale:
		return nil, fmt.Errorf("begin pass: %w", ErrStale)
	case SwapchainRecording, SwapchainSubmittable:
		return nil, fmt.Errorf("begin pass: %w", ErrPassActive)
	}
	if encoder == nil {
		return nil, fmt.Errorf("begin pass: %w", ErrDeviceNotReady)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "Swapchain Pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       s.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: color,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              s.depth.view,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		},
	})

	s.pass = &Pass{raw: rp, owner: s, encoder: encoder, frame: s.frame}
	s.state = SwapchainRecording
	return s.pass, nil
}

// Clear opens a pass like BeginPass, hands it to record, and ends it. The
// pass is ended even if record fails or records nothing. Errors from record
// are returned after the pass is closed; GPU-side validation errors are not
// observed here.
func (s *Swapchain) Clear(encoder hal.CommandEncoder, color gputypes.Color, record func(*Pass) error) error {
	pass, err := s.BeginPass(encoder, color)
	if err != nil {
		return err
	}
	var recErr error
	if record != nil {
		recErr = record(pass)
	}
	if err := pass.End(); err != nil && recErr == nil {
		recErr = err
	}
	if recErr != nil {
		return fmt.Errorf("clear: %w", recErr)
	}
	return nil
}

// passEnded is called by Pass.End.
func (s *Swapchain) passEnded(p *Pass) {
	if p != s.pass {
		slogger().Warn("pass ended after its frame was replaced", "pass_frame", p.frame, "frame", s.frame)
	}
}

// Flush finishes command encoding for the frame. It requires an ended pass
// recorded on encoder against the currently held texture. After Flush the texture is
// consumed: no further pass may target it, and the returned command buffer
// is ready for submission.
//
// If encoding fails the frame is discarded and the swapchain returns to Stale.
func (s *Swapchain) Flush(encoder hal.CommandEncoder) (hal.CommandBuffer, error) {
	switch s.state {
	case SwapchainStale:
		return nil, fmt.Errorf("flush: %w", ErrStale)
	case SwapchainReady, SwapchainSubmittable:
		return nil, fmt.Errorf("flush: %w", ErrNotRecording)
	}
	if !s.pass.IsEnded() {
		return nil, fmt.Errorf("flush: %w", ErrPassOpen)
	}
	if s.pass.frame != s.frame {
		return nil, fmt.Errorf("flush: pass targets frame %d, current is %d: %w", s.pass.frame, s.frame, ErrStale)
	}
	if encoder == nil {
		return nil, fmt.Errorf("flush: %w", ErrDeviceNotReady)
	}
	if encoder != s.pass.encoder {
		return nil, fmt.Errorf("flush: encoder did not record this frame's pass: %w", ErrNotRecording)
	}

	cmd, err := encoder.EndEncoding()
	if err != nil {
		s.Discard()
		return nil, fmt.Errorf("flush: end encoding: %w", err)
	}
	s.state = SwapchainSubmittable
	return cmd, nil
}

// Present hands the consumed texture to the presenter and returns the
// swapchain to Stale. The texture reference is dropped even if presentation
// fails.
func (s *Swapchain) Present() error {
	if s.state != SwapchainSubmittable {
		return fmt.Errorf("present: %w (state %s)", ErrNotSubmittable, s.state)
	}
	texture := s.texture
	s.release()
	if s.presenter == nil {
		return nil
	}
	if err := s.presenter.Present(texture); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Discard abandons the current frame: any held texture is returned to the
// presenter unpresented and the swapchain becomes Stale. Discard is used when
// acquisition, recording or submission fails, and is safe in every state.
// An open pass is ended first.
func (s *Swapchain) Discard() {
	if s.pass != nil && !s.pass.IsEnded() {
		_ = s.pass.End()
	}
	texture := s.texture
	s.release()
	if texture != nil && s.presenter != nil {
		s.presenter.Discard(texture)
	}
}

// release drops the surface texture view and resets per-frame state.
func (s *Swapchain) release() {
	if s.view != nil {
		s.device.DestroyTextureView(s.view)
		s.view = nil
	}
	s.texture = nil
	s.pass = nil
	s.state = SwapchainStale
}

// Resize rebuilds the depth target for a new surface size. The color format
// is unchanged. Resize is rejected while a pass is recording.
func (s *Swapchain) Resize(width, height uint32) error {
	if s.pass != nil && !s.pass.IsEnded() {
		return fmt.Errorf("resize: %w", ErrPassOpen)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("resize: %w: %dx%d", ErrZeroArea, width, height)
	}
	if err := s.depth.ensure(s.device, width, height); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	return nil
}

// Destroy discards any held texture and releases the depth target.
// Safe to call multiple times.
func (s *Swapchain) Destroy() {
	s.Discard()
	s.depth.destroy(s.device)
}
