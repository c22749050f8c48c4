// Package gpu owns the long-lived GPU objects of the cube renderer and the
// swapchain that retargets command recording at a new surface texture every
// frame. It talks to the GPU exclusively through gogpu/wgpu/hal.
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Render pass errors.
var (
	// ErrPassEnded is returned when operations are called on an ended pass.
	ErrPassEnded = errors.New("gpu: render pass has already ended")

	// ErrNilPipeline is returned when SetPipeline is called with nil.
	ErrNilPipeline = errors.New("gpu: pipeline is nil")

	// ErrNilBindGroup is returned when SetBindGroup is called with nil.
	ErrNilBindGroup = errors.New("gpu: bind group is nil")

	// ErrBindGroupIndexOutOfRange is returned when bind group index exceeds maximum.
	ErrBindGroupIndexOutOfRange = errors.New("gpu: bind group index exceeds maximum (3)")

	// ErrNilVertexBuffer is returned when SetVertexBuffer is called with nil.
	ErrNilVertexBuffer = errors.New("gpu: vertex buffer is nil")

	// ErrNilIndexBuffer is returned when SetIndexBuffer is called with nil.
	ErrNilIndexBuffer = errors.New("gpu: index buffer is nil")

	// ErrNoPipeline is returned when a draw is issued before SetPipeline.
	ErrNoPipeline = errors.New("gpu: no pipeline bound")

	// ErrNoIndexBuffer is returned when DrawIndexed is issued before SetIndexBuffer.
	ErrNoIndexBuffer = errors.New("gpu: no index buffer bound")
)

// maxBindGroups is the WebGPU limit on simultaneously bound groups.
const maxBindGroups = 4

// PassState represents the state of a render pass.
type PassState int

const (
	// PassStateRecording means the pass is actively recording commands.
	PassStateRecording PassState = iota

	// PassStateEnded means the pass has been ended.
	PassStateEnded
)

// String returns the string representation of PassState.
func (s PassState) String() string {
	switch s {
	case PassStateRecording:
		return "Recording"
	case PassStateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Pass records draw commands into a render pass opened by a Swapchain.
//
// Pass replaces a render callback: the swapchain hands it back to the caller,
// who binds state and issues draws explicitly, then calls End. Commands
// recorded include:
//   - SetPipeline: Set the render pipeline for subsequent draw calls
//   - SetBindGroup: Bind a resource group to a slot
//   - SetVertexBuffer: Bind a vertex buffer to a slot
//   - SetIndexBuffer: Bind the index buffer for indexed draws
//   - DrawIndexed: Draw indexed primitives
//
// Pass is NOT safe for concurrent use.
//
// State Machine:
//
//	Recording -> End() -> Ended
type Pass struct {
	raw     hal.RenderPassEncoder
	owner   *Swapchain
	encoder hal.CommandEncoder
	frame   uint64
	state   PassState

	pipeline       hal.RenderPipeline
	hasIndexBuffer bool
	indexFormat    gputypes.IndexFormat

	// vertexBufferCount tracks the number of vertex buffer slots used.
	vertexBufferCount uint32

	draws int
}

// State returns the current pass state.
func (p *Pass) State() PassState {
	if p == nil {
		return PassStateEnded
	}
	return p.state
}

// IsEnded returns true if the pass has been ended.
func (p *Pass) IsEnded() bool {
	return p.State() == PassStateEnded
}

// Draws returns the number of draw calls recorded so far.
func (p *Pass) Draws() int {
	if p == nil {
		return 0
	}
	return p.draws
}

func (p *Pass) checkRecording() error {
	if p == nil || p.state != PassStateRecording {
		return ErrPassEnded
	}
	return nil
}

// SetPipeline binds a render pipeline for subsequent draw calls.
func (p *Pass) SetPipeline(pipeline hal.RenderPipeline) error {
	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("set pipeline: %w", err)
	}
	if pipeline == nil {
		return ErrNilPipeline
	}
	p.pipeline = pipeline
	p.raw.SetPipeline(pipeline)
	return nil
}

// SetBindGroup binds a bind group at the given slot (0-3).
func (p *Pass) SetBindGroup(slot uint32, group hal.BindGroup) error {
	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("set bind group: %w", err)
	}
	if slot >= maxBindGroups {
		return fmt.Errorf("%w: index %d", ErrBindGroupIndexOutOfRange, slot)
	}
	if group == nil {
		return ErrNilBindGroup
	}
	p.raw.SetBindGroup(slot, group, nil)
	return nil
}

// SetVertexBuffer binds a vertex buffer to a slot, starting at offset 0.
func (p *Pass) SetVertexBuffer(slot uint32, buffer hal.Buffer) error {
	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("set vertex buffer: %w", err)
	}
	if buffer == nil {
		return ErrNilVertexBuffer
	}
	if slot >= p.vertexBufferCount {
		p.vertexBufferCount = slot + 1
	}
	p.raw.SetVertexBuffer(slot, buffer, 0)
	return nil
}

// SetIndexBuffer binds the index buffer for indexed draw calls.
// Only one index buffer can be bound at a time.
func (p *Pass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat) error {
	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("set index buffer: %w", err)
	}
	if buffer == nil {
		return ErrNilIndexBuffer
	}
	p.hasIndexBuffer = true
	p.indexFormat = format
	p.raw.SetIndexBuffer(buffer, format, 0)
	return nil
}

// DrawIndexed draws indexCount indices from the bound index buffer as a
// single instance. Both a pipeline and an index buffer must be bound.
func (p *Pass) DrawIndexed(indexCount uint32) error {
	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("draw indexed: %w", err)
	}
	if p.pipeline == nil {
		return fmt.Errorf("draw indexed: %w", ErrNoPipeline)
	}
	if !p.hasIndexBuffer {
		return fmt.Errorf("draw indexed: %w", ErrNoIndexBuffer)
	}
	p.raw.DrawIndexed(indexCount, 1, 0, 0, 0)
	p.draws++
	return nil
}

// End completes the render pass and hands control back to the swapchain.
// End is idempotent.
func (p *Pass) End() error {
	if p == nil || p.state == PassStateEnded {
		return nil
	}
	p.state = PassStateEnded
	p.raw.End()
	if p.owner != nil {
		p.owner.passEnded(p)
	}
	return nil
}
