package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spincube/internal/gpu/gputest"
)

// passHandles are non-nil noop objects to bind into a pass.
type passHandles struct {
	pipeline hal.RenderPipeline
	group    hal.BindGroup
	buffer   hal.Buffer
}

func newPassHandles(t *testing.T, dev *gputest.Device) passHandles {
	t.Helper()
	pipeline, err := dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{Label: "test"})
	if err != nil {
		t.Fatal(err)
	}
	group, err := dev.CreateBindGroup(&hal.BindGroupDescriptor{Label: "test"})
	if err != nil {
		t.Fatal(err)
	}
	buffer, err := dev.CreateBuffer(&hal.BufferDescriptor{Label: "test", Size: 16, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	return passHandles{pipeline: pipeline, group: group, buffer: buffer}
}

// newRecordingPass returns a detached pass over a recording encoder.
func newRecordingPass(t *testing.T) (*Pass, passHandles, *gputest.Log) {
	t.Helper()
	dev, _ := gputest.New()
	enc := dev.NewEncoder(t)
	raw := enc.BeginRenderPass(&hal.RenderPassDescriptor{Label: "test"})
	return &Pass{raw: raw, state: PassStateRecording}, newPassHandles(t, dev), dev.Log
}

func TestPassState(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *Pass
		expected PassState
	}{
		{
			name: "recording state on creation",
			setup: func() *Pass {
				p, _, _ := newRecordingPass(t)
				return p
			},
			expected: PassStateRecording,
		},
		{
			name: "ended state after End",
			setup: func() *Pass {
				p, _, _ := newRecordingPass(t)
				_ = p.End()
				return p
			},
			expected: PassStateEnded,
		},
		{
			name:     "nil pass returns ended",
			setup:    func() *Pass { return nil },
			expected: PassStateEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.setup()
			if got := p.State(); got != tt.expected {
				t.Errorf("State() = %v, want %v", got, tt.expected)
			}
			if got := p.IsEnded(); got != (tt.expected == PassStateEnded) {
				t.Errorf("IsEnded() = %v", got)
			}
		})
	}
}

func TestPassStateString(t *testing.T) {
	tests := []struct {
		state PassState
		want  string
	}{
		{PassStateRecording, "Recording"},
		{PassStateEnded, "Ended"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestPassNilHandles(t *testing.T) {
	p, _, _ := newRecordingPass(t)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"pipeline", func() error { return p.SetPipeline(nil) }, ErrNilPipeline},
		{"bind group", func() error { return p.SetBindGroup(0, nil) }, ErrNilBindGroup},
		{"vertex buffer", func() error { return p.SetVertexBuffer(0, nil) }, ErrNilVertexBuffer},
		{"index buffer", func() error { return p.SetIndexBuffer(nil, gputypes.IndexFormatUint16) }, ErrNilIndexBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPassBindGroupRange(t *testing.T) {
	p, h, _ := newRecordingPass(t)
	for slot := uint32(0); slot < maxBindGroups; slot++ {
		if err := p.SetBindGroup(slot, h.group); err != nil {
			t.Errorf("SetBindGroup(%d) = %v", slot, err)
		}
	}
	if err := p.SetBindGroup(maxBindGroups, h.group); !errors.Is(err, ErrBindGroupIndexOutOfRange) {
		t.Errorf("SetBindGroup(%d) = %v, want ErrBindGroupIndexOutOfRange", maxBindGroups, err)
	}
}

func TestPassDrawRequiresState(t *testing.T) {
	t.Run("no pipeline", func(t *testing.T) {
		p, h, _ := newRecordingPass(t)
		_ = p.SetIndexBuffer(h.buffer, gputypes.IndexFormatUint16)
		if err := p.DrawIndexed(3); !errors.Is(err, ErrNoPipeline) {
			t.Errorf("DrawIndexed = %v, want ErrNoPipeline", err)
		}
	})
	t.Run("no index buffer", func(t *testing.T) {
		p, h, _ := newRecordingPass(t)
		_ = p.SetPipeline(h.pipeline)
		if err := p.DrawIndexed(3); !errors.Is(err, ErrNoIndexBuffer) {
			t.Errorf("DrawIndexed = %v, want ErrNoIndexBuffer", err)
		}
	})
	t.Run("complete", func(t *testing.T) {
		p, h, log := newRecordingPass(t)
		_ = p.SetPipeline(h.pipeline)
		_ = p.SetVertexBuffer(0, h.buffer)
		_ = p.SetIndexBuffer(h.buffer, gputypes.IndexFormatUint16)
		if err := p.DrawIndexed(6); err != nil {
			t.Fatalf("DrawIndexed = %v", err)
		}
		if p.Draws() != 1 {
			t.Errorf("Draws() = %d, want 1", p.Draws())
		}
		draws := log.Filter(gputest.OpDrawIndexed)
		if len(draws) != 1 || draws[0].Count != 6 || draws[0].Slot != 1 {
			t.Errorf("recorded draws = %+v, want one DrawIndexed(6, 1)", draws)
		}
	})
}

func TestPassAfterEnd(t *testing.T) {
	p, h, log := newRecordingPass(t)
	if err := p.End(); err != nil {
		t.Fatal(err)
	}
	if err := p.End(); err != nil {
		t.Errorf("second End() = %v, want nil", err)
	}
	if n := len(log.Filter(gputest.OpEndPass)); n != 1 {
		t.Errorf("raw End calls = %d, want 1", n)
	}

	calls := map[string]func() error{
		"SetPipeline":     func() error { return p.SetPipeline(h.pipeline) },
		"SetBindGroup":    func() error { return p.SetBindGroup(0, h.group) },
		"SetVertexBuffer": func() error { return p.SetVertexBuffer(0, h.buffer) },
		"SetIndexBuffer":  func() error { return p.SetIndexBuffer(h.buffer, gputypes.IndexFormatUint16) },
		"DrawIndexed":     func() error { return p.DrawIndexed(3) },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrPassEnded) {
			t.Errorf("%s after End = %v, want ErrPassEnded", name, err)
		}
	}
	if p.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", p.Draws())
	}
}
