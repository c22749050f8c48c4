// Package gputest wraps the noop hal backend with decorators that record
// what the renderer asks of the GPU: buffer writes, render pass commands,
// submissions and presentation. Tests assert on the recorded Log instead of
// on pixels.
package gputest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Op names a recorded call.
type Op string

const (
	OpCreateBuffer   Op = "create_buffer"
	OpWriteBuffer    Op = "write_buffer"
	OpCreateShader   Op = "create_shader"
	OpCreatePipeline Op = "create_pipeline"
	OpCreateTexture  Op = "create_texture"
	OpBeginPass      Op = "begin_pass"
	OpSetPipeline    Op = "set_pipeline"
	OpSetBindGroup   Op = "set_bind_group"
	OpSetVertex      Op = "set_vertex_buffer"
	OpSetIndex       Op = "set_index_buffer"
	OpDrawIndexed    Op = "draw_indexed"
	OpEndPass        Op = "end_pass"
	OpEndEncoding    Op = "end_encoding"
	OpSubmit         Op = "submit"
	OpAcquire        Op = "acquire"
	OpPresent        Op = "present"
	OpDiscard        Op = "discard"
	OpDestroyBuffer  Op = "destroy_buffer"
	OpFreeCommands   Op = "free_command_buffer"
	OpDiscardEncode  Op = "discard_encoding"
)

// Event is one recorded call. Only the fields relevant to Op are set.
type Event struct {
	Op    Op
	Label string
	Data  []byte
	Count uint32
	Slot  uint32
	Color gputypes.Color

	Pipeline *hal.RenderPipelineDescriptor
	Pass     *hal.RenderPassDescriptor
}

// Log collects events in call order. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []Event
	labels map[hal.Buffer]string
}

func (l *Log) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *Log) label(b hal.Buffer) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.labels[b]
}

func (l *Log) setLabel(b hal.Buffer, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.labels == nil {
		l.labels = make(map[hal.Buffer]string)
	}
	l.labels[b] = label
}

// Events returns a copy of all events recorded so far.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Filter returns the recorded events with one of the given ops.
func (l *Log) Filter(ops ...Op) []Event {
	var out []Event
	for _, e := range l.Events() {
		for _, op := range ops {
			if e.Op == op {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Writes returns the data of every write to the buffer labeled label.
func (l *Log) Writes(label string) [][]byte {
	var out [][]byte
	for _, e := range l.Filter(OpWriteBuffer) {
		if e.Label == label {
			out = append(out, e.Data)
		}
	}
	return out
}

// Ops returns the sequence of recorded ops.
func (l *Log) Ops() []Op {
	events := l.Events()
	ops := make([]Op, len(events))
	for i, e := range events {
		ops[i] = e.Op
	}
	return ops
}

// Reset drops all recorded events but keeps buffer labels.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Faults makes selected calls fail. A zero Faults injects nothing.
type Faults struct {
	// CreateBuffer fails buffer creation for the given label.
	CreateBuffer map[string]error

	// CreateShader fails shader module creation for the given label.
	CreateShader map[string]error

	// CreatePipeline fails render pipeline creation.
	CreatePipeline error

	// CreateTextureView fails every texture view creation.
	CreateTextureView error

	// EndEncoding fails command encoding.
	EndEncoding error

	// Submit fails queue submission.
	Submit error
}

// Device records calls made on a noop hal.Device.
type Device struct {
	hal.Device
	Log    *Log
	Faults *Faults
}

// Queue records calls made on a noop hal.Queue.
type Queue struct {
	hal.Queue
	Log    *Log
	Faults *Faults
}

// New returns a recording device and queue sharing one Log and one Faults.
func New() (*Device, *Queue) {
	backend := noop.API{}
	instance, err := backend.CreateInstance(nil)
	if err != nil {
		panic(fmt.Sprintf("gputest: noop instance: %v", err))
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		panic(fmt.Sprintf("gputest: noop open: %v", err))
	}
	log := &Log{}
	faults := &Faults{}
	return &Device{Device: open.Device, Log: log, Faults: faults},
		&Queue{Queue: open.Queue, Log: log, Faults: faults}
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.Faults.CreateBuffer[desc.Label]; err != nil {
		return nil, err
	}
	buf, err := d.Device.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	d.Log.setLabel(buf, desc.Label)
	d.Log.add(Event{Op: OpCreateBuffer, Label: desc.Label, Count: uint32(desc.Size)})
	return buf, nil
}

func (d *Device) DestroyBuffer(buf hal.Buffer) {
	d.Log.add(Event{Op: OpDestroyBuffer, Label: d.Log.label(buf)})
	d.Device.DestroyBuffer(buf)
}

func (d *Device) FreeCommandBuffer(cmd hal.CommandBuffer) {
	d.Log.add(Event{Op: OpFreeCommands})
	d.Device.FreeCommandBuffer(cmd)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.Faults.CreateShader[desc.Label]; err != nil {
		return nil, err
	}
	d.Log.add(Event{Op: OpCreateShader, Label: desc.Label, Count: uint32(len(desc.Source.SPIRV))})
	return d.Device.CreateShaderModule(desc)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if d.Faults.CreatePipeline != nil {
		return nil, d.Faults.CreatePipeline
	}
	d.Log.add(Event{Op: OpCreatePipeline, Label: desc.Label, Pipeline: desc})
	return d.Device.CreateRenderPipeline(desc)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.Log.add(Event{Op: OpCreateTexture, Label: desc.Label, Count: desc.Size.Width*desc.Size.Height})
	return d.Device.CreateTexture(desc)
}

func (d *Device) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if d.Faults.CreateTextureView != nil {
		return nil, d.Faults.CreateTextureView
	}
	return d.Device.CreateTextureView(tex, desc)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &Encoder{CommandEncoder: enc, log: d.Log, faults: d.Faults}, nil
}

func (q *Queue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.Log.add(Event{Op: OpWriteBuffer, Label: q.Log.label(buf), Data: append([]byte(nil), data...), Count: uint32(offset)})
	return q.Queue.WriteBuffer(buf, offset, data)
}

func (q *Queue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.Faults.Submit != nil {
		return 0, q.Faults.Submit
	}
	q.Log.add(Event{Op: OpSubmit, Count: uint32(len(cmds))})
	return q.Queue.Submit(cmds)
}

// Encoder records render passes and encoding.
type Encoder struct {
	hal.CommandEncoder
	log    *Log
	faults *Faults
}

// NewEncoder wraps a noop command encoder for direct use in tests.
func (d *Device) NewEncoder(t testing.TB) *Encoder {
	t.Helper()
	enc, err := d.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	return enc.(*Encoder)
}

func (e *Encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	ev := Event{Op: OpBeginPass, Label: desc.Label, Pass: desc}
	if len(desc.ColorAttachments) > 0 {
		ev.Color = desc.ColorAttachments[0].ClearValue
	}
	e.log.add(ev)
	return &RenderPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), log: e.log}
}

func (e *Encoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.faults != nil && e.faults.EndEncoding != nil {
		return nil, e.faults.EndEncoding
	}
	e.log.add(Event{Op: OpEndEncoding})
	return e.CommandEncoder.EndEncoding()
}

func (e *Encoder) DiscardEncoding() {
	e.log.add(Event{Op: OpDiscardEncode})
	e.CommandEncoder.DiscardEncoding()
}

// RenderPass records pass commands.
type RenderPass struct {
	hal.RenderPassEncoder
	log *Log
}

func (p *RenderPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.log.add(Event{Op: OpSetPipeline})
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *RenderPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.log.add(Event{Op: OpSetBindGroup, Slot: index})
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	p.log.add(Event{Op: OpSetVertex, Slot: slot, Label: p.log.label(buf)})
	p.RenderPassEncoder.SetVertexBuffer(slot, buf, offset)
}

func (p *RenderPass) SetIndexBuffer(buf hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.log.add(Event{Op: OpSetIndex, Label: p.log.label(buf), Count: uint32(format)})
	p.RenderPassEncoder.SetIndexBuffer(buf, format, offset)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.log.add(Event{Op: OpDrawIndexed, Count: indexCount, Slot: instanceCount})
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *RenderPass) End() {
	p.log.add(Event{Op: OpEndPass})
	p.RenderPassEncoder.End()
}

// ErrAcquire is the error a Surface returns when told to fail acquisition.
var ErrAcquire = errors.New("gputest: acquire failed")

// Surface is a host surface that hands out noop textures and records
// acquisition, presentation and discards.
type Surface struct {
	Width, Height uint32
	TextureFormat gputypes.TextureFormat
	Log           *Log

	// FailAcquire lists 1-based acquisition attempts that fail.
	FailAcquire map[int]bool

	// PresentErr is returned by Present.
	PresentErr error

	attempts int
}

// NewSurface returns a BGRA8 surface recording into log.
func NewSurface(log *Log, width, height uint32) *Surface {
	return &Surface{Width: width, Height: height, TextureFormat: gputypes.TextureFormatBGRA8Unorm, Log: log}
}

func (s *Surface) Size() (uint32, uint32) { return s.Width, s.Height }
func (s *Surface) Format() gputypes.TextureFormat { return s.TextureFormat }

// Attempts returns how many times AcquireTexture was called.
func (s *Surface) Attempts() int { return s.attempts }

func (s *Surface) AcquireTexture() (hal.SurfaceTexture, error) {
	s.attempts++
	if s.FailAcquire[s.attempts] {
		s.Log.add(Event{Op: OpAcquire, Count: 0})
		return nil, ErrAcquire
	}
	s.Log.add(Event{Op: OpAcquire, Count: 1})
	return &noop.SurfaceTexture{}, nil
}

func (s *Surface) Present(hal.SurfaceTexture) error {
	s.Log.add(Event{Op: OpPresent})
	return s.PresentErr
}

func (s *Surface) Discard(hal.SurfaceTexture) {
	s.Log.add(Event{Op: OpDiscard})
}

// Provider exposes a recording device and queue the way a windowing host
// does: as a gpucontext.DeviceProvider with HalDevice and HalQueue.
type Provider struct {
	Dev    *Device
	Q      *Queue
	Format gputypes.TextureFormat
}

// NewProvider returns a provider over a fresh recording device. Format is
// left undefined so consumers fall back to the surface format.
func NewProvider() *Provider {
	d, q := New()
	return &Provider{Dev: d, Q: q}
}

func (p *Provider) Device() gpucontext.Device { return p.Dev }
func (p *Provider) Queue() gpucontext.Queue { return p.Q }
func (p *Provider) Adapter() gpucontext.Adapter { return nil }
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return p.Format }
func (p *Provider) HalDevice() any { return p.Dev }
func (p *Provider) HalQueue() any { return p.Q }
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "Recording Noop Adapter", Type: gpucontext.AdapterTypeUnknown}
}
