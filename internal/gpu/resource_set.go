package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spincube/transform"
)

// VertexStride is the byte size of one interleaved vertex: a float32x3
// position followed by a float32x3 normal.
const VertexStride = 24

// matrixSize is the byte size of a 4x4 float32 matrix.
const matrixSize = 64

// MatrixKind selects one of the three matrix uniforms.
// The value is the shader binding slot.
type MatrixKind uint32

const (
	MatrixModel       MatrixKind = 0
	MatrixInverseView MatrixKind = 1
	MatrixProjection  MatrixKind = 2
)

var matrixLabels = [...]string{
	MatrixModel:       "Model Matrix",
	MatrixInverseView: "Inverse View Matrix",
	MatrixProjection:  "Projection Matrix",
}

// String returns the debug label of the matrix buffer.
func (k MatrixKind) String() string {
	if int(k) < len(matrixLabels) {
		return matrixLabels[k]
	}
	return fmt.Sprintf("MatrixKind(%d)", uint32(k))
}

// MeshData is an indexed triangle list ready for upload: interleaved
// position+normal vertices and little-endian uint16 indices.
type MeshData struct {
	Vertices []byte
	Indices  []byte
}

// IndexCount returns the number of uint16 indices in Indices.
func (m MeshData) IndexCount() uint32 { return uint32(len(m.Indices) / 2) }

func (m MeshData) validate() error {
	if len(m.Vertices) == 0 {
		return fmt.Errorf("vertices: %w", ErrZeroSizedBuffer)
	}
	if len(m.Vertices)%VertexStride != 0 {
		return fmt.Errorf("%w: %d bytes", ErrVertexStride, len(m.Vertices))
	}
	if len(m.Indices) == 0 {
		return fmt.Errorf("indices: %w", ErrZeroSizedBuffer)
	}
	if len(m.Indices)%2 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrOddIndexData, len(m.Indices))
	}
	return nil
}

// PipelineShape is the structural description of the render pipeline. It
// holds no GPU handles, so two resource sets built from the same inputs
// have equal shapes.
type PipelineShape struct {
	VertexEntry   string
	FragmentEntry string
	VertexBuffers []gputypes.VertexBufferLayout
	Bindings      []gputypes.BindGroupLayoutEntry
	Primitive     gputypes.PrimitiveState
	DepthStencil  hal.DepthStencilState
	Multisample   gputypes.MultisampleState
	ColorTargets  []gputypes.ColorTargetState
}

// cubePipelineShape describes the single pipeline: one interleaved vertex
// buffer, three vertex-stage uniforms, depth test Less with writes, and one
// color target in format.
func cubePipelineShape(format gputypes.TextureFormat, shaders ShaderSources) PipelineShape {
	bindings := make([]gputypes.BindGroupLayoutEntry, 0, len(matrixLabels))
	for slot := range matrixLabels {
		bindings = append(bindings, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(slot),
			Visibility: gputypes.ShaderStageVertex,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: matrixSize,
			},
		})
	}

	return PipelineShape{
		VertexEntry:   shaders.VertexEntry,
		FragmentEntry: shaders.FragmentEntry,
		VertexBuffers: []gputypes.VertexBufferLayout{{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		}},
		Bindings: bindings,
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		DepthStencil: hal.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keepStencilFace(),
			StencilBack:       keepStencilFace(),
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		ColorTargets: []gputypes.ColorTargetState{{
			Format:    format,
			WriteMask: gputypes.ColorWriteMaskAll,
		}},
	}
}

// keepStencilFace leaves the stencil aspect untouched.
func keepStencilFace() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

// ResourceOption configures NewResourceSet.
type ResourceOption func(*resourceOptions)

type resourceOptions struct {
	spirv bool
}

// WithSPIRV compiles the WGSL sources to SPIR-V with naga before creating
// the shader modules, for backends that only consume SPIR-V.
func WithSPIRV() ResourceOption {
	return func(o *resourceOptions) { o.spirv = true }
}

// ResourceSet owns every long-lived GPU object of the cube: the three matrix
// uniforms, the mesh buffers, the shader modules, the bind group and the
// render pipeline. All of it is created once and lives until Destroy.
//
// ResourceSet is not safe for concurrent use.
type ResourceSet struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	shape  PipelineShape

	matrices   [len(matrixLabels)]hal.Buffer
	vertices   hal.Buffer
	indices    hal.Buffer
	indexCount uint32

	vsModule   hal.ShaderModule
	fsModule   hal.ShaderModule
	bgLayout   hal.BindGroupLayout
	bindGroup  hal.BindGroup
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	destroyed bool
}

// NewResourceSet builds the resource set in a fixed order: matrix uniforms
// (identity), vertex and index buffers, shader modules, bind group layout,
// bind group, pipeline layout and render pipeline. format must be the
// swapchain's color format.
//
// Any failure returns a *SetupError and releases whatever was already
// created; no partial resource set is ever returned.
func NewResourceSet(device hal.Device, queue hal.Queue, mesh MeshData, shaders ShaderSources, format gputypes.TextureFormat, opts ...ResourceOption) (*ResourceSet, error) {
	if device == nil || queue == nil {
		return nil, setupErr("device", ErrDeviceNotReady)
	}
	if format == gputypes.TextureFormatUndefined {
		return nil, setupErr("color format", ErrUndefinedFormat)
	}
	if err := mesh.validate(); err != nil {
		return nil, setupErr("mesh", err)
	}

	var o resourceOptions
	for _, opt := range opts {
		opt(&o)
	}
	shaders = shaders.withDefaults()

	rs := &ResourceSet{
		device:     device,
		queue:      queue,
		format:     format,
		shape:      cubePipelineShape(format, shaders),
		indexCount: mesh.IndexCount(),
	}
	if err := rs.build(mesh, shaders, o); err != nil {
		rs.Destroy()
		return nil, err
	}

	slogger().Debug("resource set created",
		"format", format.String(),
		"vertex_bytes", len(mesh.Vertices),
		"indices", rs.indexCount,
		"spirv", o.spirv)
	return rs, nil
}

func (rs *ResourceSet) build(mesh MeshData, shaders ShaderSources, o resourceOptions) error {
	identity := transform.Bytes(mgl32.Ident4())
	for kind := range rs.matrices {
		buf, err := uploadBuffer(rs.device, rs.queue, matrixLabels[kind], gputypes.BufferUsageUniform, identity)
		if err != nil {
			return setupErr("uniform buffer", err)
		}
		rs.matrices[kind] = buf
	}

	var err error
	if rs.vertices, err = uploadBuffer(rs.device, rs.queue, "Vertex Buffer", gputypes.BufferUsageVertex, mesh.Vertices); err != nil {
		return setupErr("vertex buffer", err)
	}
	if rs.indices, err = uploadBuffer(rs.device, rs.queue, "Index Buffer", gputypes.BufferUsageIndex, mesh.Indices); err != nil {
		return setupErr("index buffer", err)
	}

	if rs.vsModule, err = createShaderModule(rs.device, "Vertex Shader", shaders.Vertex, shaders.VertexEntry, ir.StageVertex, o.spirv); err != nil {
		return setupErr("vertex shader", err)
	}
	if rs.fsModule, err = createShaderModule(rs.device, "Fragment Shader", shaders.Fragment, shaders.FragmentEntry, ir.StageFragment, o.spirv); err != nil {
		return setupErr("fragment shader", err)
	}

	if rs.bgLayout, err = rs.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "Bind Group Layout",
		Entries: rs.shape.Bindings,
	}); err != nil {
		return setupErr("bind group layout", err)
	}

	entries := make([]gputypes.BindGroupEntry, len(rs.matrices))
	for kind, buf := range rs.matrices {
		entries[kind] = gputypes.BindGroupEntry{
			Binding: uint32(kind),
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   matrixSize,
			},
		}
	}
	if rs.bindGroup, err = rs.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "Bind Group",
		Layout:  rs.bgLayout,
		Entries: entries,
	}); err != nil {
		return setupErr("bind group", err)
	}

	if rs.pipeLayout, err = rs.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "Render Pipeline Layout",
		BindGroupLayouts: []hal.BindGroupLayout{rs.bgLayout},
	}); err != nil {
		return setupErr("pipeline layout", err)
	}

	depthStencil := rs.shape.DepthStencil
	if rs.pipeline, err = rs.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "Render Pipeline",
		Layout: rs.pipeLayout,
		Vertex: hal.VertexState{
			Module:     rs.vsModule,
			EntryPoint: rs.shape.VertexEntry,
			Buffers:    rs.shape.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     rs.fsModule,
			EntryPoint: rs.shape.FragmentEntry,
			Targets:    rs.shape.ColorTargets,
		},
		Primitive:    rs.shape.Primitive,
		DepthStencil: &depthStencil,
		Multisample:  rs.shape.Multisample,
	}); err != nil {
		return setupErr("render pipeline", err)
	}
	return nil
}

// Shape returns the structural description of the render pipeline.
func (rs *ResourceSet) Shape() PipelineShape { return rs.shape }

// IndexCount returns the number of indices drawn per frame.
func (rs *ResourceSet) IndexCount() uint32 { return rs.indexCount }

// Format returns the color target format the pipeline was built for.
func (rs *ResourceSet) Format() gputypes.TextureFormat { return rs.format }

// UpdateModelMatrix overwrites the model matrix uniform. The write is queued
// and becomes visible to the next submission.
func (rs *ResourceSet) UpdateModelMatrix(m mgl32.Mat4) error {
	return rs.WriteMatrix(MatrixModel, m)
}

// WriteMatrix overwrites all 64 bytes of the given matrix uniform.
func (rs *ResourceSet) WriteMatrix(kind MatrixKind, m mgl32.Mat4) error {
	if rs.destroyed {
		return fmt.Errorf("write %s: %w", kind, ErrDeviceNotReady)
	}
	if int(kind) >= len(rs.matrices) {
		return fmt.Errorf("write matrix: unknown %s", kind)
	}
	if err := rs.queue.WriteBuffer(rs.matrices[kind], 0, transform.Bytes(m)); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return nil
}

// Draw records the cube into pass: pipeline, bind group 0, vertex buffer 0,
// the uint16 index buffer and one indexed draw over every index.
func (rs *ResourceSet) Draw(pass *Pass) error {
	if rs.destroyed {
		return fmt.Errorf("draw: %w", ErrDeviceNotReady)
	}
	if err := pass.SetPipeline(rs.pipeline); err != nil {
		return err
	}
	if err := pass.SetBindGroup(0, rs.bindGroup); err != nil {
		return err
	}
	if err := pass.SetVertexBuffer(0, rs.vertices); err != nil {
		return err
	}
	if err := pass.SetIndexBuffer(rs.indices, gputypes.IndexFormatUint16); err != nil {
		return err
	}
	return pass.DrawIndexed(rs.indexCount)
}

// Destroy releases every GPU object in reverse creation order.
// Safe to call multiple times.
func (rs *ResourceSet) Destroy() {
	if rs.destroyed {
		return
	}
	rs.destroyed = true
	d := rs.device

	if rs.pipeline != nil {
		d.DestroyRenderPipeline(rs.pipeline)
		rs.pipeline = nil
	}
	if rs.pipeLayout != nil {
		d.DestroyPipelineLayout(rs.pipeLayout)
		rs.pipeLayout = nil
	}
	if rs.bindGroup != nil {
		d.DestroyBindGroup(rs.bindGroup)
		rs.bindGroup = nil
	}
	if rs.bgLayout != nil {
		d.DestroyBindGroupLayout(rs.bgLayout)
		rs.bgLayout = nil
	}
	if rs.fsModule != nil {
		d.DestroyShaderModule(rs.fsModule)
		rs.fsModule = nil
	}
	if rs.vsModule != nil {
		d.DestroyShaderModule(rs.vsModule)
		rs.vsModule = nil
	}
	if rs.indices != nil {
		d.DestroyBuffer(rs.indices)
		rs.indices = nil
	}
	if rs.vertices != nil {
		d.DestroyBuffer(rs.vertices)
		rs.vertices = nil
	}
	for i, buf := range rs.matrices {
		if buf != nil {
			d.DestroyBuffer(buf)
			rs.matrices[i] = nil
		}
	}
}
