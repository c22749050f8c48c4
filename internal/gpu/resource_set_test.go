package gpu

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/spincube/internal/gpu/gputest"
	"github.com/gogpu/spincube/mesh"
	"github.com/gogpu/spincube/transform"
)

func cubeData() MeshData {
	m := mesh.Cube(1)
	return MeshData{Vertices: m.VertexBytes(), Indices: m.IndexBytes()}
}

func newTestResourceSet(t *testing.T, opts ...ResourceOption) (*ResourceSet, *gputest.Device, *gputest.Queue) {
	t.Helper()
	dev, q := gputest.New()
	rs, err := NewResourceSet(dev, q, cubeData(), DefaultShaders(), gputypes.TextureFormatBGRA8Unorm, opts...)
	if err != nil {
		t.Fatalf("NewResourceSet: %v", err)
	}
	t.Cleanup(rs.Destroy)
	return rs, dev, q
}

func TestNewResourceSetCreationOrder(t *testing.T) {
	rs, dev, _ := newTestResourceSet(t)

	var labels []string
	for _, e := range dev.Log.Filter(gputest.OpCreateBuffer, gputest.OpCreateShader, gputest.OpCreatePipeline) {
		labels = append(labels, e.Label)
	}
	want := []string{
		"Model Matrix", "Inverse View Matrix", "Projection Matrix",
		"Vertex Buffer", "Index Buffer",
		"Vertex Shader", "Fragment Shader",
		"Render Pipeline",
	}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("creation order = %v\nwant %v", labels, want)
	}

	if rs.IndexCount() != 36 {
		t.Errorf("IndexCount() = %d, want 36", rs.IndexCount())
	}
	if rs.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v", rs.Format())
	}
}

func TestNewResourceSetUploads(t *testing.T) {
	_, dev, _ := newTestResourceSet(t)

	identity := transform.Bytes(mgl32.Ident4())
	for _, label := range matrixLabels {
		writes := dev.Log.Writes(label)
		if len(writes) != 1 || !bytes.Equal(writes[0], identity) {
			t.Errorf("%s initial writes = %d, want one identity upload", label, len(writes))
		}
	}

	data := cubeData()
	if w := dev.Log.Writes("Vertex Buffer"); len(w) != 1 || !bytes.Equal(w[0], data.Vertices) {
		t.Error("vertex buffer not uploaded with mesh vertices")
	}
	if w := dev.Log.Writes("Index Buffer"); len(w) != 1 || !bytes.Equal(w[0], data.Indices) {
		t.Error("index buffer not uploaded with mesh indices")
	}
	for _, e := range dev.Log.Filter(gputest.OpCreateBuffer) {
		want := uint32(matrixSize)
		switch e.Label {
		case "Vertex Buffer":
			want = uint32(len(data.Vertices))
		case "Index Buffer":
			want = uint32(len(data.Indices))
		}
		if e.Count != want {
			t.Errorf("%s size = %d, want %d", e.Label, e.Count, want)
		}
	}
}

func TestPipelineShape(t *testing.T) {
	a, _, _ := newTestResourceSet(t)
	b, _, _ := newTestResourceSet(t)
	if !reflect.DeepEqual(a.Shape(), b.Shape()) {
		t.Fatal("two resource sets from identical inputs have different shapes")
	}

	s := a.Shape()
	if s.VertexEntry != "vmain" || s.FragmentEntry != "fmain" {
		t.Errorf("entry points = %q/%q, want vmain/fmain", s.VertexEntry, s.FragmentEntry)
	}
	if len(s.VertexBuffers) != 1 || s.VertexBuffers[0].ArrayStride != VertexStride {
		t.Errorf("vertex buffers = %+v, want one with stride %d", s.VertexBuffers, VertexStride)
	}
	if attrs := s.VertexBuffers[0].Attributes; len(attrs) != 2 || attrs[1].Offset != 12 || attrs[1].ShaderLocation != 1 {
		t.Errorf("attributes = %+v, want position@0 and normal@12", attrs)
	}
	if len(s.Bindings) != 3 {
		t.Fatalf("bindings = %d, want 3", len(s.Bindings))
	}
	for i, b := range s.Bindings {
		if b.Binding != uint32(i) || b.Visibility != gputypes.ShaderStageVertex ||
			b.Buffer == nil || b.Buffer.Type != gputypes.BufferBindingTypeUniform {
			t.Errorf("binding %d = %+v, want vertex uniform", i, b)
		}
	}
	if s.DepthStencil.Format != gputypes.TextureFormatDepth24PlusStencil8 ||
		s.DepthStencil.DepthCompare != gputypes.CompareFunctionLess ||
		!s.DepthStencil.DepthWriteEnabled {
		t.Errorf("depth stencil = %+v, want Depth24PlusStencil8 Less with writes", s.DepthStencil)
	}
	if s.Primitive.FrontFace != gputypes.FrontFaceCCW || s.Primitive.CullMode != gputypes.CullModeNone {
		t.Errorf("primitive = %+v, want CCW without culling", s.Primitive)
	}
	if len(s.ColorTargets) != 1 || s.ColorTargets[0].Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("color targets = %+v, want one BGRA8Unorm", s.ColorTargets)
	}
}

func TestNewResourceSetErrors(t *testing.T) {
	bad := DefaultShaders()
	bad.FragmentEntry = "main"
	empty := DefaultShaders()
	empty.Vertex = "  "
	swapped := DefaultShaders()
	swapped.Vertex, swapped.Fragment = swapped.Fragment, swapped.Vertex
	swapped.VertexEntry, swapped.FragmentEntry = "fmain", "vmain"

	data := cubeData()
	tests := []struct {
		name    string
		nilDev  bool
		mesh    MeshData
		shaders ShaderSources
		format  gputypes.TextureFormat
		stage   string
		want    error
	}{
		{"nil device", true, data, DefaultShaders(), gputypes.TextureFormatBGRA8Unorm, "device", ErrDeviceNotReady},
		{"undefined format", false, data, DefaultShaders(), gputypes.TextureFormatUndefined, "color format", ErrUndefinedFormat},
		{"empty vertices", false, MeshData{Indices: data.Indices}, DefaultShaders(), gputypes.TextureFormatBGRA8Unorm, "mesh", ErrZeroSizedBuffer},
		{"odd indices", false, MeshData{Vertices: data.Vertices, Indices: data.Indices[:5]}, DefaultShaders(), gputypes.TextureFormatBGRA8Unorm, "mesh", ErrOddIndexData},
		{"vertex stride", false, MeshData{Vertices: data.Vertices[:25], Indices: data.Indices}, DefaultShaders(), gputypes.TextureFormatBGRA8Unorm, "mesh", ErrVertexStride},
		{"missing entry point", false, data, bad, gputypes.TextureFormatBGRA8Unorm, "fragment shader", ErrShaderEntryPoint},
		{"empty shader", false, data, empty, gputypes.TextureFormatBGRA8Unorm, "vertex shader", ErrEmptyShader},
		{"wrong stage", false, data, swapped, gputypes.TextureFormatBGRA8Unorm, "vertex shader", ErrShaderEntryPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, q := gputest.New()
			var device hal.Device = dev
			if tt.nilDev {
				device = nil
			}
			rs, err := NewResourceSet(device, q, tt.mesh, tt.shaders, tt.format)
			if rs != nil {
				t.Error("partial resource set returned")
			}
			var se *SetupError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *SetupError", err)
			}
			if se.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", se.Stage, tt.stage)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewResourceSetReleasesOnFailure(t *testing.T) {
	boom := errors.New("boom")
	stages := []struct {
		stage  string
		inject func(*gputest.Faults)
	}{
		{"uniform buffer", func(f *gputest.Faults) { f.CreateBuffer = map[string]error{"Projection Matrix": boom} }},
		{"index buffer", func(f *gputest.Faults) { f.CreateBuffer = map[string]error{"Index Buffer": boom} }},
		{"fragment shader", func(f *gputest.Faults) { f.CreateShader = map[string]error{"Fragment Shader": boom} }},
		{"render pipeline", func(f *gputest.Faults) { f.CreatePipeline = boom }},
	}
	for _, tt := range stages {
		t.Run(tt.stage, func(t *testing.T) {
			dev, q := gputest.New()
			tt.inject(dev.Faults)

			_, err := NewResourceSet(dev, q, cubeData(), DefaultShaders(), gputypes.TextureFormatBGRA8Unorm)
			var se *SetupError
			if !errors.As(err, &se) || se.Stage != tt.stage || !errors.Is(err, boom) {
				t.Fatalf("error = %v, want setup error at %s wrapping boom", err, tt.stage)
			}
			created := len(dev.Log.Filter(gputest.OpCreateBuffer))
			destroyed := len(dev.Log.Filter(gputest.OpDestroyBuffer))
			if created != destroyed {
				t.Errorf("created %d buffers, destroyed %d", created, destroyed)
			}
		})
	}
}

func TestResourceSetWriteMatrix(t *testing.T) {
	rs, dev, _ := newTestResourceSet(t)
	dev.Log.Reset()

	model := transform.Model(0.3)
	if err := rs.UpdateModelMatrix(model); err != nil {
		t.Fatal(err)
	}
	proj := transform.Perspective(60, 2, 1, 10)
	if err := rs.WriteMatrix(MatrixProjection, proj); err != nil {
		t.Fatal(err)
	}

	writes := dev.Log.Filter(gputest.OpWriteBuffer)
	if len(writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writes))
	}
	if writes[0].Label != "Model Matrix" || len(writes[0].Data) != matrixSize || writes[0].Count != 0 {
		t.Errorf("model write = %q %d bytes at %d, want full 64-byte write", writes[0].Label, len(writes[0].Data), writes[0].Count)
	}
	if got := transform.FromBytes(writes[0].Data); got != model {
		t.Errorf("model = %v, want %v", got, model)
	}
	if writes[1].Label != "Projection Matrix" {
		t.Errorf("second write went to %q", writes[1].Label)
	}

	if err := rs.WriteMatrix(MatrixKind(7), model); err == nil {
		t.Error("WriteMatrix(7) succeeded, want error")
	}
	if s := MatrixKind(7).String(); s != "MatrixKind(7)" {
		t.Errorf("String() = %q", s)
	}
}

func TestResourceSetDraw(t *testing.T) {
	rs, dev, _ := newTestResourceSet(t)
	enc := dev.NewEncoder(t)
	dev.Log.Reset()

	pass := &Pass{raw: enc.BeginRenderPass(&hal.RenderPassDescriptor{}), state: PassStateRecording}
	if err := rs.Draw(pass); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	_ = pass.End()

	want := []gputest.Op{
		gputest.OpBeginPass,
		gputest.OpSetPipeline,
		gputest.OpSetBindGroup,
		gputest.OpSetVertex,
		gputest.OpSetIndex,
		gputest.OpDrawIndexed,
		gputest.OpEndPass,
	}
	if got := dev.Log.Ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ops = %v\nwant %v", got, want)
	}
	if v := dev.Log.Filter(gputest.OpSetVertex)[0]; v.Label != "Vertex Buffer" || v.Slot != 0 {
		t.Errorf("vertex buffer = %q slot %d", v.Label, v.Slot)
	}
	if d := dev.Log.Filter(gputest.OpDrawIndexed)[0]; d.Count != rs.IndexCount() {
		t.Errorf("draw count = %d, want %d", d.Count, rs.IndexCount())
	}

	if err := rs.Draw(pass); !errors.Is(err, ErrPassEnded) {
		t.Errorf("Draw on ended pass = %v, want ErrPassEnded", err)
	}
}

func TestResourceSetSPIRV(t *testing.T) {
	_, dev, _ := newTestResourceSet(t, WithSPIRV())
	shaders := dev.Log.Filter(gputest.OpCreateShader)
	if len(shaders) != 2 {
		t.Fatalf("shader modules = %d, want 2", len(shaders))
	}
	for _, s := range shaders {
		if s.Count == 0 {
			t.Errorf("%s has no SPIR-V words", s.Label)
		}
	}
}

func TestResourceSetDestroy(t *testing.T) {
	rs, dev, _ := newTestResourceSet(t)
	rs.Destroy()
	rs.Destroy()

	if n := len(dev.Log.Filter(gputest.OpDestroyBuffer)); n != 5 {
		t.Errorf("destroyed buffers = %d, want 5", n)
	}
	if err := rs.UpdateModelMatrix(mgl32.Ident4()); !errors.Is(err, ErrDeviceNotReady) {
		t.Errorf("UpdateModelMatrix after Destroy = %v, want ErrDeviceNotReady", err)
	}
}
