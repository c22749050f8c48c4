package mesh

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCubeCounts(t *testing.T) {
	c := Cube(1)
	if got := len(c.Vertices); got != 8 {
		t.Errorf("len(Vertices) = %d, want 8", got)
	}
	if got := c.IndexCount(); got != 36 {
		t.Errorf("IndexCount() = %d, want 36", got)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if got := len(c.VertexBytes()); got != 8*Stride {
		t.Errorf("len(VertexBytes) = %d, want %d", got, 8*Stride)
	}
	if got := len(c.IndexBytes()); got != 72 {
		t.Errorf("len(IndexBytes) = %d, want 72", got)
	}
}

func TestCubeWindingFacesOutward(t *testing.T) {
	c := Cube(1)
	for tri := 0; tri < len(c.Indices); tri += 3 {
		a := c.Vertices[c.Indices[tri]].Position
		b := c.Vertices[c.Indices[tri+1]].Position
		d := c.Vertices[c.Indices[tri+2]].Position
		n := b.Sub(a).Cross(d.Sub(a))
		centroid := a.Add(b).Add(d).Mul(1.0 / 3)
		if n.Dot(centroid) <= 0 {
			t.Errorf("triangle %d (%v) winds clockwise from outside", tri/3, c.Indices[tri:tri+3])
		}
	}
}

func TestCubeSize(t *testing.T) {
	c := Cube(2.5)
	for i, v := range c.Vertices {
		for axis := 0; axis < 3; axis++ {
			if got := float32(math.Abs(float64(v.Position[axis]))); got != 2.5 {
				t.Errorf("vertex %d axis %d = %v, want +-2.5", i, axis, v.Position[axis])
			}
		}
		if l := v.Normal.Len(); math.Abs(float64(l-1)) > 1e-6 {
			t.Errorf("vertex %d normal length = %v, want 1", i, l)
		}
	}
}

func TestVertexBytesLayout(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{{Position: mgl32.Vec3{1, 2, 3}, Normal: mgl32.Vec3{0, 0, 1}}},
		Indices:  []uint16{0, 0, 0},
	}
	b := m.VertexBytes()
	want := []float32{1, 2, 3, 0, 0, 1}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}
}

func TestIndexBytesLittleEndian(t *testing.T) {
	m := &Mesh{Indices: []uint16{0x0102, 7}}
	b := m.IndexBytes()
	want := []byte{0x02, 0x01, 0x07, 0x00}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("IndexBytes() = %v, want %v", b, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    *Mesh
		wantErr bool
		is      error
	}{
		{"cube", Cube(1), false, nil},
		{"empty", &Mesh{}, true, ErrEmpty},
		{"no indices", &Mesh{Vertices: make([]Vertex, 3)}, true, ErrEmpty},
		{"too many vertices", &Mesh{Vertices: make([]Vertex, 1<<16+1), Indices: []uint16{0, 1, 2}}, true, ErrTooManyVertices},
		{"partial triangle", &Mesh{Vertices: make([]Vertex, 3), Indices: []uint16{0, 1}}, true, ErrPartialTriangle},
		{"index out of range", &Mesh{Vertices: make([]Vertex, 3), Indices: []uint16{0, 1, 3}}, true, ErrIndexRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Validate() error = %v, want %v", err, tt.is)
			}
		})
	}
}
