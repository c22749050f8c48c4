// Package mesh provides indexed triangle meshes in the interleaved layout the
// cube pipeline consumes: per vertex a float32x3 position followed by a
// float32x3 normal (24 bytes), with uint16 indices.
package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Stride is the byte size of one serialized Vertex.
const Stride = 24

// Validation errors.
var (
	// ErrEmpty is returned for a mesh without vertices or indices.
	ErrEmpty = errors.New("mesh: empty")

	// ErrTooManyVertices is returned when the vertex list cannot be addressed
	// by uint16 indices.
	ErrTooManyVertices = errors.New("mesh: too many vertices for uint16 indexing")

	// ErrPartialTriangle is returned when the index count is not a multiple
	// of three.
	ErrPartialTriangle = errors.New("mesh: index count is not a whole number of triangles")

	// ErrIndexRange is returned when an index refers past the vertex list.
	ErrIndexRange = errors.New("mesh: index out of range")
)

// Vertex is a position and a unit normal.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// IndexCount returns the number of indices.
func (m *Mesh) IndexCount() uint32 { return uint32(len(m.Indices)) }

// Validate reports whether the mesh forms whole triangles and every index
// addresses an existing vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return ErrEmpty
	}
	if len(m.Vertices) > math.MaxUint16+1 {
		return fmt.Errorf("%w: %d vertices", ErrTooManyVertices, len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrPartialTriangle, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%w: indices[%d] = %d, %d vertices", ErrIndexRange, i, idx, len(m.Vertices))
		}
	}
	return nil
}

// VertexBytes serializes the vertices as little-endian float32s.
func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*Stride)
	for i, v := range m.Vertices {
		off := i * Stride
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint32(buf[off+j*4:], math.Float32bits(v.Position[j]))
			binary.LittleEndian.PutUint32(buf[off+12+j*4:], math.Float32bits(v.Normal[j]))
		}
	}
	return buf
}

// IndexBytes serializes the indices as little-endian uint16s.
func (m *Mesh) IndexBytes() []byte {
	buf := make([]byte, len(m.Indices)*2)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// Cube returns a cube with half-extent size centered at the origin.
//
// The cube shares its 8 corners between faces, so each normal points
// diagonally out of its corner. Triangles wind counter-clockwise seen from
// outside.
func Cube(size float32) *Mesh {
	m := &Mesh{Vertices: make([]Vertex, 8)}
	for i := range m.Vertices {
		// bit 0: x, bit 1: y, bit 2: z
		p := mgl32.Vec3{-1, -1, -1}
		if i&1 != 0 {
			p[0] = 1
		}
		if i&2 != 0 {
			p[1] = 1
		}
		if i&4 != 0 {
			p[2] = 1
		}
		m.Vertices[i] = Vertex{Position: p.Mul(size), Normal: p.Normalize()}
	}

	faces := [6][4]uint16{
		{4, 5, 7, 6}, // +z
		{0, 2, 3, 1}, // -z
		{5, 1, 3, 7}, // +x
		{0, 4, 6, 2}, // -x
		{6, 7, 3, 2}, // +y
		{0, 1, 5, 4}, // -y
	}
	m.Indices = make([]uint16, 0, len(faces)*6)
	for _, f := range faces {
		m.Indices = append(m.Indices, f[0], f[1], f[2], f[0], f[2], f[3])
	}
	return m
}
