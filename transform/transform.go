// Package transform builds the matrices uploaded to the cube's uniforms.
//
// All matrices are mgl32.Mat4 values in column-major order, which is also
// the layout WGSL expects for mat4x4<f32>.
package transform

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MatrixBytes is the size of a serialized Mat4.
const MatrixBytes = 16 * 4

// ModelDistance is how far in front of the camera the cube is placed.
const ModelDistance = 8

// Model returns Translate(0,0,-ModelDistance) * Ry(t) * Rz(t) * Rx(t).
//
// One angle drives all three axes, so the cube tumbles rather than spins
// about a single axis.
func Model(t float32) mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -ModelDistance).
		Mul4(mgl32.HomogRotate3DY(t)).
		Mul4(mgl32.HomogRotate3DZ(t)).
		Mul4(mgl32.HomogRotate3DX(t))
}

// clipRemap maps OpenGL clip depth [-w, w] to WebGPU's [0, w].
var clipRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Perspective returns a right-handed perspective projection with clip-space
// depth in [0, 1]. fovy is in degrees. A non-positive aspect is treated as 1.
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	if aspect <= 0 || math.IsNaN(float64(aspect)) {
		aspect = 1
	}
	return clipRemap.Mul4(mgl32.Perspective(mgl32.DegToRad(fovy), aspect, near, far))
}

// Aspect returns width/height, or 1 when height is zero.
func Aspect(width, height uint32) float32 {
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// InverseView returns the inverse of a camera placed at eye looking down -Z.
// A camera at the origin yields the identity.
func InverseView(eye mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(-eye[0], -eye[1], -eye[2])
}

// Bytes serializes m as 16 little-endian float32 values, column by column.
func Bytes(m mgl32.Mat4) []byte {
	buf := make([]byte, MatrixBytes)
	PutBytes(buf, m)
	return buf
}

// PutBytes writes m into dst, which must hold at least MatrixBytes bytes.
func PutBytes(dst []byte, m mgl32.Mat4) {
	_ = dst[MatrixBytes-1]
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// FromBytes is the inverse of Bytes. It reads the first MatrixBytes bytes of src.
func FromBytes(src []byte) mgl32.Mat4 {
	_ = src[MatrixBytes-1]
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return m
}
