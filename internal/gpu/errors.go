package gpu

import (
	"errors"
	"fmt"
)

// Setup errors. These are wrapped in a *SetupError naming the failing stage.
var (
	// ErrDeviceNotReady is returned when the device or queue is nil.
	ErrDeviceNotReady = errors.New("gpu: device is not ready")

	// ErrZeroSizedBuffer is returned when mesh data would produce an empty buffer.
	ErrZeroSizedBuffer = errors.New("gpu: buffer size must be non-zero")

	// ErrOddIndexData is returned when index bytes are not a whole number of uint16 indices.
	ErrOddIndexData = errors.New("gpu: index data length is not a multiple of 2")

	// ErrVertexStride is returned when vertex bytes are not a whole number of vertices.
	ErrVertexStride = errors.New("gpu: vertex data length is not a multiple of the vertex stride")

	// ErrShaderEntryPoint is returned when a shader lacks the requested entry point.
	ErrShaderEntryPoint = errors.New("gpu: shader entry point not found")

	// ErrEmptyShader is returned when a shader source is empty.
	ErrEmptyShader = errors.New("gpu: shader source is empty")

	// ErrUndefinedFormat is returned when the swapchain color format is undefined.
	ErrUndefinedFormat = errors.New("gpu: color format is undefined")

	// ErrZeroArea is returned when the swapchain would be created with zero width or height.
	ErrZeroArea = errors.New("gpu: surface width and height must be non-zero")
)

// Swapchain usage errors.
var (
	// ErrStale is returned when a pass or flush is attempted before Refresh.
	ErrStale = errors.New("gpu: swapchain texture is stale, call Refresh first")

	// ErrPassActive is returned when a second pass is opened in the same frame.
	ErrPassActive = errors.New("gpu: a render pass was already opened this frame")

	// ErrPassOpen is returned when an operation requires the pass to be ended.
	ErrPassOpen = errors.New("gpu: render pass has not been ended")

	// ErrNotRecording is returned when Flush is called without a recorded pass.
	ErrNotRecording = errors.New("gpu: no render pass recorded this frame")

	// ErrNotSubmittable is returned when Present is called before Flush.
	ErrNotSubmittable = errors.New("gpu: frame has not been flushed")

	// ErrNilTexture is returned when Refresh receives a nil texture.
	ErrNilTexture = errors.New("gpu: surface texture is nil")
)

// SetupError reports a failed GPU object creation during initialization.
// Setup failures are fatal: no partially built resource set is returned.
type SetupError struct {
	// Stage names the object that failed, e.g. "vertex buffer".
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("gpu: setup %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func setupErr(stage string, err error) error {
	return &SetupError{Stage: stage, Err: err}
}
