package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Command encoder errors.
var (
	// ErrEncoderNotRecording is returned when encoding is finished twice.
	ErrEncoderNotRecording = errors.New("gpu: encoder not in recording state")

	// ErrEncoderNotFinished is returned when an encoder is submitted before
	// its commands were finished.
	ErrEncoderNotFinished = errors.New("gpu: encoder has not been finished")

	// ErrEncoderConsumed is returned when an encoder is used after it was
	// submitted or released.
	ErrEncoderConsumed = errors.New("gpu: encoder has been consumed")
)

// EncoderState is the lifecycle state of a FrameEncoder.
type EncoderState int

const (
	// EncoderRecording accepts passes.
	EncoderRecording EncoderState = iota

	// EncoderFinished holds a command buffer ready for submission.
	EncoderFinished

	// EncoderSubmitted means the command buffer is owned by the queue until
	// the submission completes.
	EncoderSubmitted

	// EncoderReleased means every GPU object has been returned.
	EncoderReleased
)

// String returns the string representation of EncoderState.
func (s EncoderState) String() string {
	switch s {
	case EncoderRecording:
		return "Recording"
	case EncoderFinished:
		return "Finished"
	case EncoderSubmitted:
		return "Submitted"
	case EncoderReleased:
		return "Released"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FrameEncoder records one frame's commands. It is a hal.CommandEncoder, so
// the swapchain can open passes on it and finish it, and it additionally
// tracks the command buffer through submission until the queue reports it
// complete.
//
// State machine:
//
//	Recording -> EndEncoding -> Finished -> Submit -> Submitted
//	any       -> Release                            -> Released
//
// FrameEncoder is not safe for concurrent use.
type FrameEncoder struct {
	hal.CommandEncoder

	device     hal.Device
	cmd        hal.CommandBuffer
	state      EncoderState
	submission uint64
}

// NewFrameEncoder creates a command encoder on device and begins encoding.
func NewFrameEncoder(device hal.Device, label string) (*FrameEncoder, error) {
	if device == nil {
		return nil, ErrDeviceNotReady
	}
	raw, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		raw.Destroy()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &FrameEncoder{CommandEncoder: raw, device: device}, nil
}

// State returns the lifecycle state.
func (e *FrameEncoder) State() EncoderState { return e.state }

// Submission returns the queue submission index, valid once Submitted.
func (e *FrameEncoder) Submission() uint64 { return e.submission }

// EndEncoding finishes recording and keeps the command buffer for Submit.
func (e *FrameEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.state != EncoderRecording {
		return nil, fmt.Errorf("end encoding: %w (state %s)", ErrEncoderNotRecording, e.state)
	}
	cmd, err := e.CommandEncoder.EndEncoding()
	if err != nil {
		return nil, err
	}
	e.cmd = cmd
	e.state = EncoderFinished
	return cmd, nil
}

// Submit hands the finished command buffer to queue without waiting for it.
func (e *FrameEncoder) Submit(queue hal.Queue) error {
	switch e.state {
	case EncoderRecording:
		return fmt.Errorf("submit: %w", ErrEncoderNotFinished)
	case EncoderSubmitted, EncoderReleased:
		return fmt.Errorf("submit: %w", ErrEncoderConsumed)
	}
	index, err := queue.Submit([]hal.CommandBuffer{e.cmd})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	e.submission = index
	e.state = EncoderSubmitted
	return nil
}

// Completed reports whether the submission finished, given the latest
// completed index from hal.Queue.PollCompleted.
func (e *FrameEncoder) Completed(done uint64) bool {
	return e.state == EncoderSubmitted && e.submission <= done
}

// Release frees the command buffer and the encoder. An encoder still
// recording has its commands discarded. Safe to call multiple times.
func (e *FrameEncoder) Release() {
	if e.state == EncoderReleased {
		return
	}
	if e.state == EncoderRecording {
		e.CommandEncoder.DiscardEncoding()
	}
	if e.cmd != nil {
		e.device.FreeCommandBuffer(e.cmd)
		e.cmd = nil
	}
	e.CommandEncoder.Destroy()
	e.state = EncoderReleased
}
