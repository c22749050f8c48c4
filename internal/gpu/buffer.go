package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uploadBuffer creates a buffer sized to data with CopyDst added to usage
// and writes data into it through the queue. The write is not waited on.
//
// The buffer is destroyed again if the upload fails.
func uploadBuffer(device hal.Device, queue hal.Queue, label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrZeroSizedBuffer)
	}

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}

	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}

	slogger().Debug("buffer uploaded", "label", label, "bytes", len(data))
	return buf, nil
}
