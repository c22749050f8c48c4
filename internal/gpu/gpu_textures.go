package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DepthFormat is the depth-stencil format shared by the pipeline and the
// swapchain depth target: 24-bit depth plus an unused 8-bit stencil.
const DepthFormat = gputypes.TextureFormatDepth24PlusStencil8

// depthTarget holds the persistent depth-stencil texture used by every frame.
// Unlike the surface texture it survives across frames and is only rebuilt
// on resize.
type depthTarget struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// ensure creates or recreates the depth texture if the requested dimensions
// differ from the current size. If dimensions match and the texture exists,
// this is a no-op.
func (dt *depthTarget) ensure(device hal.Device, w, h uint32) error {
	if dt.width == w && dt.height == h && dt.tex != nil {
		return nil
	}
	dt.destroy(device)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	dt.tex = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "Depth Texture View",
	})
	if err != nil {
		dt.destroy(device)
		return fmt.Errorf("create depth view: %w", err)
	}
	dt.view = view

	dt.width = w
	dt.height = h
	slogger().Debug("depth target allocated", "width", w, "height", h)
	return nil
}

// destroy releases the depth texture and resets dimensions.
func (dt *depthTarget) destroy(device hal.Device) {
	if dt.view != nil {
		device.DestroyTextureView(dt.view)
		dt.view = nil
	}
	if dt.tex != nil {
		device.DestroyTexture(dt.tex)
		dt.tex = nil
	}
	dt.width = 0
	dt.height = 0
}
