// Package spincube renders a spinning, depth-tested cube with gogpu/wgpu.
//
// # Overview
//
// spincube is the smallest complete real-time renderer on the gogpu stack.
// It creates every GPU object once (matrix uniforms, mesh buffers, shaders,
// bind group and render pipeline), then on each display refresh:
//
//  1. rotates the cube about Y, Z and X by the elapsed time and writes the
//     model matrix,
//  2. acquires the surface texture for this frame,
//  3. records one pass that clears to dark blue and draws the cube,
//  4. submits the commands and presents, without waiting on the GPU.
//
// If the surface has no texture to give, the frame is skipped and the next
// one tries again.
//
// # Quick Start
//
//	h, err := host.NewHeadless(host.Options{Width: 800, Height: 600})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	r, err := spincube.New(h, h)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	err = r.Run(ctx, spincube.NewWallClock(), 0)
//
// # Architecture
//
//   - host: presentation surfaces and device providers (headless noop backend,
//     plus a registry for windowing hosts)
//   - internal/gpu: resource set, swapchain state machine and pass builder
//   - mesh: the cube geometry
//   - transform: model, projection and inverse view matrices
//
// # Configuration
//
// A Renderer is configured through Config, loaded from TOML with LoadConfig
// or built in code from DefaultConfig, and adjusted with functional options.
//
// # Logging
//
// spincube is silent by default. Use SetLogger to route its log/slog output.
package spincube
