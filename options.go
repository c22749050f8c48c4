package spincube

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/spincube/internal/gpu"
	"github.com/gogpu/spincube/mesh"
)

// Shaders holds the WGSL sources and entry points of the cube pipeline.
// Empty entry points default to "vmain" and "fmain".
type Shaders = gpu.ShaderSources

// DefaultShaders returns the built-in cube shaders.
func DefaultShaders() Shaders { return gpu.DefaultShaders() }

// Option configures a Renderer during creation. Options apply in order, so
// WithConfig resets anything set by earlier options.
//
// Example:
//
//	r, err := spincube.New(h, h,
//	    spincube.WithConfig(cfg),
//	    spincube.WithClearColor(gputypes.Color{R: 0.1, A: 1}),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	config  Config
	mesh    *mesh.Mesh
	shaders Shaders
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		config:  DefaultConfig(),
		shaders: DefaultShaders(),
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithMesh draws m instead of the default cube. The mesh must use the
// position+normal layout of the mesh package.
func WithMesh(m *mesh.Mesh) Option {
	return func(o *options) {
		o.mesh = m
	}
}

// WithShaders replaces the built-in WGSL. The vertex shader must read
// positions at location 0 and normals at location 1, and bind the model,
// inverse view and projection matrices at group 0, bindings 0 to 2.
func WithShaders(s Shaders) Option {
	return func(o *options) {
		o.shaders = s
	}
}

// WithSPIRVShaders compiles the shaders to SPIR-V before module creation.
func WithSPIRVShaders() Option {
	return func(o *options) {
		o.config.SPIRV = true
	}
}

// WithClearColor sets the color each frame is cleared to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.config.ClearColor = [4]float64{c.R, c.G, c.B, c.A}
	}
}
