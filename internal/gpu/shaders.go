package gpu

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.

//go:embed shaders/cube_vs.wgsl
var cubeVertexSource string

//go:embed shaders/cube_fs.wgsl
var cubeFragmentSource string

// Default entry point names for the vertex and fragment stages.
const (
	DefaultVertexEntry   = "vmain"
	DefaultFragmentEntry = "fmain"
)

// ShaderSources holds WGSL text for the vertex and fragment stages.
// Empty entry point names fall back to vmain and fmain.
type ShaderSources struct {
	Vertex        string
	Fragment      string
	VertexEntry   string
	FragmentEntry string
}

// DefaultShaders returns the built-in cube shaders. The vertex stage reads
// the model, inverse-view and projection matrices from bindings 0, 1 and 2.
func DefaultShaders() ShaderSources {
	return ShaderSources{
		Vertex:        cubeVertexSource,
		Fragment:      cubeFragmentSource,
		VertexEntry:   DefaultVertexEntry,
		FragmentEntry: DefaultFragmentEntry,
	}
}

func (s ShaderSources) withDefaults() ShaderSources {
	if s.VertexEntry == "" {
		s.VertexEntry = DefaultVertexEntry
	}
	if s.FragmentEntry == "" {
		s.FragmentEntry = DefaultFragmentEntry
	}
	return s
}

// checkEntryPoint parses and lowers source with naga and verifies that it
// declares entry for the given stage. This catches missing or misspelled
// entry points at setup time instead of as a deferred device error.
func checkEntryPoint(source, entry string, stage ir.ShaderStage) error {
	if strings.TrimSpace(source) == "" {
		return ErrEmptyShader
	}
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Name == entry && ep.Stage == stage {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrShaderEntryPoint, entry)
}

// compileSPIRV compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// createShaderModule validates source and creates a shader module from it,
// either as WGSL or as naga-compiled SPIR-V.
func createShaderModule(device hal.Device, label, source, entry string, stage ir.ShaderStage, spirv bool) (hal.ShaderModule, error) {
	if err := checkEntryPoint(source, entry, stage); err != nil {
		return nil, err
	}

	src := hal.ShaderSource{WGSL: source}
	if spirv {
		words, err := compileSPIRV(source)
		if err != nil {
			return nil, err
		}
		src = hal.ShaderSource{SPIRV: words}
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	return module, nil
}
