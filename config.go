package spincube

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the tunable parameters of a Renderer. The zero value is not
// usable; start from DefaultConfig.
//
// Config maps to TOML as:
//
//	width = 800
//	height = 600
//	clear_color = [0.0, 0.0, 0.2, 1.0]
//	fov = 45.0
//	near = 0.1
//	far = 100.0
//	camera = [0.0, 0.0, 0.0]
//	cube_size = 1.0
//	spirv = false
type Config struct {
	// Width and Height size the surface and the depth target.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`

	// ClearColor is the RGBA color every frame starts from.
	ClearColor [4]float64 `toml:"clear_color"`

	// FieldOfView is the vertical field of view in degrees.
	FieldOfView float32 `toml:"fov"`
	Near        float32 `toml:"near"`
	Far         float32 `toml:"far"`

	// Camera is the eye position. The default origin gives an identity
	// inverse view matrix.
	Camera [3]float32 `toml:"camera"`

	// CubeSize is the half-extent of the default cube mesh.
	CubeSize float32 `toml:"cube_size"`

	// SPIRV compiles the shaders to SPIR-V with naga before module creation.
	SPIRV bool `toml:"spirv"`
}

// DefaultConfig returns the configuration of the reference scene: an
// 800x600 surface cleared to dark blue, a 45 degree perspective and a unit
// cube viewed from the origin.
func DefaultConfig() Config {
	return Config{
		Width:       800,
		Height:      600,
		ClearColor:  [4]float64{0, 0, 0.2, 1},
		FieldOfView: 45,
		Near:        0.1,
		Far:         100,
		CubeSize:    1,
	}
}

// Config validation errors.
var (
	ErrInvalidSize       = errors.New("spincube: width and height must be non-zero")
	ErrInvalidProjection = errors.New("spincube: projection requires 0 < near < far and 0 < fov < 180")
	ErrInvalidCubeSize   = errors.New("spincube: cube size must be positive")
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, c.Width, c.Height)
	}
	if c.Near <= 0 || c.Far <= c.Near || c.FieldOfView <= 0 || c.FieldOfView >= 180 {
		return fmt.Errorf("%w: fov=%v near=%v far=%v", ErrInvalidProjection, c.FieldOfView, c.Near, c.Far)
	}
	if c.CubeSize <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCubeSize, c.CubeSize)
	}
	return nil
}

// clearColor converts ClearColor to a gputypes.Color.
func (c *Config) clearColor() gputypes.Color {
	return gputypes.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys missing from the
// file keep their default values; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("spincube: load config: %w", err)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("spincube: load config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes TOML from r over DefaultConfig and validates the result.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var missing *toml.StrictMissingError
		if errors.As(err, &missing) {
			return Config{}, fmt.Errorf("%w:\n%s", err, missing.String())
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EncodeConfig renders c as TOML.
func EncodeConfig(c Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
