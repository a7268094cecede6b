package hwcomp

import "github.com/gogpu/hwcomp/pipe"

// Capabilities is the immutable hardware snapshot read once at device
// bring-up.
type Capabilities struct {
	// Variant names the pipe-class policy table (see pipe.Policies).
	Variant string `yaml:"variant"`

	VGPipes  int `yaml:"vg_pipes"`
	RGBPipes int `yaml:"rgb_pipes"`
	DMAPipes int `yaml:"dma_pipes"`

	MaxPipesPerMixer int `yaml:"max_pipes_per_mixer"`
	MaxMixerStages   int `yaml:"max_mixer_stages"`

	MaxPipeWidth  int `yaml:"max_pipe_width"`
	MaxMixerWidth int `yaml:"max_mixer_width"`

	// SplitX is the left/right mixer boundary of the primary panel; 0 means
	// the panel is driven by one mixer unless it is wider than MaxMixerWidth.
	SplitX int `yaml:"split_x"`

	MaxDownscale int `yaml:"max_downscale"`
	MaxUpscale   int `yaml:"max_upscale"`

	RotatorSessions int `yaml:"rotator_sessions"`
	RotatorBuffers  int `yaml:"rotator_buffers"`

	// RotatorMaxDownscale is the largest power-of-two pre-downscale the
	// rotator applies to video. 0 disables rotator downscale.
	RotatorMaxDownscale int `yaml:"rotator_max_downscale"`

	BWC           bool `yaml:"bwc"`
	Decimation    bool `yaml:"decimation"`
	MacroTile     bool `yaml:"macro_tile"`
	SourceSplit   bool `yaml:"source_split"`
	PartialUpdate bool `yaml:"partial_update"`
	AlphaScaling  bool `yaml:"alpha_scaling"`
	DualPipe      bool `yaml:"dual_pipe"`
	RotatorUBWC   bool `yaml:"rotator_ubwc"`
}

// DefaultCapabilities returns a mid-range single-mixer device.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Variant:          pipe.VariantMDSS,
		VGPipes:          2,
		RGBPipes:         2,
		DMAPipes:         2,
		MaxPipesPerMixer: 4,
		MaxMixerStages:   5,
		MaxPipeWidth:     2048,
		MaxMixerWidth:    2048,
		MaxDownscale:     4,
		MaxUpscale:       20,
		RotatorSessions:  4,
		RotatorBuffers:   2,
		BWC:              true,
	}
}

// TotalPipes returns the number of pipes of all classes.
func (c Capabilities) TotalPipes() int { return c.VGPipes + c.RGBPipes + c.DMAPipes }

// Validate checks the snapshot for values the allocator cannot work with.
func (c Capabilities) Validate() error {
	switch {
	case c.VGPipes < 0 || c.RGBPipes < 0 || c.DMAPipes < 0:
		return &ConfigError{Field: "pipes", Reason: "negative pipe count"}
	case c.TotalPipes() == 0:
		return &ConfigError{Field: "pipes", Reason: "no pipes"}
	case c.MaxPipesPerMixer <= 0:
		return &ConfigError{Field: "max_pipes_per_mixer", Reason: "must be positive"}
	case c.MaxMixerStages <= 0:
		return &ConfigError{Field: "max_mixer_stages", Reason: "must be positive"}
	case c.MaxPipeWidth <= 0:
		return &ConfigError{Field: "max_pipe_width", Reason: "must be positive"}
	case c.MaxMixerWidth <= 0:
		return &ConfigError{Field: "max_mixer_width", Reason: "must be positive"}
	case c.SplitX < 0:
		return &ConfigError{Field: "split_x", Reason: "must not be negative"}
	case c.MaxDownscale < 1:
		return &ConfigError{Field: "max_downscale", Reason: "must be at least 1"}
	case c.MaxUpscale < 1:
		return &ConfigError{Field: "max_upscale", Reason: "must be at least 1"}
	case c.RotatorSessions < 0:
		return &ConfigError{Field: "rotator_sessions", Reason: "must not be negative"}
	case c.RotatorSessions > 0 && c.RotatorBuffers < 1:
		return &ConfigError{Field: "rotator_buffers", Reason: "must be at least 1"}
	case c.RotatorMaxDownscale < 0 || c.RotatorMaxDownscale&(c.RotatorMaxDownscale-1) != 0:
		return &ConfigError{Field: "rotator_max_downscale", Reason: "must be 0 or a power of two"}
	}
	return nil
}
