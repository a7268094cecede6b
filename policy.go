package hwcomp

// Policy holds the tunable thresholds of the strategy selector. None of
// them is a hardware limit; they trade GPU work against pipe usage.
type Policy struct {
	// MaxAppLayers is the most app layers full-hardware composition accepts.
	MaxAppLayers int `yaml:"max_app_layers"`

	EnableOverlap bool `yaml:"enable_overlap"`

	// MaxOverlapLayers is the most top layers blitted into the overlap
	// render buffer.
	MaxOverlapLayers int `yaml:"max_overlap_layers"`

	// OverlapAreaRatio caps the overlap region as a fraction of the display.
	OverlapAreaRatio float64 `yaml:"overlap_area_ratio"`

	EnableCache     bool `yaml:"enable_cache"`
	EnableLoadBased bool `yaml:"enable_load_based"`

	// LoadBasedMinHWPixelRatio is the least share of visible pixels the
	// load-based strategy must move to pipes.
	LoadBasedMinHWPixelRatio float64 `yaml:"load_based_min_hw_pixel_ratio"`

	EnableVideoOnly bool `yaml:"enable_video_only"`

	// PaddingRounds is the number of frames after a hotplug during which
	// only full-hardware composition is tried.
	PaddingRounds int `yaml:"padding_rounds"`
}

// DefaultPolicy returns the thresholds used when no configuration is given.
func DefaultPolicy() Policy {
	return Policy{
		MaxAppLayers:             8,
		EnableOverlap:            true,
		MaxOverlapLayers:         2,
		OverlapAreaRatio:         0.25,
		EnableCache:              true,
		EnableLoadBased:          true,
		LoadBasedMinHWPixelRatio: 0.5,
		EnableVideoOnly:          true,
		PaddingRounds:            2,
	}
}

// Validate checks the thresholds.
func (p Policy) Validate() error {
	switch {
	case p.MaxAppLayers < 1:
		return &ConfigError{Field: "max_app_layers", Reason: "must be at least 1"}
	case p.EnableOverlap && p.MaxOverlapLayers < 2:
		return &ConfigError{Field: "max_overlap_layers", Reason: "must be at least 2"}
	case p.OverlapAreaRatio < 0 || p.OverlapAreaRatio > 1:
		return &ConfigError{Field: "overlap_area_ratio", Reason: "must be within [0, 1]"}
	case p.LoadBasedMinHWPixelRatio < 0 || p.LoadBasedMinHWPixelRatio > 1:
		return &ConfigError{Field: "load_based_min_hw_pixel_ratio", Reason: "must be within [0, 1]"}
	case p.PaddingRounds < 0:
		return &ConfigError{Field: "padding_rounds", Reason: "must not be negative"}
	}
	return nil
}
