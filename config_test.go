package hwcomp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
capabilities:
  vg_pipes: 4
  split_x: 720
policy:
  max_app_layers: 5
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Capabilities.VGPipes != 4 || cfg.Capabilities.SplitX != 720 {
		t.Errorf("capabilities = %+v", cfg.Capabilities)
	}
	if cfg.Capabilities.RGBPipes != DefaultCapabilities().RGBPipes {
		t.Errorf("RGBPipes = %d, want default %d", cfg.Capabilities.RGBPipes, DefaultCapabilities().RGBPipes)
	}
	if cfg.Policy.MaxAppLayers != 5 {
		t.Errorf("MaxAppLayers = %d, want 5", cfg.Policy.MaxAppLayers)
	}
	if cfg.Policy.OverlapAreaRatio != DefaultPolicy().OverlapAreaRatio {
		t.Errorf("OverlapAreaRatio = %v, want default", cfg.Policy.OverlapAreaRatio)
	}
}

func TestParseConfigExpandsEnv(t *testing.T) {
	t.Setenv("HWCOMP_TEST_VARIANT", "mdp3")
	cfg, err := ParseConfig([]byte("capabilities:\n  variant: ${HWCOMP_TEST_VARIANT}\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Capabilities.Variant != "mdp3" {
		t.Errorf("Variant = %q, want mdp3", cfg.Capabilities.Variant)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"no pipes", "capabilities:\n  vg_pipes: 0\n  rgb_pipes: 0\n  dma_pipes: 0\n", "pipes"},
		{"negative split", "capabilities:\n  split_x: -1\n", "split_x"},
		{"odd rotator downscale", "capabilities:\n  rotator_max_downscale: 3\n", "rotator_max_downscale"},
		{"ratio above one", "policy:\n  overlap_area_ratio: 1.5\n", "overlap_area_ratio"},
		{"overlap of one layer", "policy:\n  max_overlap_layers: 1\n", "max_overlap_layers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("ParseConfig() error = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	if _, err := ParseConfig([]byte("capabilities: [")); err == nil {
		t.Error("ParseConfig() accepted malformed YAML")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hwcomp.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  padding_rounds: 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Policy.PaddingRounds != 4 {
		t.Errorf("PaddingRounds = %d, want 4", cfg.Policy.PaddingRounds)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := DefaultCapabilities().Validate(); err != nil {
		t.Errorf("DefaultCapabilities().Validate() = %v", err)
	}
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("DefaultPolicy().Validate() = %v", err)
	}
	if got := DefaultCapabilities().TotalPipes(); got != 6 {
		t.Errorf("TotalPipes() = %d, want 6", got)
	}
}
