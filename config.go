package hwcomp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of a composition context.
type Config struct {
	Capabilities Capabilities `yaml:"capabilities"`
	Policy       Policy       `yaml:"policy"`
}

// DefaultConfig returns DefaultCapabilities and DefaultPolicy.
func DefaultConfig() Config {
	return Config{Capabilities: DefaultCapabilities(), Policy: DefaultPolicy()}
}

// LoadConfig loads configuration from a YAML file. Environment variables in
// the file are expanded and keys that are absent keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Capabilities.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
