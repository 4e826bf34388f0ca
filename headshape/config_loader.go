package headshape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default resolution bounds match the interactive slider range: the practical
// decimation range is 5-50 mm with a 35 mm starting value, and the reference
// set is always computed at 10 mm.
const (
	DefaultMinResolutionMM       = 5
	DefaultMaxResolutionMM       = 50
	DefaultResolutionMM          = 35
	DefaultReferenceResolutionMM = 10
	DefaultHTTPPort              = 8080
)

// LoadConfig loads the configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	ApplyDefaults(&config)
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ApplyDefaults fills unset fields with the default interactive ranges.
func ApplyDefaults(config *Config) {
	if config.Resolution.MinMM == 0 {
		config.Resolution.MinMM = DefaultMinResolutionMM
	}
	if config.Resolution.MaxMM == 0 {
		config.Resolution.MaxMM = DefaultMaxResolutionMM
	}
	if config.Resolution.DefaultMM == 0 {
		config.Resolution.DefaultMM = DefaultResolutionMM
	}
	if config.Resolution.ReferenceMM == 0 {
		config.Resolution.ReferenceMM = DefaultReferenceResolutionMM
	}
	if config.HTTPPort == 0 {
		config.HTTPPort = DefaultHTTPPort
	}
	if config.DataDir == "" {
		config.DataDir = "."
	}
	if config.MQTT.PublishPrefix == "" {
		config.MQTT.PublishPrefix = "headmesh"
	}
}

// Validate checks cross-field consistency after defaults are applied.
func Validate(config *Config) error {
	r := config.Resolution
	if r.MinMM <= 0 {
		return fmt.Errorf("resolution.minMM must be positive, got %d", r.MinMM)
	}
	if r.MaxMM < r.MinMM {
		return fmt.Errorf("resolution.maxMM (%d) must be >= minMM (%d)", r.MaxMM, r.MinMM)
	}
	if !r.Contains(r.DefaultMM) {
		return fmt.Errorf("resolution.defaultMM (%d) outside [%d, %d]", r.DefaultMM, r.MinMM, r.MaxMM)
	}
	if r.ReferenceMM <= 0 {
		return fmt.Errorf("resolution.referenceMM must be positive, got %d", r.ReferenceMM)
	}
	if config.Warm != nil && config.Warm.ToMM < config.Warm.FromMM {
		return fmt.Errorf("warm.toMM (%d) must be >= warm.fromMM (%d)", config.Warm.ToMM, config.Warm.FromMM)
	}
	return nil
}
