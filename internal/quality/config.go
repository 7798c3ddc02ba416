package quality

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config enumerates the active checks and their thresholds.
// All ratios are dimensionless, MinFaceSize is in pixels.
type Config struct {
	MinFaceSize float64    `yaml:"min_face_size" json:"min_face_size"`
	Roll        RatioCheck `yaml:"roll" json:"roll"`
	Yaw         RatioCheck `yaml:"yaw" json:"yaw"`
	Pitch       PitchCheck `yaml:"pitch" json:"pitch"`
}

// RatioCheck rejects when the measured ratio exceeds MaxRatio.
type RatioCheck struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	MaxRatio float64 `yaml:"max_ratio" json:"max_ratio"`
}

// PitchCheck rejects when the nose-to-mouth ratio falls outside [MinRatio, MaxRatio].
type PitchCheck struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	MinRatio float64 `yaml:"min_ratio" json:"min_ratio"`
	MaxRatio float64 `yaml:"max_ratio" json:"max_ratio"`
}

// DefaultConfig returns the built-in thresholds: 80px minimum, pose checks disabled.
func DefaultConfig() Config {
	return Config{
		MinFaceSize: 80,
		Roll:        RatioCheck{MaxRatio: 0.15},
		Yaw:         RatioCheck{MaxRatio: 0.08},
		Pitch:       PitchCheck{MinRatio: 0.18, MaxRatio: 0.35},
	}
}

// ParseConfig decodes YAML on top of base. Keys missing from data keep base values.
func ParseConfig(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing quality config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects thresholds that would make every face fail or pass for the wrong reason.
func (c Config) Validate() error {
	if c.MinFaceSize <= 0 {
		return errors.New("quality: min_face_size must be positive")
	}
	if c.Roll.Enabled && c.Roll.MaxRatio <= 0 {
		return errors.New("quality: roll.max_ratio must be positive")
	}
	if c.Yaw.Enabled && c.Yaw.MaxRatio <= 0 {
		return errors.New("quality: yaw.max_ratio must be positive")
	}
	if c.Pitch.Enabled && (c.Pitch.MinRatio < 0 || c.Pitch.MinRatio > c.Pitch.MaxRatio) {
		return fmt.Errorf("quality: invalid pitch band [%g, %g]", c.Pitch.MinRatio, c.Pitch.MaxRatio)
	}
	return nil
}
