// Package config handles posetool configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// Config holds all settings.
type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Data      DataConfig      `yaml:"data"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnimationConfig holds playback and solver settings.
type AnimationConfig struct {
	FPS            int  `yaml:"fps"`             // Motion frames per second
	EaseIterations int  `yaml:"ease_iterations"` // Bezier inversion budget
	IKEnabled      bool `yaml:"ik_enabled"`
}

// DataConfig holds model and motion file locations.
type DataConfig struct {
	SearchPaths []string `yaml:"search_paths"` // Directories tried for relative paths
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			FPS:            30,
			EaseIterations: 12,
			IKEnabled:      true,
		},
		Data: DataConfig{
			SearchPaths: []string{"."},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot drive an animation.
func (c *Config) Validate() error {
	var err error
	if c.Animation.FPS <= 0 {
		err = multierr.Append(err, fmt.Errorf("animation.fps must be positive, got %d", c.Animation.FPS))
	}
	if c.Animation.EaseIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("animation.ease_iterations must be positive, got %d", c.Animation.EaseIterations))
	}
	return err
}
