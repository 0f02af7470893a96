// Package config loads the daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Name     string `yaml:"name"`      // device and node name
	NodeDir  string `yaml:"node_dir"`  // directory holding the device node
	Pins     []int  `yaml:"pins"`      // BCM pin per segment, position A..G
	Driver   string `yaml:"driver"`    // "gpio" | "fake"
	LogLevel string `yaml:"log_level"` // zerolog level name
}

// Default returns the configuration matching the reference wiring: seven
// segments on BCM pins 17, 18, 27, 22, 23, 24 and 25.
func Default() *Config {
	return &Config{
		Name:     "sevenseg",
		NodeDir:  "/run/sevenseg",
		Pins:     []int{17, 18, 27, 22, 23, 24, 25},
		Driver:   "gpio",
		LogLevel: "info",
	}
}

// Load reads path on top of the defaults, so a partial file only overrides
// what it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(c.Pins) == 0 {
		return fmt.Errorf("at least one segment pin is required")
	}
	seen := map[int]bool{}
	for _, p := range c.Pins {
		if p < 0 {
			return fmt.Errorf("invalid pin %d", p)
		}
		if seen[p] {
			return fmt.Errorf("pin %d listed twice", p)
		}
		seen[p] = true
	}
	return nil
}
