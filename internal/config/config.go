package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type SPI struct {
	Port         string `yaml:"port"`           // e.g. /dev/spidev0.0, "" for the first one
	SpeedHz      int64  `yaml:"speed_hz"`       // e.g. 4000000
	Mode         int    `yaml:"mode"`           // 0..3, APA102 uses 0
	TimeoutMs    int    `yaml:"timeout_ms"`     // per frame, <0 disables
	RetryOnError bool   `yaml:"retry_on_error"` // keep a failed frame dirty
}

type Preview struct {
	Addr       string `yaml:"addr"` // "" disables the preview server
	ThrottleMs int    `yaml:"throttle_ms"`
	Terminal   bool   `yaml:"terminal"` // draw frames in the terminal
}

type Effect struct {
	Program string `yaml:"program"` // path to a program file, "" runs the rainbow loop
	Steps   int    `yaml:"steps"`
	DelayMs int    `yaml:"delay_ms"`
	Loop    bool   `yaml:"loop"` // forces looping on; false leaves the program's own setting
}

type Config struct {
	Leds     int    `yaml:"leds"`
	LogLevel string `yaml:"log_level"`
	FPS      int    `yaml:"fps"`
	Sim      bool   `yaml:"sim"`

	SPI     SPI     `yaml:"spi"`
	Preview Preview `yaml:"preview,omitempty"`
	Effect  Effect  `yaml:"effect,omitempty"`
}

func Default() *Config {
	return &Config{
		Leds:     16,
		LogLevel: "info",
		FPS:      30,
		SPI: SPI{
			SpeedHz:   4000000,
			Mode:      0,
			TimeoutMs: 10,
		},
		Preview: Preview{
			Addr:       ":8080",
			ThrottleMs: 50,
		},
		Effect: Effect{
			Steps:   32,
			DelayMs: 20,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
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
	var errs []error
	if c.Leds <= 0 {
		errs = append(errs, fmt.Errorf("leds must be positive, got %d", c.Leds))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.SPI.SpeedHz <= 0 {
		errs = append(errs, fmt.Errorf("spi.speed_hz must be positive, got %d", c.SPI.SpeedHz))
	}
	if c.SPI.Mode < 0 || c.SPI.Mode > 3 {
		errs = append(errs, fmt.Errorf("spi.mode must be 0..3, got %d", c.SPI.Mode))
	}
	if c.Effect.Steps < 0 || c.Effect.DelayMs < 0 {
		errs = append(errs, errors.New("effect.steps and effect.delay_ms must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Timeout converts spi.timeout_ms into the driver's convention, where a
// negative value disables the bound.
func (c *Config) Timeout() time.Duration {
	if c.SPI.TimeoutMs < 0 {
		return -1
	}
	return time.Duration(c.SPI.TimeoutMs) * time.Millisecond
}

func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
