package busybee

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Compiled configuration defaults.
const (
	DefaultListenAddr = ":8000"
	DefaultTargetURL  = "http://127.0.0.1:8000"
)

// GeneratorConfig tunes the background traffic generator.
type GeneratorConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled"`
	TargetURL  string `toml:"target_url" json:"target_url"`
	MinDelayMS int    `toml:"min_delay_ms" json:"min_delay_ms"`
	MaxDelayMS int    `toml:"max_delay_ms" json:"max_delay_ms"`
}

// Config is the busybee server configuration.
//
// Values come from, in increasing priority: compiled defaults, a TOML
// configuration file, environment variables (BUSYBEE_ prefix), and
// command-line flags.
type Config struct {
	Listen    string          `toml:"listen" json:"listen"`
	WarnMS    int             `toml:"warn_ms" json:"warn_ms"`
	SlowMS    int             `toml:"slow_ms" json:"slow_ms"`
	Console   bool            `toml:"console" json:"console"`
	Log       LogConfig       `toml:"log" json:"log"`
	Generator GeneratorConfig `toml:"generator" json:"generator"`
}

// NewConfig returns a Config filled with the compiled defaults.
func NewConfig() *Config {
	return &Config{
		Listen:  DefaultListenAddr,
		WarnMS:  int(DefaultWarnThreshold / time.Millisecond),
		SlowMS:  int(DefaultSlowThreshold / time.Millisecond),
		Console: true,
		Generator: GeneratorConfig{
			Enabled:    true,
			TargetURL:  DefaultTargetURL,
			MinDelayMS: int(DefaultMinDelay / time.Millisecond),
			MaxDelayMS: int(DefaultMaxDelay / time.Millisecond),
		},
	}
}

// DecodeFile overlays TOML configuration read from path onto c.
func (c *Config) DecodeFile(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// NewViper returns a Viper prepared for BUSYBEE_* environment
// variables.  Callers may additionally bind command-line flags with
// BindPFlags; changed flags take priority over the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("busybee")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides overlays values set through v onto c.
// Keys use flag spelling, e.g. "warn-ms" answers to --warn-ms and
// BUSYBEE_WARN_MS.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v.IsSet("listen") {
		c.Listen = v.GetString("listen")
	}
	if v.IsSet("warn-ms") {
		c.WarnMS = v.GetInt("warn-ms")
	}
	if v.IsSet("slow-ms") {
		c.SlowMS = v.GetInt("slow-ms")
	}
	if v.IsSet("console") {
		c.Console = v.GetBool("console")
	}
	if v.IsSet("generate") {
		c.Generator.Enabled = v.GetBool("generate")
	}
	if v.IsSet("target-url") {
		c.Generator.TargetURL = v.GetString("target-url")
	}
	if v.IsSet("min-delay-ms") {
		c.Generator.MinDelayMS = v.GetInt("min-delay-ms")
	}
	if v.IsSet("max-delay-ms") {
		c.Generator.MaxDelayMS = v.GetInt("max-delay-ms")
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.WarnMS <= 0 || c.SlowMS <= 0 {
		return errors.New("latency thresholds must be positive")
	}
	if c.WarnMS >= c.SlowMS {
		return fmt.Errorf("warn_ms (%d) must be less than slow_ms (%d)", c.WarnMS, c.SlowMS)
	}
	if c.Generator.MinDelayMS <= 0 {
		return errors.New("generator min_delay_ms must be positive")
	}
	if c.Generator.MaxDelayMS < c.Generator.MinDelayMS {
		return errors.New("generator max_delay_ms must not be less than min_delay_ms")
	}
	u, err := url.Parse(c.Generator.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("target URL must be http or https: " + c.Generator.TargetURL)
	}
	return nil
}

// WarnThreshold returns the warn tier threshold as a Duration.
func (c *Config) WarnThreshold() time.Duration {
	return time.Duration(c.WarnMS) * time.Millisecond
}

// SlowThreshold returns the slow tier threshold as a Duration.
func (c *Config) SlowThreshold() time.Duration {
	return time.Duration(c.SlowMS) * time.Millisecond
}

// MinDelay returns the generator's minimum inter-call delay.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.Generator.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the generator's maximum inter-call delay.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Generator.MaxDelayMS) * time.Millisecond
}
