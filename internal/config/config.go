// Package config is used to load the configuration file
package config

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/caarlos0/env/v8"
	"github.com/spf13/viper"
)

// Backends accepted by the runtime setting.
const (
	RuntimeAuto   = "auto"
	RuntimeNative = "native"
	RuntimeSim    = "sim"
)

// EnvPrefix prefixes every environment override, e.g. OBJCRT_RUNTIME.
const EnvPrefix = "OBJCRT_"

type dispatchConfig struct {
	Checked         bool `mapstructure:"checked" env:"DISPATCH_CHECKED"`
	VerifyCacheSize int  `mapstructure:"verify-cache-size" env:"DISPATCH_VERIFY_CACHE_SIZE"`
}

type describeConfig struct {
	CacheSize int `mapstructure:"cache-size" env:"DESCRIBE_CACHE_SIZE"`
}

type logConfig struct {
	Level string `mapstructure:"level" env:"LOG_LEVEL"`
}

// Config is the configuration struct
type Config struct {
	Runtime  string         `mapstructure:"runtime" env:"RUNTIME"`
	Dispatch dispatchConfig `mapstructure:"dispatch"`
	Describe describeConfig `mapstructure:"describe"`
	Log      logConfig      `mapstructure:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Runtime:  RuntimeAuto,
		Dispatch: dispatchConfig{VerifyCacheSize: 1024},
		Describe: describeConfig{CacheSize: 256},
		Log:      logConfig{Level: "info"},
	}
}

func (c *Config) verify() error {
	c.Runtime = strings.ToLower(strings.TrimSpace(c.Runtime))
	switch c.Runtime {
	case "":
		c.Runtime = RuntimeAuto
	case RuntimeAuto, RuntimeNative, RuntimeSim:
	default:
		return fmt.Errorf("config: unknown runtime %q (want auto, native or sim)", c.Runtime)
	}
	if c.Dispatch.VerifyCacheSize < 0 {
		return fmt.Errorf("config: dispatch.verify-cache-size must not be negative")
	} else if c.Dispatch.VerifyCacheSize == 0 {
		c.Dispatch.VerifyCacheSize = Default().Dispatch.VerifyCacheSize
	}
	if c.Describe.CacheSize < 0 {
		return fmt.Errorf("config: describe.cache-size must not be negative")
	} else if c.Describe.CacheSize == 0 {
		c.Describe.CacheSize = Default().Describe.CacheSize
	}
	if c.Log.Level == "" {
		c.Log.Level = Default().Log.Level
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %v", err)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	lvl, _ := log.ParseLevel(c.Log.Level)
	return lvl
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load unmarshals v over the defaults, then applies OBJCRT_* environment
// overrides.
func Load(v *viper.Viper) (*Config, error) {
	c := Default()

	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}

	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment: %v", err)
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
