package conf

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type (
	// Config is the runtime configuration that can be loaded from a toml file.
	Config struct {
		VM  VMConfig  `toml:"vm"`
		Log LogConfig `toml:"log"`
	}
	// VMConfig sizes the register stacks and the call depth.
	VMConfig struct {
		MinStack int `toml:"min-stack"`
		MaxStack int `toml:"max-stack"`
		MaxDepth int `toml:"max-depth"`
	}
	// LogConfig configures logging and instruction tracing.
	LogConfig struct {
		Verbosity int    `toml:"verbosity"`
		File      string `toml:"file"`
		Trace     bool   `toml:"trace"`
	}
)

// Default returns the configuration used when none is provided.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// Load parses a toml configuration file and fills any missing values with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes toml configuration source.
func Parse(src string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(src, &cfg); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	cfg.fillDefaults()
	if cfg.VM.MinStack > cfg.VM.MaxStack {
		return nil, fmt.Errorf("min-stack %v exceeds max-stack %v", cfg.VM.MinStack, cfg.VM.MaxStack)
	}
	return &cfg, nil
}

func (cfg *Config) fillDefaults() {
	if cfg.VM.MinStack <= 0 {
		cfg.VM.MinStack = MINSTACK
	}
	if cfg.VM.MaxStack <= 0 {
		cfg.VM.MaxStack = MAXSTACK
	}
	if cfg.VM.MaxDepth <= 0 {
		cfg.VM.MaxDepth = MAXDEPTH
	}
}
