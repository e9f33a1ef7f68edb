// Package config loads command settings from SCMEM_* environment variables and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is shared by the scmem commands. Flags override the environment.
type Config struct {
	PID           int           `env:"SCMEM_PID"`
	Catalog       string        `env:"SCMEM_CATALOG" envDefault:"offsets.json"`
	From          string        `env:"SCMEM_FROM"`
	Modules       []string      `env:"SCMEM_MODULES" envSeparator:"," envDefault:"StarCraft.exe,StarCraft_x64.exe,starcraft"`
	StateInterval time.Duration `env:"SCMEM_STATE_INTERVAL" envDefault:"500ms"`
	UnitInterval  time.Duration `env:"SCMEM_UNIT_INTERVAL" envDefault:"100ms"`
	CountInterval time.Duration `env:"SCMEM_COUNT_INTERVAL" envDefault:"100ms"`
	UnitCapacity  int           `env:"SCMEM_UNIT_CAPACITY" envDefault:"3400"`
	Out           string        `env:"SCMEM_OUT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Bind registers one flag per field on fs, defaulting to the current values.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.PID, "pid", c.PID, "process id to attach to")
	fs.StringVar(&c.Catalog, "catalog", c.Catalog, "offset catalog JSON file")
	fs.StringVar(&c.From, "from", c.From, "replay a saved dump directory instead of a live process")
	fs.Func("modules", "comma separated game module names (default "+strings.Join(c.Modules, ",")+")", func(s string) error {
		c.Modules = splitList(s)
		return nil
	})
	fs.DurationVar(&c.StateInterval, "state-interval", c.StateInterval, "match detection interval")
	fs.DurationVar(&c.UnitInterval, "unit-interval", c.UnitInterval, "unit table refresh interval")
	fs.DurationVar(&c.CountInterval, "count-interval", c.CountInterval, "unit count refresh interval")
	fs.IntVar(&c.UnitCapacity, "unit-capacity", c.UnitCapacity, "unit array slot count")
	fs.StringVar(&c.Out, "out", c.Out, "output directory")
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	if len(c.Modules) == 0 {
		return errors.New("at least one module name is required")
	}
	if c.StateInterval <= 0 || c.UnitInterval <= 0 || c.CountInterval <= 0 {
		return errors.New("intervals must be positive")
	}
	if c.UnitCapacity <= 0 {
		return fmt.Errorf("unit capacity %d must be positive", c.UnitCapacity)
	}
	if c.PID < 0 {
		return fmt.Errorf("invalid pid %d", c.PID)
	}
	return nil
}

// ParseConfigFromArgs loads defaults from env and then parses flags.
func ParseConfigFromArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	if fs == nil {
		return nil, errors.New("flag parser is required")
	}
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Bind(fs)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
