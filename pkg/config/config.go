// Package config loads chopit settings from a TOML file. Every tuned
// constant of the decomposers has a default, so a missing file or a
// partial file is valid.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/chopit/pkg/cubit"
	"github.com/chazu/chopit/pkg/curvecut"
	"github.com/chazu/chopit/pkg/engine"
	"github.com/chazu/chopit/pkg/export"
	"github.com/chazu/chopit/pkg/hollow"
	"github.com/chazu/chopit/pkg/kernel/sdfx"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full set of settings.
type Config struct {
	LogLevel string `toml:"log_level"` // debug, info, warn or error
	// Timeout bounds one job evaluation, as a Go duration string.
	Timeout string `toml:"timeout"`

	PrinterSize    float64 `toml:"printer_size"`    // smallest printer build dimension
	ModelHeight    float64 `toml:"model_height"`    // target of scale-to-height
	ShellThickness float64 `toml:"shell_thickness"` // hollowing wall thickness

	Output   Output          `toml:"output"`
	Kernel   sdfx.Config     `toml:"kernel"`
	Cubit    cubit.Options   `toml:"cubit"`
	CurveCut curvecut.Params `toml:"curvecut"`
	Hollow   hollow.Params   `toml:"hollow"`
}

// Output holds export settings.
type Output struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"` // 3mf or stl
}

// Default returns the default settings.
func Default() Config {
	return Config{
		LogLevel:       "info",
		Timeout:        engine.DefaultTimeout.String(),
		PrinterSize:    20,
		ModelHeight:    200,
		ShellThickness: 3,
		Output: Output{
			Dir:    "out",
			Format: string(export.Format3MF),
		},
		Kernel:   sdfx.DefaultConfig(),
		Cubit:    cubit.DefaultOptions(),
		CurveCut: curvecut.DefaultParams(),
		Hollow:   hollow.DefaultParams(),
	}
}

// Load reads settings from path over the defaults. A missing file yields
// the defaults with no error. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: %s: %s", path, strict.String())
		}
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks the settings that are not checked where they are used.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.EvalTimeout(); err != nil {
		return err
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for name, v := range map[string]float64{
		"printer_size":    c.PrinterSize,
		"model_height":    c.ModelHeight,
		"shell_thickness": c.ShellThickness,
	} {
		if !(v > 0) {
			return fmt.Errorf("config: %s %g must be positive", name, v)
		}
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// EvalTimeout parses Timeout.
func (c Config) EvalTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: timeout %s must be positive", d)
	}
	return d, nil
}

// EngineOptions assembles the evaluation options, logging to log.
func (c Config) EngineOptions(log *slog.Logger) engine.Options {
	opts := engine.DefaultOptions()
	if d, err := c.EvalTimeout(); err == nil {
		opts.Timeout = d
	}
	opts.Cubit = c.Cubit
	opts.CurveCut = c.CurveCut
	opts.Hollow = c.Hollow
	opts.Logger = log
	opts.ChunkSize = c.PrinterSize
	opts.ModelHeight = c.ModelHeight
	opts.ShellThickness = c.ShellThickness
	return opts
}
