// Package config reads formfuzz run settings from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formfuzz/pkg/generator"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

// FileName is the config file looked up when no path is given.
const FileName = ".formfuzz.yaml"

// Config holds the settings of one fuzz run. Zero values mean "use the
// default".
type Config struct {
	Seed           *int64 `yaml:"seed,omitempty" toml:"seed,omitempty"`
	MaxRows        int    `yaml:"max_rows,omitempty" toml:"max_rows,omitempty"`
	MinString      int    `yaml:"min_string,omitempty" toml:"min_string,omitempty"`
	MaxString      int    `yaml:"max_string,omitempty" toml:"max_string,omitempty"`
	TextFactor     int    `yaml:"text_factor,omitempty" toml:"text_factor,omitempty"`
	MinNumber      int64  `yaml:"min_number,omitempty" toml:"min_number,omitempty"`
	MaxNumber      int64  `yaml:"max_number,omitempty" toml:"max_number,omitempty"`
	DateFormat     string `yaml:"date_format,omitempty" toml:"date_format,omitempty"`
	DatetimeFormat string `yaml:"datetime_format,omitempty" toml:"datetime_format,omitempty"`
	Fixtures       string `yaml:"fixtures,omitempty" toml:"fixtures,omitempty"`
	Model          string `yaml:"model,omitempty" toml:"model,omitempty"`
	ViewRef        string `yaml:"view_ref,omitempty" toml:"view_ref,omitempty"`
}

// Load reads the config file at path. The format follows the extension:
// .toml files are decoded as TOML, everything else as YAML. A missing file
// yields a zero Config and no error.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidationError lists every problem found in a config.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks all fields and reports every issue at once.
func (c *Config) Validate() error {
	var errs []string
	if c.MaxRows < 0 {
		errs = append(errs, fmt.Sprintf("max_rows: must be non-negative, got %d", c.MaxRows))
	}
	if c.MinString < 0 {
		errs = append(errs, fmt.Sprintf("min_string: must be non-negative, got %d", c.MinString))
	}
	if c.MaxString < 0 {
		errs = append(errs, fmt.Sprintf("max_string: must be non-negative, got %d", c.MaxString))
	}
	if c.MinString > 0 && c.MaxString > 0 && c.MaxString < c.MinString {
		errs = append(errs, fmt.Sprintf("max_string: must be >= min_string (%d), got %d", c.MinString, c.MaxString))
	}
	if c.TextFactor < 0 {
		errs = append(errs, fmt.Sprintf("text_factor: must be non-negative, got %d", c.TextFactor))
	}
	if c.MinNumber != 0 && c.MaxNumber != 0 && c.MaxNumber < c.MinNumber {
		errs = append(errs, fmt.Sprintf("max_number: must be >= min_number (%d), got %d", c.MinNumber, c.MaxNumber))
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// GeneratorLimits merges the configured bounds over the generator defaults.
func (c *Config) GeneratorLimits() generator.Limits {
	limits := generator.DefaultLimits()
	if c.MinString > 0 {
		limits.MinString = c.MinString
	}
	if c.MaxString > 0 {
		limits.MaxString = c.MaxString
	}
	if c.TextFactor > 0 {
		limits.TextFactor = c.TextFactor
	}
	if c.MinNumber != 0 || c.MaxNumber != 0 {
		limits.MinNumber = c.MinNumber
		limits.MaxNumber = c.MaxNumber
		if c.MaxNumber == 0 {
			limits.MaxNumber = generator.DefaultMaxNumber
		}
	}
	return limits
}

// DateFormatter returns the server date layouts, with the generator defaults
// filling any layout left empty.
func (c *Config) DateFormatter() generator.LayoutFormatter {
	f := generator.LayoutFormatter{Date: generator.DateLayout, Datetime: generator.DatetimeLayout}
	if c.DateFormat != "" {
		f.Date = c.DateFormat
	}
	if c.DatetimeFormat != "" {
		f.Datetime = c.DatetimeFormat
	}
	return f
}

// Rows returns the configured one2many row cap or the session default.
func (c *Config) Rows() int {
	if c.MaxRows > 0 {
		return c.MaxRows
	}
	return session.DefaultMaxRows
}

// SessionOptions translates the config into session options: a generator
// seeded, bounded and date-formatted by the config, plus the row cap.
func (c *Config) SessionOptions() []session.Option {
	genOpts := []generator.Option{
		generator.WithLimits(c.GeneratorLimits()),
		generator.WithDateFormatter(c.DateFormatter()),
	}
	if c.Seed != nil {
		genOpts = append(genOpts, generator.WithSeed(*c.Seed))
	}
	return []session.Option{
		session.WithGenerator(generator.New(genOpts...)),
		session.WithMaxRows(c.Rows()),
	}
}
