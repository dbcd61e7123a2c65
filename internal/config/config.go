// Package config resolves evoprobe settings from defaults, an optional YAML
// file, a .env file and EVOPROBE_* environment variables, in that order.
// Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// DefaultFile is read when no config file is named explicitly.
const DefaultFile = "evoprobe.yaml"

// Environment variables overriding the config file.
const (
	EnvPrefixes    = "EVOPROBE_PREFIXES"
	EnvLevel       = "EVOPROBE_LEVEL"
	EnvOutput      = "EVOPROBE_OUTPUT"
	EnvOverlay     = "EVOPROBE_OVERLAY"
	EnvReports     = "EVOPROBE_REPORTS"
	EnvParallelism = "EVOPROBE_PARALLELISM"
	EnvLogLevel    = "EVOPROBE_LOG_LEVEL"
)

var (
	// ErrInvalidLevel is returned for an unknown instrumentation level.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrInvalidPrefix is returned for a prefix that is not an import path.
	ErrInvalidPrefix = errors.New("invalid prefix")
	// ErrInvalidValue is returned for any other malformed setting.
	ErrInvalidValue = errors.New("invalid value")
)

var levelNames = map[string]m.Level{
	"none":       m.LevelNone,
	"coverage":   m.LevelCoverage,
	"comparison": m.LevelComparison,
	"boolean":    m.LevelBoolean,
}

// Config holds every setting of an instrumentation run.
type Config struct {
	Prefixes    []string `yaml:"prefixes"`
	Level       m.Level  `yaml:"level"`
	Output      string   `yaml:"output"`
	Overlay     string   `yaml:"overlay"`
	Reports     string   `yaml:"reports"`
	Parallelism int      `yaml:"parallelism"`
	LogLevel    string   `yaml:"logLevel"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Level:    m.LevelBoolean,
		Output:   ".evoprobe/artifacts",
		Overlay:  ".evoprobe/overlay.json",
		Reports:  ".evoprobe/reports",
		LogLevel: "info",
	}
}

// Load builds a Config. file names a YAML config; when empty, DefaultFile
// is read if it exists. envFile names a dotenv file; when empty, .env is
// read if it exists.
func Load(file, envFile string) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	cfg := Default()

	path, required := file, true
	if path == "" {
		path, required = DefaultFile, false
	}

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case required || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}

		return nil
	}

	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefixes); ok {
		c.Prefixes = SplitList(v)
	}

	if v, ok := lookup(EnvLevel); ok {
		level, err := ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLevel, err)
		}

		c.Level = level
	}

	if v, ok := lookup(EnvParallelism); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w: %q", EnvParallelism, ErrInvalidValue, v)
		}

		c.Parallelism = n
	}

	for name, dst := range map[string]*string{
		EnvOutput:   &c.Output,
		EnvOverlay:  &c.Overlay,
		EnvReports:  &c.Reports,
		EnvLogLevel: &c.LogLevel,
	} {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	return nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	if !c.Level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, c.Level)
	}

	for _, prefix := range c.Prefixes {
		if err := module.CheckImportPath(strings.TrimSuffix(prefix, "/")); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPrefix, err)
		}
	}

	if c.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism %d", ErrInvalidValue, c.Parallelism)
	}

	if c.Output == "" {
		return fmt.Errorf("%w: empty output directory", ErrInvalidValue)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidValue, c.LogLevel)
	}

	return level, nil
}

// ResolvePrefixes fills in the module path of the go.mod above dir when
// no prefix is configured.
func (c *Config) ResolvePrefixes(fs adapter.SourceFSAdapter, dir m.Path) error {
	if len(c.Prefixes) > 0 {
		return nil
	}

	root, err := fs.FindProjectRoot(dir)
	if err != nil {
		return err
	}

	path, err := fs.ModulePath(root)
	if err != nil {
		return err
	}

	c.Prefixes = []string{path}

	return nil
}

// ParseLevel accepts a level number or its name.
func ParseLevel(s string) (m.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if level, ok := levelNames[s]; ok {
		return level, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || !m.Level(n).Valid() {
		return m.LevelNone, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}

	return m.Level(n), nil
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var items []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
