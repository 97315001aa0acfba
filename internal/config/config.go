// Package config handles tinyjvm.toml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "tinyjvm.toml"

// Config represents a tinyjvm.toml file.
type Config struct {
	ClassPath ClassPath `toml:"classpath"`
	Runtime   Runtime   `toml:"runtime"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the file, empty for Default.
	Dir string `toml:"-"`
}

// ClassPath lists directories and archives probed for classes, in order.
type ClassPath struct {
	Entries []string `toml:"entries"`
}

// Runtime tunes the interpreter.
type Runtime struct {
	MaxDepth      int `toml:"max_depth"`
	CodeCacheSize int `toml:"code_cache_size"`
}

// Log configures the logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		ClassPath: ClassPath{Entries: []string{".", "src"}},
		Runtime:   Runtime{MaxDepth: 1024, CodeCacheSize: 256},
		Log:       Log{Level: "warn", Format: "console"},
	}
}

// Load parses the file at path. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Dir, err = filepath.Abs(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to the first tinyjvm.toml and loads
// it. Default is returned when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate rejects values the runtime cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Runtime.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("runtime.max_depth must be positive, got %d", c.Runtime.MaxDepth))
	}
	if c.Runtime.CodeCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("runtime.code_cache_size must be positive, got %d", c.Runtime.CodeCacheSize))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ClassPathEntries returns the class path with relative entries resolved
// against the directory holding the file.
func (c *Config) ClassPathEntries() []string {
	paths := make([]string, 0, len(c.ClassPath.Entries))
	for _, e := range c.ClassPath.Entries {
		if c.Dir != "" && !filepath.IsAbs(e) {
			e = filepath.Join(c.Dir, e)
		}
		paths = append(paths, e)
	}
	return paths
}
