// Package config loads the project configuration: where the index lives,
// how class names map to files, and what indexing skips.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// DefaultDatabase is the index location relative to the project root.
const DefaultDatabase = ".staticrefl/index.db"

// FileNames are the config file names Discover looks for, in order.
var FileNames = []string{"staticrefl.yaml", "staticrefl.yml", "staticrefl.toml"}

// BuiltinPrefix marks a script name that refers to an embedded script.
const BuiltinPrefix = "builtin:"

// Config describes a project. The resolver chain is built from it in a
// fixed order: the index, the classmap, the include path, then scripts.
type Config struct {
	// Database is the SQLite index path. Relative paths are under the root.
	Database string `yaml:"database" toml:"database"`
	// Classmap maps class names to files, like a generated autoload array.
	Classmap map[string]string `yaml:"classmap" toml:"classmap"`
	// IncludePath lists PEAR/PSR-0 roots searched by naming convention.
	IncludePath []string `yaml:"include_path" toml:"include_path"`
	// Scripts are Risor autoload scripts, consulted in order. Names with the
	// "builtin:" prefix refer to the embedded scripts.
	Scripts []string `yaml:"scripts" toml:"scripts"`
	// Exclude holds glob patterns, matched against slash-separated paths
	// relative to the root, for files indexing skips.
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

// Default returns the configuration used when a project has no config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Database) == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Classmap == nil {
		cfg.Classmap = map[string]string{}
	}
}

// Load reads a YAML or TOML config file, chosen by extension, applies
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: %s: unsupported format %q", path, filepath.Ext(path))
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Discover loads the first config file found in root. A project without
// one gets the defaults and an empty path.
func Discover(root string) (*Config, string, error) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("config: %w", err)
		}
		if info.IsDir() {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}

// Validate rejects empty classmap entries, empty script names and
// malformed exclude patterns.
func (c *Config) Validate() error {
	var errs []error
	for name, path := range c.Classmap {
		if strings.Trim(name, `\ `) == "" {
			errs = append(errs, fmt.Errorf("classmap: empty class name for path %q", path))
		}
		if strings.TrimSpace(path) == "" {
			errs = append(errs, fmt.Errorf("classmap: empty path for class %q", name))
		}
	}
	for i, p := range c.IncludePath {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("include_path[%d]: empty path", i))
		}
	}
	for i, s := range c.Scripts {
		if strings.TrimSpace(strings.TrimPrefix(s, BuiltinPrefix)) == "" {
			errs = append(errs, fmt.Errorf("scripts[%d]: empty script name", i))
		}
	}
	if _, err := CompileExcludes(c.Exclude); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CompileExcludes compiles glob patterns with '/' as the separator, so
// "*" stays within one path segment and "**" spans segments.
func CompileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// DatabasePath returns the index path resolved against root.
func (c *Config) DatabasePath(root string) string {
	return resolve(root, c.Database)
}

// ClassmapPaths returns the classmap with relative paths resolved against root.
func (c *Config) ClassmapPaths(root string) map[string]string {
	out := make(map[string]string, len(c.Classmap))
	for name, path := range c.Classmap {
		out[name] = resolve(root, path)
	}
	return out
}

// IncludeRoots returns the include path resolved against root.
func (c *Config) IncludeRoots(root string) []string {
	out := make([]string, len(c.IncludePath))
	for i, p := range c.IncludePath {
		out[i] = resolve(root, p)
	}
	return out
}

// IsBuiltinScript reports whether name refers to an embedded script and
// returns the name within the embedded filesystem.
func IsBuiltinScript(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, BuiltinPrefix)
	return rest, ok
}

func resolve(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
