// Package config handles loading checker configuration from files.
//
// Configuration can be specified in a YAML file named oclcheck.yaml or
// .oclcheck.yaml. The config file is searched for in the starting
// directory and its parents.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/HugoDaniel/oclcheck/internal/builtins"
	"github.com/HugoDaniel/oclcheck/internal/checker"
)

// Config represents the configuration file structure.
// All fields are optional.
type Config struct {
	// IncludePaths are searched for #include files after the
	// directories listed in OCLCHECK_INCLUDES.
	IncludePaths []string `yaml:"includePaths"`

	// Builtins names an extra builtin table merged over the default one.
	Builtins string `yaml:"builtins"`

	// FailOnUnresolvedPrototypes reports functions declared but never defined.
	FailOnUnresolvedPrototypes *bool `yaml:"failOnUnresolvedPrototypes"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"oclcheck.yaml",
	".oclcheck.yaml",
	"oclcheck.yml",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path. Unknown keys
// are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// resolve makes a path from the config file relative to its directory.
func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// MergeOptions holds the command-line settings. Zero values mean "not
// specified".
type MergeOptions struct {
	IncludePaths               []string
	Builtins                   string
	FailOnUnresolvedPrototypes *bool
}

// Merge returns a config with CLI options applied over c. Include paths
// from the command line are searched before the configured ones. c may
// be nil.
func (c *Config) Merge(cli MergeOptions) *Config {
	out := &Config{}
	if c != nil {
		for _, p := range c.IncludePaths {
			out.IncludePaths = append(out.IncludePaths, c.resolve(p))
		}
		out.Builtins = c.resolve(c.Builtins)
		out.FailOnUnresolvedPrototypes = c.FailOnUnresolvedPrototypes
	}

	out.IncludePaths = append(append([]string(nil), cli.IncludePaths...), out.IncludePaths...)
	if cli.Builtins != "" {
		out.Builtins = cli.Builtins
	}
	if cli.FailOnUnresolvedPrototypes != nil {
		out.FailOnUnresolvedPrototypes = cli.FailOnUnresolvedPrototypes
	}
	return out
}

// ToOptions converts c to checker.Options.
func (c *Config) ToOptions() checker.Options {
	opts := checker.Options{}
	for _, p := range c.IncludePaths {
		opts.IncludePaths = append(opts.IncludePaths, c.resolve(p))
	}
	if c.FailOnUnresolvedPrototypes != nil {
		opts.FailOnUnresolvedPrototypes = *c.FailOnUnresolvedPrototypes
	}
	return opts
}

// Registry returns the builtin registry c asks for: the default one,
// extended by the Builtins table when set.
func (c *Config) Registry() (*builtins.Registry, error) {
	if c.Builtins == "" {
		return builtins.Default(), nil
	}
	return builtins.Default().ExtendFile(c.resolve(c.Builtins))
}
