package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	be.Err(t, os.MkdirAll(filepath.Dir(path), 0o755), nil)
	be.Err(t, os.WriteFile(path, []byte(content), 0o644), nil)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oclcheck.yaml")
	write(t, path, `
includePaths:
  - include
  - /usr/local/include/cl
builtins: extra.yaml
failOnUnresolvedPrototypes: true
`)

	cfg, err := LoadFile(path)
	be.Err(t, err, nil)
	be.Equal(t, cfg.IncludePaths, []string{"include", "/usr/local/include/cl"})
	be.Equal(t, cfg.Builtins, "extra.yaml")
	be.True(t, *cfg.FailOnUnresolvedPrototypes)

	opts := cfg.ToOptions()
	be.Equal(t, opts.IncludePaths, []string{filepath.Join(dir, "include"), "/usr/local/include/cl"})
	be.True(t, opts.FailOnUnresolvedPrototypes)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "oclcheck.yaml")
	write(t, path, "includePath: [a]\n")
	_, err := LoadFile(path)
	be.Err(t, err, "field includePath not found")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	be.Err(t, err, "reading config")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".oclcheck.yaml")
	write(t, path, "")
	cfg, err := LoadFile(path)
	be.Err(t, err, nil)
	be.Equal(t, len(cfg.IncludePaths), 0)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "project", "kernels")
	be.Err(t, os.MkdirAll(sub, 0o755), nil)

	path := filepath.Join(dir, "project", ".oclcheck.yaml")
	write(t, path, "failOnUnresolvedPrototypes: true\n")

	cfg, found, err := Load(sub)
	be.Err(t, err, nil)
	be.Equal(t, found, path)
	be.True(t, *cfg.FailOnUnresolvedPrototypes)
}

func TestLoadNotFound(t *testing.T) {
	cfg, found, err := Load(t.TempDir())
	be.Err(t, err, nil)
	be.Equal(t, found, "")
	be.True(t, cfg == nil)
}

func TestMerge(t *testing.T) {
	no := false
	tests := []struct {
		name     string
		cfg      *Config
		cli      MergeOptions
		includes []string
		builtins string
		fail     bool
	}{
		{
			name:     "no config",
			cli:      MergeOptions{IncludePaths: []string{"a"}},
			includes: []string{"a"},
		},
		{
			name:     "cli before config",
			cfg:      &Config{IncludePaths: []string{"b"}, Builtins: "x.yaml", dir: "/p"},
			cli:      MergeOptions{IncludePaths: []string{"a"}},
			includes: []string{"a", "/p/b"},
			builtins: "/p/x.yaml",
		},
		{
			name:     "cli overrides",
			cfg:      &Config{Builtins: "x.yaml", FailOnUnresolvedPrototypes: new(bool), dir: "/p"},
			cli:      MergeOptions{Builtins: "y.yaml", FailOnUnresolvedPrototypes: &no},
			builtins: "y.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Merge(tt.cli)
			be.Equal(t, len(got.IncludePaths), len(tt.includes))
			for i := range tt.includes {
				be.Equal(t, got.IncludePaths[i], tt.includes[i])
			}
			be.Equal(t, got.Builtins, tt.builtins)
			be.Equal(t, got.ToOptions().FailOnUnresolvedPrototypes, tt.fail)
		})
	}
}

func TestRegistry(t *testing.T) {
	reg, err := (&Config{}).Registry()
	be.Err(t, err, nil)
	be.True(t, reg.IsBuiltin("get_global_id"))

	dir := t.TempDir()
	write(t, filepath.Join(dir, "extra.yaml"), "custom:\n  my_op:\n    - {params: [gentype], returns: gentype}\n")
	cfg := &Config{Builtins: "extra.yaml", dir: dir}
	reg, err = cfg.Registry()
	be.Err(t, err, nil)
	be.True(t, reg.IsBuiltin("my_op"))

	_, err = (&Config{Builtins: filepath.Join(dir, "nope.yaml")}).Registry()
	be.Err(t, err, "opening builtin table")
}
