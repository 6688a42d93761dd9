package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(configDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Compiler.Command != "cc" {
		t.Errorf("default compiler = %q, want cc", cfg.Compiler.Command)
	}
	if cfg.Generate.IncludeDepth != -1 {
		t.Errorf("default include depth = %d, want -1", cfg.Generate.IncludeDepth)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Compiler.Command != "cc" {
		t.Errorf("expected defaults, got compiler %q", cfg.Compiler.Command)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
compiler:
  command: clang
  system_include_dirs:
    - /opt/include
generate:
  include_depth: 2
  multi_file: true
  namespace: My.Bindings
cache:
  enabled: false
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Compiler.Command != "clang" {
		t.Errorf("compiler = %q, want clang", cfg.Compiler.Command)
	}
	if len(cfg.Compiler.SystemIncludeDirs) != 1 || cfg.Compiler.SystemIncludeDirs[0] != "/opt/include" {
		t.Errorf("system include dirs = %v", cfg.Compiler.SystemIncludeDirs)
	}
	if cfg.Generate.IncludeDepth != 2 {
		t.Errorf("include depth = %d, want 2", cfg.Generate.IncludeDepth)
	}
	if !cfg.Generate.MultiFile {
		t.Error("multi_file should be set")
	}
	if cfg.Generate.Namespace != "My.Bindings" {
		t.Errorf("namespace = %q", cfg.Generate.Namespace)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
}

func TestLoadFromPathPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "compiler:\n  command: clang\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Compiler.Command != "clang" {
		t.Errorf("compiler = %q, want clang", cfg.Compiler.Command)
	}
	if cfg.Generate.IncludeDepth != -1 {
		t.Errorf("omitted include_depth = %d, want default -1", cfg.Generate.IncludeDepth)
	}
	if !cfg.Cache.Enabled {
		t.Error("omitted cache.enabled should keep the default true")
	}
}

func TestLoadFromPathExplicitZeroValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
generate:
  include_depth: 0
cache:
  enabled: false
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Generate.IncludeDepth != 0 {
		t.Errorf("explicit include_depth 0 = %d, want 0", cfg.Generate.IncludeDepth)
	}
	if cfg.Cache.Enabled {
		t.Error("explicit cache.enabled false should stick")
	}
}

func TestLoadFromPathBadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "compiler: [not a mapping\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty compiler", func(c *Config) { c.Compiler.Command = "" }},
		{"negative depth", func(c *Config) { c.Generate.IncludeDepth = -2 }},
		{"empty system dir", func(c *Config) { c.Compiler.SystemIncludeDirs = []string{""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestApplyEmptyFileKeepsAllDefaults(t *testing.T) {
	merged := (&fileConfig{}).apply(DefaultConfig())
	want := DefaultConfig()
	if merged.Compiler.Command != want.Compiler.Command ||
		merged.Generate.IncludeDepth != want.Generate.IncludeDepth ||
		merged.Cache.Enabled != want.Cache.Enabled {
		t.Errorf("empty file should yield defaults, got %+v", merged)
	}
}

func TestFindConfigDirWalksUp(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, ConfigDirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	found, err := FindConfigDir(nested)
	if err != nil {
		t.Fatalf("FindConfigDir failed: %v", err)
	}
	if found != configDir {
		t.Errorf("found %q, want %q", found, configDir)
	}
}

func TestFindConfigDirNotFound(t *testing.T) {
	_, err := FindConfigDir(t.TempDir())
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadWalksUpFromWorkDir(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "compiler:\n  command: clang\n")
	nested := filepath.Join(root, "sub")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Compiler.Command != "clang" {
		t.Errorf("compiler = %q, want clang", cfg.Compiler.Command)
	}
}

func TestLoadNoConfigReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Compiler.Command != "cc" {
		t.Errorf("expected defaults, got %q", cfg.Compiler.Command)
	}
}

func TestSaveDefault(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveDefault(dir)
	if err != nil {
		t.Fatalf("SaveDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# bindgen configuration") {
		t.Errorf("missing header comment:\n%s", data)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if cfg.Compiler.Command != "cc" {
		t.Errorf("round-tripped compiler = %q", cfg.Compiler.Command)
	}

	if _, err := SaveDefault(dir); err == nil {
		t.Error("second SaveDefault should fail")
	}
}
