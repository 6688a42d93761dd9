package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the bindgen configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the bindgen configuration directory
const ConfigDirName = ".bindgen"

// Config holds all bindgen configuration
type Config struct {
	Compiler Compiler `yaml:"compiler"`
	Generate Generate `yaml:"generate"`
	Cache    CacheCfg `yaml:"cache"`
}

// Compiler holds configuration for locating system headers
type Compiler struct {
	// Command is the compiler probed for its system include search list.
	Command string `yaml:"command"`
	// SystemIncludeDirs overrides probing when non-empty.
	SystemIncludeDirs []string `yaml:"system_include_dirs"`
}

// Generate holds default options for the generate command
type Generate struct {
	// IncludeDepth bounds transitive include emission; -1 means unbounded.
	IncludeDepth int    `yaml:"include_depth"`
	MultiFile    bool   `yaml:"multi_file"`
	Tolerate     bool   `yaml:"tolerate"`
	Namespace    string `yaml:"namespace"`
}

// CacheCfg holds configuration for the incremental output cache
type CacheCfg struct {
	Enabled bool `yaml:"enabled"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Compiler: Compiler{Command: "cc"},
		Generate: Generate{IncludeDepth: -1},
		Cache:    CacheCfg{Enabled: true},
	}
}

// Load reads config from .bindgen/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Overlays the file's settings on the defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &fileConfig{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := loaded.apply(DefaultConfig())

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// fileConfig mirrors Config with optional scalar fields so a key omitted
// from the file can be told apart from an explicit zero. IncludeDepth 0 and
// Enabled false are both meaningful values.
type fileConfig struct {
	Compiler struct {
		Command           string   `yaml:"command"`
		SystemIncludeDirs []string `yaml:"system_include_dirs"`
	} `yaml:"compiler"`
	Generate struct {
		IncludeDepth *int   `yaml:"include_depth"`
		MultiFile    *bool  `yaml:"multi_file"`
		Tolerate     *bool  `yaml:"tolerate"`
		Namespace    string `yaml:"namespace"`
	} `yaml:"generate"`
	Cache struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"cache"`
}

// apply overlays the file's present fields on defaults and returns the
// result. Absent keys keep their default values.
func (f *fileConfig) apply(defaults *Config) *Config {
	cfg := *defaults

	if f.Compiler.Command != "" {
		cfg.Compiler.Command = f.Compiler.Command
	}
	if len(f.Compiler.SystemIncludeDirs) > 0 {
		cfg.Compiler.SystemIncludeDirs = f.Compiler.SystemIncludeDirs
	}
	if f.Generate.IncludeDepth != nil {
		cfg.Generate.IncludeDepth = *f.Generate.IncludeDepth
	}
	if f.Generate.MultiFile != nil {
		cfg.Generate.MultiFile = *f.Generate.MultiFile
	}
	if f.Generate.Tolerate != nil {
		cfg.Generate.Tolerate = *f.Generate.Tolerate
	}
	if f.Generate.Namespace != "" {
		cfg.Generate.Namespace = f.Generate.Namespace
	}
	if f.Cache.Enabled != nil {
		cfg.Cache.Enabled = *f.Cache.Enabled
	}

	return &cfg
}

// FindConfigDir locates the .bindgen directory by walking up from startDir.
// Returns the path to the .bindgen directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .bindgen directory if it doesn't exist.
// Returns the path to the .bindgen directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	if cfg.Compiler.Command == "" {
		return fmt.Errorf("%w: compiler command must not be empty", ErrInvalidConfig)
	}

	if cfg.Generate.IncludeDepth < -1 {
		return fmt.Errorf("%w: include_depth must be -1 or non-negative, got %d",
			ErrInvalidConfig, cfg.Generate.IncludeDepth)
	}

	for _, dir := range cfg.Compiler.SystemIncludeDirs {
		if dir == "" {
			return fmt.Errorf("%w: system_include_dirs entries must not be empty", ErrInvalidConfig)
		}
	}

	return nil
}

// SaveDefault writes the default configuration to .bindgen/config.yaml in
// workDir. Creates the .bindgen directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# bindgen configuration\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
