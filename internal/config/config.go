package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/BurtHarris/dupescan/internal/fuzzy"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

// Config represents the application configuration
type Config struct {
	Recursive       bool        `yaml:"recursive"`
	IncludePatterns []string    `yaml:"include_patterns"`
	ExcludePatterns []string    `yaml:"exclude_patterns"`
	SizeLimits      SizeLimits  `yaml:"size_limits"`
	FuzzyThreshold  float64     `yaml:"fuzzy_threshold"`
	Cache           CacheConfig `yaml:"cache"`
	Verbose         bool        `yaml:"verbose"`
}

// SizeLimits bounds which files are considered, as human-readable sizes
type SizeLimits struct {
	MinFileSize string `yaml:"min_file_size"` // e.g. "1KiB"; empty means no minimum
	MaxFileSize string `yaml:"max_file_size"` // e.g. "10GiB"; empty means no maximum
}

// CacheConfig configures the persistent hash cache
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty selects the per-user default location
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be between 0 and 1, got %v", c.FuzzyThreshold)
	}

	for _, pattern := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	}

	if _, _, err := c.sizeBounds(); err != nil {
		return err
	}

	return nil
}

// ScanOptions converts the configuration into scanner options.
func (c *Config) ScanOptions() (scanner.Options, error) {
	minSize, maxSize, err := c.sizeBounds()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		Recursive:       c.Recursive,
		IncludePatterns: c.IncludePatterns,
		ExcludePatterns: c.ExcludePatterns,
		MinSize:         minSize,
		MaxSize:         maxSize,
	}, nil
}

func (c *Config) sizeBounds() (minSize, maxSize int64, err error) {
	if c.SizeLimits.MinFileSize != "" {
		n, err := humanize.ParseBytes(c.SizeLimits.MinFileSize)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid min_file_size %q: %w", c.SizeLimits.MinFileSize, err)
		}
		minSize = int64(n)
	}
	if c.SizeLimits.MaxFileSize != "" {
		n, err := humanize.ParseBytes(c.SizeLimits.MaxFileSize)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid max_file_size %q: %w", c.SizeLimits.MaxFileSize, err)
		}
		maxSize = int64(n)
	}
	if maxSize > 0 && minSize > maxSize {
		return 0, 0, fmt.Errorf("min_file_size %q exceeds max_file_size %q",
			c.SizeLimits.MinFileSize, c.SizeLimits.MaxFileSize)
	}
	return minSize, maxSize, nil
}

// CachePath returns the configured cache location, falling back to the
// per-user default.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	dir := filepath.Join(cacheDir, "dupescan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, "hashes.db"), nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "dupescan", "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Recursive:       true,
		IncludePatterns: []string{}, // all files
		ExcludePatterns: []string{
			".git",
			".svn",
			"node_modules",
			"__pycache__",
			"*.tmp",
			"*.part",
		},
		SizeLimits: SizeLimits{
			MinFileSize: "1KiB", // tiny files are rarely worth deduplicating
			MaxFileSize: "",     // no upper bound
		},
		FuzzyThreshold: fuzzy.DefaultThreshold,
		Cache: CacheConfig{
			Enabled: true,
			Path:    "", // per-user default
		},
		Verbose: false,
	}
}
