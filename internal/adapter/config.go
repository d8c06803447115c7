package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Clean   CleanConfig   `mapstructure:"clean"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Opener  OpenerConfig  `mapstructure:"opener"`
}

// ScanConfig controls project discovery
type ScanConfig struct {
	Roots          []string `mapstructure:"roots"`
	MaxDepth       int      `mapstructure:"max_depth"` // 0 means unlimited
	FollowSymlinks bool     `mapstructure:"follow_symlinks"`
	Excludes       []string `mapstructure:"excludes"` // glob on full path or base name
	Concurrency    int      `mapstructure:"concurrency"`
}

// CleanConfig controls artifact removal
type CleanConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	DryRun      bool `mapstructure:"dry_run"`
}

// StorageConfig locates the database holding the configuration record
type StorageConfig struct {
	Path string `mapstructure:"path"` // empty keeps the record in memory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. "127.0.0.1:9090"; empty disables it
}

// OpenerConfig selects the program used to reveal a project directory
type OpenerConfig struct {
	Command string   `mapstructure:"command"` // empty for the system file manager
	Args    []string `mapstructure:"args"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Scan: ScanConfig{
			Roots:       []string{home},
			MaxDepth:    0,
			Excludes:    []string{".git", ".cache", "Library"},
			Concurrency: runtime.GOMAXPROCS(0),
		},
		Clean: CleanConfig{
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Path: filepath.Join(defaultDataPath(), "kondo.db"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "kondo.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the directory for the log file and database
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "kondo")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "kondo")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "kondo")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "kondo")
	}
}

func setDefaults(cfg *Config) {
	viper.SetDefault("scan.roots", cfg.Scan.Roots)
	viper.SetDefault("scan.max_depth", cfg.Scan.MaxDepth)
	viper.SetDefault("scan.follow_symlinks", cfg.Scan.FollowSymlinks)
	viper.SetDefault("scan.excludes", cfg.Scan.Excludes)
	viper.SetDefault("scan.concurrency", cfg.Scan.Concurrency)
	viper.SetDefault("clean.concurrency", cfg.Clean.Concurrency)
	viper.SetDefault("clean.dry_run", cfg.Clean.DryRun)
	viper.SetDefault("storage.path", cfg.Storage.Path)
	viper.SetDefault("logging.file", cfg.Logging.File)
	viper.SetDefault("logging.level", cfg.Logging.Level)
	viper.SetDefault("metrics.addr", cfg.Metrics.Addr)
	viper.SetDefault("opener.command", cfg.Opener.Command)
	viper.SetDefault("opener.args", cfg.Opener.Args)
}

// LoadConfig loads configuration from file and environment. An empty file
// searches the default config directory and the working directory.
func LoadConfig(file string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(cfg)

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(defaultConfigPath())
		viper.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. KONDO_CLEAN_DRY_RUN=true
	viper.SetEnvPrefix("KONDO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(file != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Scan.Roots = ExpandHome(cfg.Scan.Roots)

	return cfg, nil
}

// SaveConfig writes cfg to file, or to the default location when file is empty
func SaveConfig(cfg *Config, file string) error {
	if file == "" {
		file = filepath.Join(defaultConfigPath(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("scan.roots", cfg.Scan.Roots)
	viper.Set("scan.max_depth", cfg.Scan.MaxDepth)
	viper.Set("scan.follow_symlinks", cfg.Scan.FollowSymlinks)
	viper.Set("scan.excludes", cfg.Scan.Excludes)
	viper.Set("scan.concurrency", cfg.Scan.Concurrency)

	viper.Set("clean.concurrency", cfg.Clean.Concurrency)
	viper.Set("clean.dry_run", cfg.Clean.DryRun)

	viper.Set("storage.path", cfg.Storage.Path)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	viper.Set("metrics.addr", cfg.Metrics.Addr)

	viper.Set("opener.command", cfg.Opener.Command)
	viper.Set("opener.args", cfg.Opener.Args)

	if err := viper.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WatchConfig re-reads the config file whenever it changes and hands the new
// configuration to onChange. A file that no longer parses is reported with a
// nil config.
func WatchConfig(onChange func(cfg *Config, ev fsnotify.Event, err error)) {
	viper.OnConfigChange(func(ev fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			onChange(nil, ev, fmt.Errorf("error parsing config: %w", err))
			return
		}
		cfg.Scan.Roots = ExpandHome(cfg.Scan.Roots)
		onChange(cfg, ev, nil)
	})
	viper.WatchConfig()
}

// ExpandHome replaces a leading ~ in every path with the home directory
func ExpandHome(paths []string) []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		switch {
		case p == "~":
			out[i] = home
		case strings.HasPrefix(p, "~/"):
			out[i] = filepath.Join(home, p[2:])
		default:
			out[i] = p
		}
	}
	return out
}
