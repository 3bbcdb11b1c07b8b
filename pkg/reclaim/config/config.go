package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// ScanSection configures what gets traversed.
type ScanSection struct {
	Paths           []string `mapstructure:"paths"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	MaxDepth        int      `mapstructure:"max_depth"`
	FollowSymlinks  bool     `mapstructure:"follow_symlinks"`
	MinFileSize     string   `mapstructure:"min_file_size"`
}

// PerformanceSection configures scheduling and resource limits.
type PerformanceSection struct {
	Mode            string `mapstructure:"mode"`
	MaxThreads      int    `mapstructure:"max_threads"`
	MemoryLimitMB   int    `mapstructure:"memory_limit_mb"`
	CPULimitPercent int    `mapstructure:"cpu_limit_percent"`
	IOThrottling    bool   `mapstructure:"io_throttling"`
}

// ClassificationSection configures the cleanup rules.
type ClassificationSection struct {
	TempFileAge        string   `mapstructure:"temp_file_age"`
	LargeFileThreshold string   `mapstructure:"large_file_threshold"`
	DevFolderMinSize   string   `mapstructure:"dev_folder_min_size"`
	TempExtensions     []string `mapstructure:"temp_extensions"`
}

// UISection configures presentation preferences.
type UISection struct {
	Theme        string `mapstructure:"theme"`
	ShowProgress bool   `mapstructure:"show_progress"`
	ColorOutput  bool   `mapstructure:"color_output"`
}

// LoggingSection configures application logging.
type LoggingSection struct {
	Level      string            `mapstructure:"level"`
	File       string            `mapstructure:"file"`
	Components map[string]string `mapstructure:"components"`
}

// HistorySection configures session persistence.
type HistorySection struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSessions int  `mapstructure:"max_sessions"`
}

// Config is the full application configuration as loaded from file,
// environment, and defaults. String-valued sizes and durations are parsed
// by Resolve.
type Config struct {
	Scan           ScanSection           `mapstructure:"scan"`
	Performance    PerformanceSection    `mapstructure:"performance"`
	Classification ClassificationSection `mapstructure:"classification"`
	UI             UISection             `mapstructure:"ui"`
	Logging        LoggingSection        `mapstructure:"logging"`
	History        HistorySection        `mapstructure:"history"`
}

// ScanConfig is the validated, typed configuration consumed by the scan
// core. Produced by Resolve; the core fails fast on a zero value rather
// than guessing defaults.
type ScanConfig struct {
	Paths           []string
	ExcludePatterns []string
	MaxDepth        int
	FollowSymlinks  bool
	MinFileSize     int64

	Mode            string
	MaxThreads      int
	MemoryLimitMB   int
	CPULimitPercent int
	IOThrottling    bool

	TempFileAge        time.Duration
	LargeFileThreshold int64
	DevFolderMinSize   int64
	TempExtensions     []string
}

// Load reads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - path given via --config (explicit)
//   - $XDG_CONFIG_HOME/reclaim/config.yaml
//   - $HOME/.config/reclaim/config.yaml
//
// Environment variables are prefixed with RECLAIM_
// (e.g., RECLAIM_PERFORMANCE_MODE).
func Load(explicit string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "reclaim"))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "reclaim"))
	}

	v.SetEnvPrefix("RECLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file found; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in scan paths.
	for i, p := range cfg.Scan.Paths {
		expanded, err := ExpandPath(p)
		if err != nil {
			return nil, err
		}
		cfg.Scan.Paths[i] = expanded
	}

	return &cfg, nil
}

// setDefaults registers every known key with its default value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.paths", defaultScanPaths())
	v.SetDefault("scan.exclude_patterns", DefaultExcludePatterns)
	v.SetDefault("scan.max_depth", DefaultMaxDepth)
	v.SetDefault("scan.follow_symlinks", false)
	v.SetDefault("scan.min_file_size", DefaultMinFileSize)

	v.SetDefault("performance.mode", DefaultMode)
	v.SetDefault("performance.max_threads", DefaultMaxThreads)
	v.SetDefault("performance.memory_limit_mb", DefaultMemoryLimitMB)
	v.SetDefault("performance.cpu_limit_percent", DefaultCPULimitPercent)
	v.SetDefault("performance.io_throttling", true)

	v.SetDefault("classification.temp_file_age", DefaultTempFileAge)
	v.SetDefault("classification.large_file_threshold", DefaultLargeFileThreshold)
	v.SetDefault("classification.dev_folder_min_size", DefaultDevFolderMinSize)
	v.SetDefault("classification.temp_extensions", DefaultTempExtensions)

	v.SetDefault("ui.theme", "auto")
	v.SetDefault("ui.show_progress", true)
	v.SetDefault("ui.color_output", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.components", map[string]string{
		"pipeline": "info",
		"sched":    "info",
		"store":    "warn",
	})

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_sessions", DefaultHistoryMaxSessions)
}

// defaultScanPaths returns the user directories scanned when no paths are
// configured: Documents, Downloads, and Desktop under the home directory.
func defaultScanPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return []string{"."}
	}
	return []string{
		filepath.Join(homeDir, "Documents"),
		filepath.Join(homeDir, "Downloads"),
		filepath.Join(homeDir, "Desktop"),
	}
}

// Resolve parses and validates the scan-relevant sections into the typed
// ScanConfig the core consumes. All failures wrap types.ErrConfigInvalid.
func (c *Config) Resolve() (*ScanConfig, error) {
	if len(c.Scan.Paths) == 0 {
		return nil, fmt.Errorf("%w: scan.paths must not be empty", types.ErrConfigInvalid)
	}

	minSize, err := types.ParseSize(c.Scan.MinFileSize)
	if err != nil {
		return nil, fmt.Errorf("%w: scan.min_file_size: %v", types.ErrConfigInvalid, err)
	}

	if c.Scan.MaxDepth < 1 {
		return nil, fmt.Errorf("%w: scan.max_depth must be at least 1, got %d", types.ErrConfigInvalid, c.Scan.MaxDepth)
	}

	mode := strings.ToLower(c.Performance.Mode)
	if mode != "background" && mode != "foreground" {
		return nil, fmt.Errorf("%w: performance.mode must be background or foreground, got %q", types.ErrConfigInvalid, c.Performance.Mode)
	}

	if c.Performance.MaxThreads < 1 || c.Performance.MaxThreads > 16 {
		return nil, fmt.Errorf("%w: performance.max_threads must be between 1 and 16, got %d", types.ErrConfigInvalid, c.Performance.MaxThreads)
	}

	if c.Performance.MemoryLimitMB <= 0 {
		return nil, fmt.Errorf("%w: performance.memory_limit_mb must be positive, got %d", types.ErrConfigInvalid, c.Performance.MemoryLimitMB)
	}

	if c.Performance.CPULimitPercent < 1 || c.Performance.CPULimitPercent > 100 {
		return nil, fmt.Errorf("%w: performance.cpu_limit_percent must be between 1 and 100, got %d", types.ErrConfigInvalid, c.Performance.CPULimitPercent)
	}

	tempAge, err := types.ParseDuration(c.Classification.TempFileAge)
	if err != nil {
		return nil, fmt.Errorf("%w: classification.temp_file_age: %v", types.ErrConfigInvalid, err)
	}

	largeThreshold, err := types.ParseSize(c.Classification.LargeFileThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: classification.large_file_threshold: %v", types.ErrConfigInvalid, err)
	}

	devFolderMin, err := types.ParseSize(c.Classification.DevFolderMinSize)
	if err != nil {
		return nil, fmt.Errorf("%w: classification.dev_folder_min_size: %v", types.ErrConfigInvalid, err)
	}

	exts := make([]string, 0, len(c.Classification.TempExtensions))
	for _, ext := range c.Classification.TempExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}

	return &ScanConfig{
		Paths:           c.Scan.Paths,
		ExcludePatterns: c.Scan.ExcludePatterns,
		MaxDepth:        c.Scan.MaxDepth,
		FollowSymlinks:  c.Scan.FollowSymlinks,
		MinFileSize:     minSize,

		Mode:            mode,
		MaxThreads:      c.Performance.MaxThreads,
		MemoryLimitMB:   c.Performance.MemoryLimitMB,
		CPULimitPercent: c.Performance.CPULimitPercent,
		IOThrottling:    c.Performance.IOThrottling,

		TempFileAge:        tempAge,
		LargeFileThreshold: largeThreshold,
		DevFolderMinSize:   devFolderMin,
		TempExtensions:     exts,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "reclaim"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "reclaim"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a fully commented default config file if none
// exists. Returns the path written, or the existing path with no error.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Reclaim Disk Analyzer Configuration

# What to scan.
scan:
  # Root directories to analyze. Defaults to Documents, Downloads, and
  # Desktop under your home directory.
  paths: []
  # Glob patterns to skip during traversal.
  exclude_patterns:
    - "**/.git/**"
    - "**/__pycache__/**"
    - "**/node_modules/**"
  # Maximum directory depth below each root.
  max_depth: %d
  # Follow symlinked directories (cycles are detected and skipped).
  follow_symlinks: false
  # Files below this size are never hashed for duplicate detection.
  min_file_size: %s

# Scheduling and resource limits.
performance:
  # background keeps at most two workers; foreground may use all cores.
  mode: %s
  # Worker pool ceiling (1-16).
  max_threads: %d
  # Memory budget; the scheduler backs off above this.
  memory_limit_mb: %d
  # CPU high-water mark in percent.
  cpu_limit_percent: %d
  # Rate-limit file reads while throttled.
  io_throttling: true

# Cleanup classification thresholds.
classification:
  # Minimum age before temp-file rules apply.
  temp_file_age: %s
  # Size above which files are flagged as large.
  large_file_threshold: %s
  # Aggregate size before a build/cache directory is flagged.
  dev_folder_min_size: %s
  # Extensions treated as temporary files.
  temp_extensions: [".tmp", ".bak", ".old"]

# Presentation preferences.
ui:
  theme: auto
  show_progress: true
  color_output: true

# Logging configuration.
logging:
  # Log level: debug, info, warn, error.
  level: info
  # Log file path (empty disables file logging).
  file: ""
  # Per-component log levels.
  components:
    pipeline: info
    sched: info
    store: warn

# Scan session history.
history:
  enabled: true
  max_sessions: %d
`, DefaultMaxDepth, DefaultMinFileSize, DefaultMode, DefaultMaxThreads,
		DefaultMemoryLimitMB, DefaultCPULimitPercent, DefaultTempFileAge,
		DefaultLargeFileThreshold, DefaultDevFolderMinSize, DefaultHistoryMaxSessions)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/reclaim/ for the session database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "reclaim")
}

// StateDir returns $XDG_STATE_HOME/reclaim/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "reclaim")
}

// DefaultDBPath returns the default session database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "reclaim.db")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "reclaim.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
