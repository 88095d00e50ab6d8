package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dgallion1/headingmap/internal/headings"
)

// EnvPrefix namespaces environment overrides, e.g. HEADINGMAP_PORT.
const EnvPrefix = "HEADINGMAP"

type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Auth. Empty disables bearer checks. May reference ${ENV_VAR}.
	APIKey string `mapstructure:"api_key"`

	// Worker pool
	WorkerCount        int `mapstructure:"worker_count"`
	MaxQueueSize       int `mapstructure:"max_queue_size"`
	MaxConcurrentFiles int `mapstructure:"max_concurrent_files"`

	// Input limits
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl"`

	// Validation rules
	RequireH1AsFirstHeading bool `mapstructure:"require_h1_as_first_heading"`
	WarnOnHeadingLevelSkip  bool `mapstructure:"warn_on_heading_level_skip"`

	// Watch mode
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	IgnoredDirs   []string      `mapstructure:"ignored_dirs"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                    "8090",
		LogLevel:                "info",
		WorkerCount:             4,
		MaxQueueSize:            100,
		MaxConcurrentFiles:      8,
		MaxDocumentBytes:        5 << 20, // 5MB
		JobTTL:                  time.Hour,
		RequireH1AsFirstHeading: true,
		WarnOnHeadingLevelSkip:  true,
		WatchDebounce:           300 * time.Millisecond,
		IgnoredDirs:             []string{".git", "node_modules", "dist", "vendor"},
	}
}

// Load reads configuration from defaults, an optional YAML file, a .env
// file in the working directory and HEADINGMAP_* variables, in increasing
// precedence. An empty cfgFile searches ./headingmap.yaml and
// $HOME/.headingmap/headingmap.yaml.
func Load(cfgFile string) (Config, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return Config{}, err
	}
	return decode(v)
}

func newViper(cfgFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	d := Default()
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("worker_count", d.WorkerCount)
	v.SetDefault("max_queue_size", d.MaxQueueSize)
	v.SetDefault("max_concurrent_files", d.MaxConcurrentFiles)
	v.SetDefault("max_document_bytes", d.MaxDocumentBytes)
	v.SetDefault("job_ttl", d.JobTTL)
	v.SetDefault("require_h1_as_first_heading", d.RequireH1AsFirstHeading)
	v.SetDefault("warn_on_heading_level_skip", d.WarnOnHeadingLevelSkip)
	v.SetDefault("watch_debounce", d.WatchDebounce)
	v.SetDefault("ignored_dirs", d.IgnoredDirs)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("headingmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.headingmap")
	}

	// The config file is optional unless named explicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIKey = ResolveEnvVars(cfg.APIKey)
	cfg.normalize()
	return cfg, nil
}

// normalize replaces non-positive limits with defaults.
func (c *Config) normalize() {
	d := Default()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentFiles <= 0 {
		c.MaxConcurrentFiles = d.MaxConcurrentFiles
	}
	if c.MaxDocumentBytes <= 0 {
		c.MaxDocumentBytes = d.MaxDocumentBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = d.WatchDebounce
	}
}

func (c Config) Validate() error {
	n, err := strconv.Atoi(c.Port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be 1-65535, got %q", c.Port)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validation returns the rule switches passed to each analysis.
func (c Config) Validation() headings.Config {
	return headings.Config{
		RequireH1AsFirstHeading: c.RequireH1AsFirstHeading,
		WarnOnHeadingLevelSkip:  c.WarnOnHeadingLevelSkip,
	}
}

// ParseLogLevel accepts debug, info, warn and error.
func ParseLogLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// Manager holds the current configuration and reloads it when the config
// file changes.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    Config
	callbacks []func(Config)
}

// NewManager loads the initial configuration.
func NewManager(cfgFile string) (*Manager, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, config: cfg}, nil
}

// Get returns the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig enables hot-reloading. Invalid edits are ignored and the
// previous configuration stays active.
func (m *Manager) WatchConfig() {
	m.v.OnConfigChange(func(fsnotify.Event) {
		m.reload()
	})
	m.v.WatchConfig()
}

func (m *Manager) reload() {
	cfg, err := decode(m.v)
	if err != nil || cfg.Validate() != nil {
		return
	}

	m.mu.Lock()
	m.config = cfg
	callbacks := make([]func(Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
