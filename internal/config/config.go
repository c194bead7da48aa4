package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/xpic/internal/logger"
)

// EnvPrefix is prepended to upper-cased keys for environment overrides,
// e.g. XPIC_OUTPUT_DIR.
const EnvPrefix = "XPIC"

// Config represents the application configuration
type Config struct {
	Display         string `json:"display" yaml:"display" mapstructure:"display"`
	OutputDir       string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	FilenamePrefix  string `json:"filename_prefix" yaml:"filename_prefix" mapstructure:"filename_prefix"`
	Extension       string `json:"extension" yaml:"extension" mapstructure:"extension"`
	TimestampLayout string `json:"timestamp_layout" yaml:"timestamp_layout" mapstructure:"timestamp_layout"`
	PNGCompression  string `json:"png_compression" yaml:"png_compression" mapstructure:"png_compression"`
	Composite       bool   `json:"composite" yaml:"composite" mapstructure:"composite"`
	LogLevel        string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty       bool   `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
}

// Defaults returns the built-in configuration used when no file exists.
func Defaults() Config {
	return Config{
		FilenamePrefix:  "xpic",
		Extension:       ".png",
		TimestampLayout: "20060102150405",
		PNGCompression:  "default",
		Composite:       true,
		LogLevel:        "warn",
		LogPretty:       true,
	}
}

var compression = []string{"default", "none", "speed", "best"}

func logLevels() []string {
	levels := make([]string, 0, 4)
	for _, l := range logger.Levels() {
		levels = append(levels, string(l))
	}
	return levels
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/xpic/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "xpic", "config.yaml"), nil
}

// NewManager creates a new configuration manager. A missing file is not an
// error; the defaults apply until Save writes one.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	v := viper.New()
	d := Defaults()
	v.SetDefault("display", d.Display)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("filename_prefix", d.FilenamePrefix)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("timestamp_layout", d.TimestampLayout)
	v.SetDefault("png_compression", d.PNGCompression)
	v.SetDefault("composite", d.Composite)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_pretty", d.LogPretty)

	v.SetConfigFile(actualConfigPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	m := &Manager{
		configPath: actualConfigPath,
		v:          v,
	}

	log := logger.WithComponent("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", actualConfigPath, err)
		}
		log.Debug().Str("path", actualConfigPath).Msg("Config file not found, using defaults")
		return m, nil
	}

	if _, err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", actualConfigPath, err)
	}
	log.Debug().Str("path", actualConfigPath).Msg("Config loaded")
	return m, nil
}

func (m *Manager) load() (Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Get returns the effective configuration: file, environment and any flags
// bound through GetViper layered over the defaults.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, err := m.load()
	if err != nil {
		logger.WithComponent("config").Warn().Err(err).Msg("Failed to decode config, using defaults")
		cfg = Defaults()
	}
	return &cfg
}

// GetViper exposes the underlying viper instance for flag binding.
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// Keys returns every recognised configuration key, sorted.
func Keys() []string {
	keys := []string{
		"display", "output_dir", "filename_prefix", "extension",
		"timestamp_layout", "png_compression", "composite",
		"log_level", "log_pretty",
	}
	sort.Strings(keys)
	return keys
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// Lookup returns the effective value of key.
func (m *Manager) Lookup(key string) (interface{}, error) {
	if !knownKey(key) {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key), nil
}

// Set validates and stores a value given as text. It does not persist;
// call Save afterwards.
func (m *Manager) Set(key, value string) error {
	if !knownKey(key) {
		return fmt.Errorf("configuration key not found: %s (known: %s)", key, strings.Join(Keys(), ", "))
	}

	var typed interface{} = value
	switch key {
	case "composite", "log_pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		typed = b
	case "log_level":
		if !oneOf(value, logLevels()) {
			return fmt.Errorf("invalid log level: %s (use: %s)", value, strings.Join(logLevels(), ", "))
		}
	case "png_compression":
		if !oneOf(value, compression) {
			return fmt.Errorf("invalid compression: %s (use: %s)", value, strings.Join(compression, ", "))
		}
	case "timestamp_layout", "filename_prefix":
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}

	m.mu.Lock()
	m.v.Set(key, typed)
	m.mu.Unlock()
	return nil
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()
	log := logger.WithComponent("config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().Err(err).Str("config_dir", configDir).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return fmt.Errorf("failed to write config: %w", err)
	}

	log.Info().Str("path", m.configPath).Msg("Config saved")
	return nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
