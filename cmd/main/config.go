package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CTAG07/Dissociated/pkg/templating"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the configuration for the HTTP server and storage.
type ServerConfig struct {
	ApiAddr           string `json:"api_addr" yaml:"api_addr"`
	LogLevel          string `json:"log_level" yaml:"log_level"`
	DataDir           string `json:"data_dir" yaml:"data_dir"`
	DatabasePath      string `json:"database_path" yaml:"database_path"`
	DashboardTmplPath string `json:"dashboard_tmpl_path" yaml:"dashboard_tmpl_path"`
	MetricsEnabled    bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
}

// GenerationConfig holds the limits applied to generation and manual
// sessions served over the API.
type GenerationConfig struct {
	DefaultWordLimit  int   `json:"default_word_limit" yaml:"default_word_limit"`
	MaxWordLimit      int   `json:"max_word_limit" yaml:"max_word_limit"`
	MaxTextBytes      int64 `json:"max_text_bytes" yaml:"max_text_bytes"`
	SessionTTLMinutes int   `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	MaxSessions       int   `json:"max_sessions" yaml:"max_sessions"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server     *ServerConfig              `json:"server_config" yaml:"server_config"`
	Generation *GenerationConfig          `json:"generation_config" yaml:"generation_config"`
	Templates  *templating.TemplateConfig `json:"template_config" yaml:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:           ":7290",
		LogLevel:          "info",
		DataDir:           "./data",
		DatabasePath:      "./data/dissociated.db",
		DashboardTmplPath: "./data/templates/",
		MetricsEnabled:    true,
	}
}

// DefaultGenerationConfig creates a generation configuration with default values.
func DefaultGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		DefaultWordLimit:  100,
		MaxWordLimit:      5000,
		MaxTextBytes:      8 << 20, // 8MB
		SessionTTLMinutes: 30,
		MaxSessions:       1000,
	}
}

// DefaultConfig returns a Config with every section set to its defaults.
func DefaultConfig() *Config {
	tmpl := templating.DefaultConfig()
	return &Config{
		Server:     DefaultServerConfig(),
		Generation: DefaultGenerationConfig(),
		Templates:  &tmpl,
	}
}

// Validate reports the first setting that would make the server misbehave.
func (c *Config) Validate() error {
	if c.Server == nil || c.Generation == nil || c.Templates == nil {
		return errors.New("server_config, generation_config and template_config are all required")
	}
	g := c.Generation
	switch {
	case g.DefaultWordLimit < 1:
		return fmt.Errorf("default_word_limit must be positive, got %d", g.DefaultWordLimit)
	case g.MaxWordLimit < g.DefaultWordLimit:
		return fmt.Errorf("max_word_limit (%d) must not be below default_word_limit (%d)", g.MaxWordLimit, g.DefaultWordLimit)
	case g.MaxTextBytes < 1:
		return fmt.Errorf("max_text_bytes must be positive, got %d", g.MaxTextBytes)
	case g.SessionTTLMinutes < 1:
		return fmt.Errorf("session_ttl_minutes must be positive, got %d", g.SessionTTLMinutes)
	case g.MaxSessions < 1:
		return fmt.Errorf("max_sessions must be positive, got %d", g.MaxSessions)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

func unmarshalConfig(path string, data []byte, config *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, config)
	}
	return json.Unmarshal(data, config)
}

// LoadConfig reads the configuration from a JSON or YAML file, chosen by the
// file extension. If the file doesn't exist, it creates one with default
// values. Sections missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = unmarshalConfig(path, file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration and keeps
// the template manager in sync with it.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.TemplateManager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm != nil {
		tm.SetConfig(cm.config.Templates)
	}
}

// SetLogger sets the logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		cm.logger = logger
	}
}

// Get returns a copy of the current configuration. The sections are copied
// too, so callers may not modify the live config through it.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	server, generation, templates := *cm.config.Server, *cm.config.Generation, *cm.config.Templates
	return Config{Server: &server, Generation: &generation, Templates: &templates}
}

// Generation returns a copy of the generation section.
func (cm *ConfigManager) Generation() GenerationConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config.Generation
}

// Update validates and applies a new configuration and saves it to disk.
// Server section changes only take effect after a restart.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil {
		oldTmplConfig := cm.config.Templates

		cm.tm.SetConfig(newConfig.Templates)
		if err := cm.tm.Refresh(); err != nil {
			cm.tm.SetConfig(oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	*cm.config = newConfig

	data, err := marshalConfig(cm.configPath, cm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}
