package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".wcsync"
	DefaultConfigFile = "config.yaml"
)

// Config represents the application configuration
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	SFTP   SFTPConfig   `yaml:"sftp"`
	Upload UploadConfig `yaml:"upload"`
	Retry  RetryConfig  `yaml:"retry,omitempty"`
}

// StoreConfig holds WooCommerce API settings
type StoreConfig struct {
	URL               string  `yaml:"url"`
	ConsumerKeyEnv    string  `yaml:"consumer_key_env"`    // Environment variable for consumer key
	ConsumerSecretEnv string  `yaml:"consumer_secret_env"` // Environment variable for consumer secret
	TimeoutSec        int     `yaml:"timeout_sec,omitempty"`
	RequestsPerSec    float64 `yaml:"requests_per_sec,omitempty"`
}

// SFTPConfig holds image host settings
type SFTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"` // Environment variable for password
	BasePath    string `yaml:"base_path"`    // Remote upload root, e.g. /var/www/shop.example.com/images
	WebDomain   string `yaml:"web_domain,omitempty"`
	Checksum    bool   `yaml:"checksum,omitempty"` // Compare SHA-256 instead of size only
}

// UploadConfig holds sync run settings
type UploadConfig struct {
	UpdateMode   string `yaml:"update_mode"` // all, images, description, missing
	SkipExisting bool   `yaml:"skip_existing"`
	UseBatch     bool   `yaml:"use_batch"`
	BatchSize    int    `yaml:"batch_size"`
	MaxCount     int    `yaml:"max_count,omitempty"` // 0 means no limit
	MaxImageEdge int    `yaml:"max_image_edge,omitempty"`
	DryRun       bool   `yaml:"dry_run,omitempty"`
}

// RetryConfig holds transient failure handling
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts,omitempty"`
	BaseDelayMs int `yaml:"base_delay_ms,omitempty"`
}

// ConfigError reports an invalid or incomplete configuration before
// any network activity happens.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// UpdateModes lists the accepted update_mode values.
var UpdateModes = []string{"all", "images", "description", "missing"}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			ConsumerKeyEnv:    "WC_CONSUMER_KEY",
			ConsumerSecretEnv: "WC_CONSUMER_SECRET",
			TimeoutSec:        30,
			RequestsPerSec:    2,
		},
		SFTP: SFTPConfig{
			Port:        22,
			PasswordEnv: "SFTP_PASSWORD",
		},
		Upload: UploadConfig{
			UpdateMode:   "all",
			UseBatch:     true,
			BatchSize:    100,
			MaxImageEdge: 1600,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 1000,
		},
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads the configuration from the config file
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom reads the configuration from a specific path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&config)

	return &config, nil
}

// Save writes the configuration to the config file
func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return SaveTo(config, configPath)
}

// SaveTo writes the configuration to a specific path
func SaveTo(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Init creates a new config file with defaults
func Init() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	return Save(DefaultConfig())
}

// Exists checks if the config file exists
func Exists() bool {
	configPath, err := GetConfigPath()
	if err != nil {
		return false
	}

	_, err = os.Stat(configPath)
	return err == nil
}

// Validate checks that every field a sync run needs is present and
// well formed. It never reads the network.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return &ConfigError{Field: "store.url", Reason: "required"}
	}
	if !strings.HasPrefix(c.Store.URL, "http://") && !strings.HasPrefix(c.Store.URL, "https://") {
		return &ConfigError{Field: "store.url", Reason: "must start with http:// or https://"}
	}
	if c.Store.ConsumerKeyEnv == "" {
		return &ConfigError{Field: "store.consumer_key_env", Reason: "required"}
	}
	if c.Store.ConsumerSecretEnv == "" {
		return &ConfigError{Field: "store.consumer_secret_env", Reason: "required"}
	}

	if c.SFTP.Host == "" {
		return &ConfigError{Field: "sftp.host", Reason: "required"}
	}
	if c.SFTP.Port <= 0 || c.SFTP.Port > 65535 {
		return &ConfigError{Field: "sftp.port", Reason: "must be between 1 and 65535"}
	}
	if c.SFTP.User == "" {
		return &ConfigError{Field: "sftp.user", Reason: "required"}
	}
	if c.SFTP.BasePath == "" {
		return &ConfigError{Field: "sftp.base_path", Reason: "required"}
	}
	if !strings.HasPrefix(c.SFTP.BasePath, "/") {
		return &ConfigError{Field: "sftp.base_path", Reason: "must be absolute"}
	}

	valid := false
	for _, m := range UpdateModes {
		if c.Upload.UpdateMode == m {
			valid = true
			break
		}
	}
	if !valid {
		return &ConfigError{Field: "upload.update_mode", Reason: fmt.Sprintf("must be one of %s", strings.Join(UpdateModes, ", "))}
	}
	if c.Upload.BatchSize <= 0 {
		return &ConfigError{Field: "upload.batch_size", Reason: "must be positive"}
	}
	if c.Upload.MaxCount < 0 {
		return &ConfigError{Field: "upload.max_count", Reason: "must not be negative"}
	}

	return nil
}

// Secret resolves an environment variable indirection, failing when
// the variable is unset or empty.
func Secret(envName, field string) (string, error) {
	if envName == "" {
		return "", &ConfigError{Field: field, Reason: "no environment variable configured"}
	}
	value := os.Getenv(envName)
	if value == "" {
		return "", &ConfigError{Field: field, Reason: fmt.Sprintf("environment variable %s is not set", envName)}
	}
	return value, nil
}

// applyDefaults fills in missing values with defaults
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Store.TimeoutSec <= 0 {
		config.Store.TimeoutSec = defaults.Store.TimeoutSec
	}
	if config.Store.RequestsPerSec <= 0 {
		config.Store.RequestsPerSec = defaults.Store.RequestsPerSec
	}
	if config.Store.ConsumerKeyEnv == "" {
		config.Store.ConsumerKeyEnv = defaults.Store.ConsumerKeyEnv
	}
	if config.Store.ConsumerSecretEnv == "" {
		config.Store.ConsumerSecretEnv = defaults.Store.ConsumerSecretEnv
	}

	if config.SFTP.Port == 0 {
		config.SFTP.Port = defaults.SFTP.Port
	}
	if config.SFTP.PasswordEnv == "" {
		config.SFTP.PasswordEnv = defaults.SFTP.PasswordEnv
	}

	if config.Upload.UpdateMode == "" {
		config.Upload.UpdateMode = defaults.Upload.UpdateMode
	}
	if config.Upload.BatchSize == 0 {
		config.Upload.BatchSize = defaults.Upload.BatchSize
	}
	if config.Upload.MaxImageEdge <= 0 {
		config.Upload.MaxImageEdge = defaults.Upload.MaxImageEdge
	}

	if config.Retry.MaxAttempts <= 0 {
		config.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if config.Retry.BaseDelayMs <= 0 {
		config.Retry.BaseDelayMs = defaults.Retry.BaseDelayMs
	}
}

// Set updates a specific config value
func Set(key, value string) error {
	config, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "store.url":
		config.Store.URL = value
	case "store.consumer_key_env":
		config.Store.ConsumerKeyEnv = value
	case "store.consumer_secret_env":
		config.Store.ConsumerSecretEnv = value
	case "sftp.host":
		config.SFTP.Host = value
	case "sftp.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port: %s", value)
		}
		config.SFTP.Port = port
	case "sftp.user":
		config.SFTP.User = value
	case "sftp.password_env":
		config.SFTP.PasswordEnv = value
	case "sftp.base_path":
		config.SFTP.BasePath = value
	case "sftp.web_domain":
		config.SFTP.WebDomain = value
	case "upload.update_mode":
		config.Upload.UpdateMode = value
	case "upload.skip_existing":
		config.Upload.SkipExisting = value == "true"
	case "upload.use_batch":
		config.Upload.UseBatch = value == "true"
	case "upload.batch_size":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid batch size: %s", value)
		}
		config.Upload.BatchSize = size
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(config)
}

// Get retrieves a specific config value
func Get(key string) (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}

	switch key {
	case "store.url":
		return config.Store.URL, nil
	case "store.consumer_key_env":
		return config.Store.ConsumerKeyEnv, nil
	case "store.consumer_secret_env":
		return config.Store.ConsumerSecretEnv, nil
	case "sftp.host":
		return config.SFTP.Host, nil
	case "sftp.port":
		return strconv.Itoa(config.SFTP.Port), nil
	case "sftp.user":
		return config.SFTP.User, nil
	case "sftp.password_env":
		return config.SFTP.PasswordEnv, nil
	case "sftp.base_path":
		return config.SFTP.BasePath, nil
	case "sftp.web_domain":
		return config.SFTP.WebDomain, nil
	case "upload.update_mode":
		return config.Upload.UpdateMode, nil
	case "upload.skip_existing":
		return strconv.FormatBool(config.Upload.SkipExisting), nil
	case "upload.use_batch":
		return strconv.FormatBool(config.Upload.UseBatch), nil
	case "upload.batch_size":
		return strconv.Itoa(config.Upload.BatchSize), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}
