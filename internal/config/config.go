package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:8180"
	DefaultDBFileName     = ".cumulus.db"
	DefaultStorageDirName = ".cumulus-blobs"
	DefaultLogLevel       = "info"

	DefaultStorageLimitBytes   int64 = 1 << 40 // 1 TiB per account
	DefaultMaxUploadBytes      int64 = 1024 * 1024 * 1024
	DefaultMultipartMaxMemory  int64 = 8 * 1024 * 1024
	DefaultSessionTTLHours           = 24
	DefaultLoginMaxFailures          = 5
	DefaultLoginWindowSeconds        = 300
	DefaultLoginBlockedSeconds       = 300

	configDirEnvKey   = "CUMULUS_CONFIG_DIR"
	apiURLEnvKey      = "CUMULUS_API_URL"
	dbPathEnvKey      = "CUMULUS_DB"
	storageRootEnvKey = "CUMULUS_STORAGE_ROOT"

	configFileName = ".cumulus.toml"
)

// StorageConfig defines quota and blob placement settings.
type StorageConfig struct {
	Root              string `toml:"root"`
	DefaultLimitBytes int64  `toml:"default_limit_bytes"`
}

// UploadConfig defines request body limits for uploads.
type UploadConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// AuthConfig defines session and login throttle settings.
type AuthConfig struct {
	SessionTTLHours     int `toml:"session_ttl_hours"`
	LoginMaxFailures    int `toml:"login_max_failures"`
	LoginWindowSeconds  int `toml:"login_window_seconds"`
	LoginBlockedSeconds int `toml:"login_blocked_seconds"`
}

// Config defines runtime configuration for cumulus.
type Config struct {
	APIURL   string        `toml:"api_url"`
	DBPath   string        `toml:"db_path"`
	LogLevel string        `toml:"log_level"`
	Storage  StorageConfig `toml:"storage"`
	Uploads  UploadConfig  `toml:"uploads"`
	Auth     AuthConfig    `toml:"auth"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: "",
		Storage: StorageConfig{
			Root:              "",
			DefaultLimitBytes: DefaultStorageLimitBytes,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
		Auth: AuthConfig{
			SessionTTLHours:     DefaultSessionTTLHours,
			LoginMaxFailures:    DefaultLoginMaxFailures,
			LoginWindowSeconds:  DefaultLoginWindowSeconds,
			LoginBlockedSeconds: DefaultLoginBlockedSeconds,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"storage.root",
	"storage.default_limit_bytes",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"auth.session_ttl_hours",
	"auth.login_max_failures",
	"auth.login_window_seconds",
	"auth.login_blocked_seconds",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.root":
		return c.Storage.Root, nil
	case "storage.default_limit_bytes":
		return strconv.FormatInt(c.Storage.DefaultLimitBytes, 10), nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "auth.session_ttl_hours":
		return strconv.Itoa(c.Auth.SessionTTLHours), nil
	case "auth.login_max_failures":
		return strconv.Itoa(c.Auth.LoginMaxFailures), nil
	case "auth.login_window_seconds":
		return strconv.Itoa(c.Auth.LoginWindowSeconds), nil
	case "auth.login_blocked_seconds":
		return strconv.Itoa(c.Auth.LoginBlockedSeconds), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DBPath = filepath.Join(home, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if root := os.Getenv(storageRootEnvKey); root != "" {
		cfg.Storage.Root = root
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

// BlobRoot resolves the blob storage root, defaulting next to the database.
func (c *Config) BlobRoot() string {
	if strings.TrimSpace(c.Storage.Root) != "" {
		return c.Storage.Root
	}
	return filepath.Join(filepath.Dir(c.DBPath), DefaultStorageDirName)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.default_limit_bytes", "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "auth.session_ttl_hours", "auth.login_max_failures", "auth.login_window_seconds", "auth.login_blocked_seconds":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if c.Storage.DefaultLimitBytes <= 0 {
		c.Storage.DefaultLimitBytes = DefaultStorageLimitBytes
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = DefaultSessionTTLHours
	}
	if c.Auth.LoginMaxFailures <= 0 {
		c.Auth.LoginMaxFailures = DefaultLoginMaxFailures
	}
	if c.Auth.LoginWindowSeconds <= 0 {
		c.Auth.LoginWindowSeconds = DefaultLoginWindowSeconds
	}
	if c.Auth.LoginBlockedSeconds <= 0 {
		c.Auth.LoginBlockedSeconds = DefaultLoginBlockedSeconds
	}
}
