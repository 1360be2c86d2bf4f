package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the apk commands.
type Config struct {
	// SDKRoot is the Android SDK root containing build-tools.
	SDKRoot string `mapstructure:"sdk_root" yaml:"sdk_root,omitempty"`
	// Cargo is the cargo executable used for workspace metadata and installing cross.
	Cargo string `mapstructure:"cargo" yaml:"cargo"`
	// Cross is the cross-compiling cargo wrapper.
	Cross string `mapstructure:"cross" yaml:"cross"`
	// ADB is the Android debug bridge executable.
	ADB string `mapstructure:"adb" yaml:"adb"`
	// RepositoryURL is the base URL of the Android SDK package repository.
	RepositoryURL string `mapstructure:"repository_url" yaml:"repository_url"`
	// DownloadTimeout bounds a single SDK package download.
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	// LogLevel is the default log level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

const (
	// DefaultConfigName is the settings file name without extension.
	DefaultConfigName = "ori"

	// DefaultConfigFilename is the settings file name looked up in the search path.
	DefaultConfigFilename = DefaultConfigName + ".yaml"

	// DefaultRepositoryURL is Google's SDK repository.
	DefaultRepositoryURL = "https://dl.google.com/android/repository/"

	// DefaultDownloadTimeout is the default duration for a single SDK download.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// envPrefix prefixes every environment override (ORI_CROSS, ORI_ADB, ...).
	envPrefix = "ORI"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidRepositoryURL is returned when the repository URL is not absolute http(s).
	errInvalidRepositoryURL = errors.New("repository url must be an absolute http(s) url")
)

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Cargo:           "cargo",
		Cross:           "cross",
		ADB:             "adb",
		RepositoryURL:   DefaultRepositoryURL,
		DownloadTimeout: DefaultDownloadTimeout,
		LogLevel:        DefaultLogLevel,
	}
}

// DefaultPath returns the settings file location inside the XDG config directory,
// creating the parent directory when needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(DefaultConfigName, DefaultConfigFilename))
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}

	return path, nil
}

// Load reads settings from path, or from the search path when path is empty.
// A missing file in the search path is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("cargo", defaults.Cargo)
	v.SetDefault("cross", defaults.Cross)
	v.SetDefault("adb", defaults.ADB)
	v.SetDefault("repository_url", defaults.RepositoryURL)
	v.SetDefault("download_timeout", defaults.DownloadTimeout)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("sdk_root", "")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// The SDK root also honours the variables the Android tooling itself reads.
	if err := v.BindEnv("sdk_root", envPrefix+"_SDK_ROOT", "ANDROID_HOME", "ANDROID_SDK_ROOT"); err != nil {
		return nil, fmt.Errorf("bind environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path in YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for empty fields and checks the repository URL.
// The URL is normalized to end with a slash so package paths can be appended.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if cfg.Cargo == "" {
		cfg.Cargo = defaults.Cargo
	}

	if cfg.Cross == "" {
		cfg.Cross = defaults.Cross
	}

	if cfg.ADB == "" {
		cfg.ADB = defaults.ADB
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaults.DownloadTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	if cfg.RepositoryURL == "" {
		cfg.RepositoryURL = defaults.RepositoryURL
	}

	parsed, err := url.ParseRequestURI(cfg.RepositoryURL)
	if err != nil {
		return fmt.Errorf("invalid repository url: %w", err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%q: %w", cfg.RepositoryURL, errInvalidRepositoryURL)
	}

	if !strings.HasSuffix(cfg.RepositoryURL, "/") {
		cfg.RepositoryURL += "/"
	}

	return nil
}
