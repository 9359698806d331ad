// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Window configuration
	Window WindowConfig `mapstructure:"window"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// WindowConfig describes the single window the demo creates
type WindowConfig struct {
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	Title    string `mapstructure:"title"`
	AppID    string `mapstructure:"app_id"`
	Gradient string `mapstructure:"gradient"` // "corner" or "hsv"
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Window: WindowConfig{
			Width:    320,
			Height:   240,
			Title:    "waygrad",
			AppID:    "dev.bnema.waygrad",
			Gradient: "corner",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waygrad")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "waygrad"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	// Set defaults - individual fields so file values merge properly
	viper.SetDefault("window.width", DefaultConfig.Window.Width)
	viper.SetDefault("window.height", DefaultConfig.Window.Height)
	viper.SetDefault("window.title", DefaultConfig.Window.Title)
	viper.SetDefault("window.app_id", DefaultConfig.Window.AppID)
	viper.SetDefault("window.gradient", DefaultConfig.Window.Gradient)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

// Validate rejects geometry the compositor could not honor.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window dimensions must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	// The wire format caps a buffer's byte size at int32.
	if int64(c.Window.Width)*int64(c.Window.Height)*4 > 1<<31-1 {
		return fmt.Errorf("window %dx%d exceeds the maximum shared-memory buffer size", c.Window.Width, c.Window.Height)
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return a copy of the defaults if not initialized
		c := DefaultConfig
		return &c
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "waygrad.toml"
	}
	return filepath.Join(home, ".config", "waygrad", "waygrad.toml")
}
