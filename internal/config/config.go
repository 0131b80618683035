package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Stability StabilityConfig `mapstructure:"stability"`
	Images    ImagesConfig    `mapstructure:"images"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OpenAIConfig holds the prompt refinement provider configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// StabilityConfig holds the image rendering provider configuration
type StabilityConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Engine  string `mapstructure:"engine"`
}

// ImagesConfig holds the generated image storage configuration
type ImagesConfig struct {
	Dir        string `mapstructure:"dir"`
	PublicPath string `mapstructure:"public_path"`
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), overlays API keys from the environment, and validates that
// both provider keys are present so a missing key fails at startup instead of
// on the first turn.
func Load() (*Config, error) {
	v := viper.New()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("stability.base_url", "https://api.stability.ai")
	v.SetDefault("stability.engine", "stable-diffusion-xl-1024-v1-0")
	v.SetDefault("images.dir", "public/images")
	v.SetDefault("images.public_path", "/images")

	if err := v.BindEnv("openai.api_key", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("stability.api_key", "STABILITY_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the required provider credentials are set.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("config: openai.api_key (or OPENAI_API_KEY) is required")
	}
	if c.Stability.APIKey == "" {
		return errors.New("config: stability.api_key (or STABILITY_API_KEY) is required")
	}
	return nil
}
