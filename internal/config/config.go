package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Gateway struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"gateway"`
	Generator struct {
		Enabled         bool   `yaml:"enabled"`
		APIKey          string `yaml:"api_key"`
		ModelName       string `yaml:"model_name"`
		MaxOutputTokens int32  `yaml:"max_output_tokens"`
		TimeoutSeconds  int64  `yaml:"timeout_seconds"`
	} `yaml:"generator"`
	Queue struct {
		Workers               int   `yaml:"workers"`
		MaxRetries            int   `yaml:"max_retries"`
		InitialBackoffSeconds int64 `yaml:"initial_backoff_seconds"`
	} `yaml:"queue"`
	Scheduling struct {
		DefaultStartHour         int `yaml:"default_start_hour"`
		AcceleratedWindowMinutes int `yaml:"accelerated_window_minutes"`
	} `yaml:"scheduling"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 30
	}
	if c.Generator.ModelName == "" {
		c.Generator.ModelName = "gemini-2.0-flash-exp"
	}
	if c.Generator.MaxOutputTokens == 0 {
		c.Generator.MaxOutputTokens = 220
	}
	if c.Generator.TimeoutSeconds == 0 {
		c.Generator.TimeoutSeconds = 20
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 8
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = 3
	}
	if c.Queue.InitialBackoffSeconds == 0 {
		c.Queue.InitialBackoffSeconds = 30
	}
	if c.Scheduling.DefaultStartHour == 0 {
		c.Scheduling.DefaultStartHour = 9
	}
	if c.Scheduling.AcceleratedWindowMinutes == 0 {
		c.Scheduling.AcceleratedWindowMinutes = 120
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}
