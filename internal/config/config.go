package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all client configuration
type Config struct {
	Nick           string   `yaml:"nick"`
	Username       string   `yaml:"username"`
	RealName       string   `yaml:"real_name"`
	Server         string   `yaml:"server"`
	Port           int      `yaml:"port"`
	UseTLS         bool     `yaml:"use_tls"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ServerPass     string   `yaml:"server_pass"`
	SASLUser       string   `yaml:"sasl_user"`
	SASLPass       string   `yaml:"sasl_pass"`
	SASLIgnoreFail bool     `yaml:"sasl_ignore_fail"`
	Channels       []string `yaml:"channels"`
	Debug          bool     `yaml:"debug"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if cfg.Port == 0 {
		cfg.Port = 6667
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}
	if cfg.RealName == "" {
		cfg.RealName = cfg.Nick
	}

	return &cfg, nil
}
