package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MonitorConfig holds configuration for monitor mode.
type MonitorConfig struct {
	Service   MonitorServiceConfig   `yaml:"service"`
	Node      MonitorNodeConfig      `yaml:"node"`
	Retriever MonitorRetrieverConfig `yaml:"retriever"`
}

// MonitorServiceConfig contains service-level settings.
type MonitorServiceConfig struct {
	Name                string `yaml:"name"`
	HealthPort          string `yaml:"health_port"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// MonitorNodeConfig points at the ledger node.
type MonitorNodeConfig struct {
	APIURL                string `yaml:"api_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// MonitorRetrieverConfig tunes the transition retriever.
type MonitorRetrieverConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	BaseDelaySeconds int `yaml:"base_delay_seconds"`
}

// LoadMonitorConfig loads monitor configuration from a YAML file. A
// missing path yields the defaults.
func LoadMonitorConfig(path string) (*MonitorConfig, error) {
	var config MonitorConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Set defaults
	if config.Service.Name == "" {
		config.Service.Name = "ledger-da-monitor"
	}
	if config.Service.HealthPort == "" {
		config.Service.HealthPort = "8095"
	}
	if config.Service.PollIntervalSeconds == 0 {
		config.Service.PollIntervalSeconds = 5
	}
	if config.Node.APIURL == "" {
		config.Node.APIURL = defaultAPIURL
	}
	if config.Node.RequestTimeoutSeconds == 0 {
		config.Node.RequestTimeoutSeconds = 30
	}
	if config.Retriever.MaxAttempts == 0 {
		config.Retriever.MaxAttempts = 5
	}
	if config.Retriever.BaseDelaySeconds == 0 {
		config.Retriever.BaseDelaySeconds = 1
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *MonitorConfig) Validate() error {
	if c.Node.APIURL == "" {
		return fmt.Errorf("node.api_url is required")
	}
	if c.Service.PollIntervalSeconds < 1 {
		return fmt.Errorf("service.poll_interval_seconds must be at least 1")
	}
	if c.Retriever.MaxAttempts < 1 {
		return fmt.Errorf("retriever.max_attempts must be at least 1")
	}
	return nil
}

// PollInterval returns the history poll interval as a Duration.
func (c *MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.Service.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the node request timeout as a Duration.
func (c *MonitorConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Node.RequestTimeoutSeconds) * time.Second
}

// RetrieverBaseDelay returns the first backoff delay as a Duration.
func (c *MonitorConfig) RetrieverBaseDelay() time.Duration {
	return time.Duration(c.Retriever.BaseDelaySeconds) * time.Second
}
