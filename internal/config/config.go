// Package config provides configuration types and loading for lente.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Bravilo, Server, Events, Notify.
type Config struct {
	Paths   PathsConfig   `json:"paths"`
	Bravilo BraviloConfig `json:"bravilo"`
	Server  ServerConfig  `json:"server"`
	Events  EventsConfig  `json:"events"`
	Notify  NotifyConfig  `json:"notify"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Bravilo – remote agent directory
// ---------------------------------------------------------------------------

// BraviloConfig contains settings for the Bravilo API connection.
type BraviloConfig struct {
	APIKey  string        `json:"apiKey" envconfig:"API_KEY"`
	APIBase string        `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Timeout time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// ---------------------------------------------------------------------------
// Server – admin HTTP API
// ---------------------------------------------------------------------------

// ServerConfig contains admin API server settings.
type ServerConfig struct {
	Host      string `json:"host" envconfig:"HOST"`
	Port      int    `json:"port" envconfig:"PORT"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// ---------------------------------------------------------------------------
// Events – audit event stream
// ---------------------------------------------------------------------------

// EventsConfig contains settings for the Kafka audit stream.
type EventsConfig struct {
	Enabled      bool   `json:"enabled" envconfig:"ENABLED"`
	KafkaBrokers string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	Topic        string `json:"topic" envconfig:"TOPIC"`
}

// NotifyConfig contains settings for admin Slack notifications.
type NotifyConfig struct {
	SlackEnabled bool   `json:"slackEnabled" envconfig:"SLACK_ENABLED"`
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.lente",
		},
		Bravilo: BraviloConfig{
			APIBase: "https://app.braviloai.com/api",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host: "127.0.0.1", // Secure default
			Port: 18890,
		},
		Events: EventsConfig{
			Enabled:      false,
			KafkaBrokers: "localhost:9092",
			Topic:        "lente.audit",
		},
		Notify: NotifyConfig{
			SlackEnabled: false,
			SlackChannel: "#lente-admin",
		},
	}
}
