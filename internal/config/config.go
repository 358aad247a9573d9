// Package config provides configuration loading and management.
package config

import (
	"time"

	"github.com/peerwatch/peerwatch/internal/constants"
)

// Source kinds.
const (
	SourceSS       = "ss"
	SourceGopsutil = "gopsutil"
)

// Config is the peerwatch configuration file layout.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Classify ClassifyConfig `yaml:"classify"`
	Source   SourceConfig   `yaml:"source"`
	Banlist  BanlistConfig  `yaml:"banlist"`
	Notify   NotifyConfig   `yaml:"notify"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StoreConfig locates the peer store and sets entry lifetime.
type StoreConfig struct {
	Path string        `yaml:"path" env:"PEERWATCH_STORE_PATH"`
	TTL  time.Duration `yaml:"ttl" env:"PEERWATCH_STORE_TTL"`
}

// ClassifyConfig controls direction classification.
type ClassifyConfig struct {
	IncomingPorts []int `yaml:"incoming_ports" env:"PEERWATCH_INCOMING_PORTS"`
}

// SourceConfig selects how sockets are enumerated.
type SourceConfig struct {
	// Kind is "ss" (run Command) or "gopsutil" (read the kernel tables directly).
	Kind    string        `yaml:"kind" env:"PEERWATCH_SOURCE_KIND"`
	Command []string      `yaml:"command" env:"PEERWATCH_SOURCE_COMMAND"`
	Timeout time.Duration `yaml:"timeout" env:"PEERWATCH_SOURCE_TIMEOUT"`
	Retries int           `yaml:"retries" env:"PEERWATCH_SOURCE_RETRIES"`
}

// BanlistConfig controls the fail2ban lookup.
type BanlistConfig struct {
	Enabled bool          `yaml:"enabled" env:"PEERWATCH_BANLIST_ENABLED"`
	Client  string        `yaml:"client" env:"PEERWATCH_BANLIST_CLIENT"`
	Timeout time.Duration `yaml:"timeout" env:"PEERWATCH_BANLIST_TIMEOUT"`
}

// NotifyConfig describes the downstream notifier. An empty Command disables it.
type NotifyConfig struct {
	Command []string      `yaml:"command" env:"PEERWATCH_NOTIFY_COMMAND"`
	Timeout time.Duration `yaml:"timeout" env:"PEERWATCH_NOTIFY_TIMEOUT"`
}

// HistoryConfig controls the DuckDB observation archive.
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled" env:"PEERWATCH_HISTORY_ENABLED"`
	Path      string        `yaml:"path" env:"PEERWATCH_HISTORY_PATH"`
	Retention time.Duration `yaml:"retention" env:"PEERWATCH_HISTORY_RETENTION"`
}

// MetricsConfig controls the node_exporter textfile export.
type MetricsConfig struct {
	// Textfile is the .prom file to write after each run; empty disables it.
	Textfile string `yaml:"textfile" env:"PEERWATCH_METRICS_TEXTFILE"`
}

// LoggingConfig mirrors logging.Config for the file layer.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"PEERWATCH_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PEERWATCH_LOG_PRETTY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path: constants.DefaultStorePath,
			TTL:  constants.DefaultTTL,
		},
		Classify: ClassifyConfig{
			IncomingPorts: append([]int(nil), constants.DefaultIncomingPorts...),
		},
		Source: SourceConfig{
			Kind:    SourceSS,
			Command: []string{"ss", "-laputen"},
			Timeout: constants.DefaultSourceTimeout,
			Retries: 1,
		},
		Banlist: BanlistConfig{
			Enabled: true,
			Client:  "fail2ban-client",
			Timeout: constants.DefaultBanlistTimeout,
		},
		Notify: NotifyConfig{
			Command: []string{},
			Timeout: constants.DefaultNotifyTimeout,
		},
		History: HistoryConfig{
			Path:      constants.DefaultHistoryPath,
			Retention: constants.DefaultHistoryRetention,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
