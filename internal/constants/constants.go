// Package constants defines shared configuration constants.
package constants

import "time"

var (
	ConfigFile = "config.yaml"

	// DefaultConfigPath is read when neither --config nor PEERWATCH_CONFIG is set.
	DefaultConfigPath = "/etc/peerwatch/" + ConfigFile

	DefaultStateDir = "/var/lib/peerwatch"

	DefaultStorePath = DefaultStateDir + "/peers.json"

	DefaultHistoryPath = DefaultStateDir + "/history.duckdb"

	// DefaultIncomingPorts are the local service ports that mark a
	// connection as inbound.
	DefaultIncomingPorts = []int{22, 80, 443}
)

// Timeouts and lifetimes.
const (
	// DefaultTTL is how long an entry survives without being observed again.
	DefaultTTL = 48 * time.Hour

	// DefaultSourceTimeout bounds one socket-table enumeration.
	DefaultSourceTimeout = 30 * time.Second

	// DefaultBanlistTimeout bounds each fail2ban-client invocation.
	DefaultBanlistTimeout = 10 * time.Second

	// DefaultNotifyTimeout bounds each notifier invocation.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultHistoryRetention is how long raw observations stay in the archive.
	DefaultHistoryRetention = 30 * 24 * time.Hour
)
