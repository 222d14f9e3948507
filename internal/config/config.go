// Package config holds the netcode server's tunable constants and runtime
// configuration, loaded from an optional TOML file and overridable by
// environment variables and CLI flags, in that precedence order.
package config

import "time"

// Game constants. Must match the client's constants exactly: the client
// only ever trusts the server's applied motion, but its prediction math
// assumes these same values.
const (
	// MaxUnitsPerSecond is the velocity cap enforced server-side.
	MaxUnitsPerSecond = 2.5

	// StateUpdateInterval is the broadcaster's cadence. A tolerable range
	// is roughly 100-500ms; below that the wire grows chatty, above it
	// interpolation starts to look laggy.
	StateUpdateInterval = 333 * time.Millisecond

	// DefaultSimulatedPingMS is the client's default simulated round-trip
	// latency. latency.New takes its starting value from the caller; this
	// constant is the value for a caller to pass there.
	DefaultSimulatedPingMS = 250

	// MoveDiscrepancyThreshold is the minimum reconciliation discrepancy,
	// in world units, that triggers an outbound Move.
	MoveDiscrepancyThreshold = 0.01
)

// ServerConfig holds the server's listen address and feature toggles.
type ServerConfig struct {
	Host       string
	Port       int
	EnableCORS bool
}

// DefaultServerConfig returns the default server configuration: listens on
// 0.0.0.0:7878.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:       "0.0.0.0",
		Port:       7878,
		EnableCORS: true,
	}
}

// FileConfig is the subset of ServerConfig that may be supplied via an
// on-disk TOML file (see LoadFile). Environment variables and CLI flags
// layered on top in cmd/netcode-server take precedence over the file.
type FileConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	EnableCORS bool   `toml:"enable_cors"`
}

// Apply overlays Host and Port from f onto cfg when they are non-zero.
// EnableCORS is always copied, so a file that omits enable_cors (or a
// missing file) sets it to false.
func (f FileConfig) Apply(cfg *ServerConfig) {
	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.Port != 0 {
		cfg.Port = f.Port
	}
	cfg.EnableCORS = f.EnableCORS
}
