package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values.
const (
	DefaultListenAddr = ":4000"
	DefaultSTUN       = "stun:stun.l.google.com:19302"

	// DefaultGuardTimeout bounds how long a call may sit in "connecting"
	// after negotiation starts before the UI is forced to connected.
	DefaultGuardTimeout = 2500 * time.Millisecond

	// DefaultLoopbackDelay is the simulated connect delay in demo mode.
	DefaultLoopbackDelay = 700 * time.Millisecond
)

// Environment variable names.
const (
	envListenAddr   = "SKILLBRIDGE_LISTEN_ADDR"
	envSignalingURL = "SKILLBRIDGE_SIGNALING_URL"
	envSTUNServer   = "SKILLBRIDGE_STUN_SERVER"
	envGuardTimeout = "SKILLBRIDGE_GUARD_TIMEOUT"
	envLogLevel     = "LOG_LEVEL"
)

// Config holds the runtime configuration shared by the signaling server and
// the call client.
type Config struct {
	// ListenAddr is the signaling server's bind address.
	ListenAddr string

	// SignalingURL is the websocket endpoint the call client dials. Empty
	// means no signaling server is configured and calls run in loopback
	// (demo) mode.
	SignalingURL string

	// STUNServer is the ICE server handed to the peer connection.
	STUNServer string

	// GuardTimeout bounds the "connecting" state.
	GuardTimeout time.Duration

	// LoopbackDelay is the simulated connect delay in loopback mode.
	LoopbackDelay time.Duration

	// LogLevel is a zerolog level name ("debug", "info", ...).
	LogLevel string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ListenAddr   string
	SignalingURL string
	STUNServer   string
	GuardTimeout time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		ListenAddr:    pick(opts.ListenAddr, envListenAddr, DefaultListenAddr),
		SignalingURL:  pick(opts.SignalingURL, envSignalingURL, ""),
		STUNServer:    pick(opts.STUNServer, envSTUNServer, DefaultSTUN),
		GuardTimeout:  DefaultGuardTimeout,
		LoopbackDelay: DefaultLoopbackDelay,
		LogLevel:      pick("", envLogLevel, "info"),
	}

	if opts.GuardTimeout > 0 {
		cfg.GuardTimeout = opts.GuardTimeout
	} else if raw := os.Getenv(envGuardTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envGuardTimeout, err)
		}
		cfg.GuardTimeout = d
	}
	if cfg.GuardTimeout <= 0 {
		return nil, fmt.Errorf("guard timeout must be positive, got %s", cfg.GuardTimeout)
	}

	return cfg, nil
}

// pick returns the first non-empty of: flag value, environment value,
// default.
func pick(flagValue, envName, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}
