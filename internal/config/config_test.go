package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.SignalingURL != "" {
		t.Errorf("SignalingURL = %q, want empty (loopback mode)", cfg.SignalingURL)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Errorf("STUNServer = %q, want %q", cfg.STUNServer, DefaultSTUN)
	}
	if cfg.GuardTimeout != DefaultGuardTimeout {
		t.Errorf("GuardTimeout = %s, want %s", cfg.GuardTimeout, DefaultGuardTimeout)
	}
	if cfg.LoopbackDelay != DefaultLoopbackDelay {
		t.Errorf("LoopbackDelay = %s, want %s", cfg.LoopbackDelay, DefaultLoopbackDelay)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SKILLBRIDGE_LISTEN_ADDR", ":9999")
	t.Setenv("SKILLBRIDGE_SIGNALING_URL", "ws://signal.example:4000/ws")
	t.Setenv("SKILLBRIDGE_STUN_SERVER", "stun:stun.example:3478")
	t.Setenv("SKILLBRIDGE_GUARD_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.SignalingURL != "ws://signal.example:4000/ws" {
		t.Errorf("SignalingURL = %q", cfg.SignalingURL)
	}
	if cfg.STUNServer != "stun:stun.example:3478" {
		t.Errorf("STUNServer = %q", cfg.STUNServer)
	}
	if cfg.GuardTimeout != 5*time.Second {
		t.Errorf("GuardTimeout = %s, want 5s", cfg.GuardTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	t.Setenv("SKILLBRIDGE_LISTEN_ADDR", ":9999")
	t.Setenv("SKILLBRIDGE_SIGNALING_URL", "ws://env.example/ws")
	t.Setenv("SKILLBRIDGE_GUARD_TIMEOUT", "5s")

	cfg, err := Load(Options{
		ListenAddr:   ":4100",
		SignalingURL: "ws://flag.example/ws",
		GuardTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":4100" {
		t.Errorf("ListenAddr = %q, flag should win over env", cfg.ListenAddr)
	}
	if cfg.SignalingURL != "ws://flag.example/ws" {
		t.Errorf("SignalingURL = %q, flag should win over env", cfg.SignalingURL)
	}
	if cfg.GuardTimeout != time.Second {
		t.Errorf("GuardTimeout = %s, flag should win over env", cfg.GuardTimeout)
	}
}

func TestLoad_RejectsBadGuardTimeout(t *testing.T) {
	t.Setenv("SKILLBRIDGE_GUARD_TIMEOUT", "soon")
	if _, err := Load(Options{}); err == nil {
		t.Fatalf("Load accepted an unparsable guard timeout")
	}

	t.Setenv("SKILLBRIDGE_GUARD_TIMEOUT", "-1s")
	if _, err := Load(Options{}); err == nil {
		t.Fatalf("Load accepted a negative guard timeout")
	}
}
