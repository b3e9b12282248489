package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServerPort != "8001" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8001")
	}

	// Session defaults
	if cfg.SessionTimeout != 10*time.Minute {
		t.Errorf("SessionTimeout = %v, want %v", cfg.SessionTimeout, 10*time.Minute)
	}
	if cfg.SessionSweepInterval != 60*time.Second {
		t.Errorf("SessionSweepInterval = %v, want %v", cfg.SessionSweepInterval, 60*time.Second)
	}

	// Stake defaults
	if cfg.StakeTrimInterval != 60*time.Second {
		t.Errorf("StakeTrimInterval = %v, want %v", cfg.StakeTrimInterval, 60*time.Second)
	}

	// Load monitor defaults
	if cfg.LoadSampleInterval != 3*time.Second {
		t.Errorf("LoadSampleInterval = %v, want %v", cfg.LoadSampleInterval, 3*time.Second)
	}
	if cfg.CPUThreshold != 1.0 {
		t.Errorf("CPUThreshold = %v, want %v", cfg.CPUThreshold, 1.0)
	}
	if cfg.MemThreshold != 0.9 {
		t.Errorf("MemThreshold = %v, want %v", cfg.MemThreshold, 0.9)
	}

	// Rate limit defaults
	if !cfg.RateLimitEnabled {
		t.Error("RateLimitEnabled = false, want true")
	}
	if cfg.RateLimitPerCustomer != 300 {
		t.Errorf("RateLimitPerCustomer = %d, want %d", cfg.RateLimitPerCustomer, 300)
	}
	if cfg.RateLimitBurst != 300 {
		t.Errorf("RateLimitBurst = %d, want %d", cfg.RateLimitBurst, 300)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SESSION_TIMEOUT_MINUTES", "5")
	t.Setenv("SESSION_SWEEP_INTERVAL", "30s")
	t.Setenv("STAKE_TRIM_INTERVAL", "2m")
	t.Setenv("LOAD_SAMPLE_INTERVAL", "5s")
	t.Setenv("CPU_THRESHOLD", "0.8")
	t.Setenv("MEM_THRESHOLD", "0.75")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9000")
	}
	if cfg.SessionTimeout != 5*time.Minute {
		t.Errorf("SessionTimeout = %v, want %v", cfg.SessionTimeout, 5*time.Minute)
	}
	if cfg.SessionSweepInterval != 30*time.Second {
		t.Errorf("SessionSweepInterval = %v, want %v", cfg.SessionSweepInterval, 30*time.Second)
	}
	if cfg.StakeTrimInterval != 2*time.Minute {
		t.Errorf("StakeTrimInterval = %v, want %v", cfg.StakeTrimInterval, 2*time.Minute)
	}
	if cfg.LoadSampleInterval != 5*time.Second {
		t.Errorf("LoadSampleInterval = %v, want %v", cfg.LoadSampleInterval, 5*time.Second)
	}
	if cfg.CPUThreshold != 0.8 {
		t.Errorf("CPUThreshold = %v, want %v", cfg.CPUThreshold, 0.8)
	}
	if cfg.MemThreshold != 0.75 {
		t.Errorf("MemThreshold = %v, want %v", cfg.MemThreshold, 0.75)
	}
	if cfg.RateLimitEnabled {
		t.Error("RateLimitEnabled = true, want false")
	}
}

func TestLoad_InvalidSessionTimeout_ReturnsError(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_MINUTES", "0")

	if _, err := Load(); err == nil {
		t.Error("expected error for SESSION_TIMEOUT_MINUTES=0, got nil")
	}

	t.Setenv("SESSION_TIMEOUT_MINUTES", "-3")

	if _, err := Load(); err == nil {
		t.Error("expected error for SESSION_TIMEOUT_MINUTES=-3, got nil")
	}
}

func TestLoad_InvalidThreshold_ReturnsError(t *testing.T) {
	t.Setenv("CPU_THRESHOLD", "-0.5")

	if _, err := Load(); err == nil {
		t.Error("expected error for negative CPU_THRESHOLD, got nil")
	}
}

func TestLoad_MalformedEnvValue_FallsBackToDefault(t *testing.T) {
	t.Setenv("SESSION_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_CUSTOMER", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.SessionSweepInterval != 60*time.Second {
		t.Errorf("SessionSweepInterval = %v, want default %v", cfg.SessionSweepInterval, 60*time.Second)
	}
	if cfg.RateLimitPerCustomer != 300 {
		t.Errorf("RateLimitPerCustomer = %d, want default %d", cfg.RateLimitPerCustomer, 300)
	}
}
