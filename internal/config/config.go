// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string

	// Session
	SessionTimeout       time.Duration
	SessionSweepInterval time.Duration

	// Stake
	StakeTrimInterval time.Duration

	// Load monitor
	LoadSampleInterval time.Duration
	CPUThreshold       float64
	MemThreshold       float64

	// Rate limit
	RateLimitEnabled     bool
	RateLimitPerCustomer int // req/min/customer
	RateLimitBurst       int
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があるため、環境変数が未設定でも起動できる。
// 値が不正な場合（タイムアウトが0以下、しきい値が負など）はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8001")

	// セッション有効期間は分単位の起動パラメータ（デフォルト10分）
	timeoutMinutes := getEnvInt("SESSION_TIMEOUT_MINUTES", 10)
	if timeoutMinutes <= 0 {
		return nil, fmt.Errorf("SESSION_TIMEOUT_MINUTES must be positive, got %d", timeoutMinutes)
	}
	cfg.SessionTimeout = time.Duration(timeoutMinutes) * time.Minute

	cfg.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", 60*time.Second)
	cfg.StakeTrimInterval = getEnvDuration("STAKE_TRIM_INTERVAL", 60*time.Second)
	cfg.LoadSampleInterval = getEnvDuration("LOAD_SAMPLE_INTERVAL", 3*time.Second)

	cfg.CPUThreshold = getEnvFloat("CPU_THRESHOLD", 1.0)
	cfg.MemThreshold = getEnvFloat("MEM_THRESHOLD", 0.9)
	if cfg.CPUThreshold <= 0 || cfg.MemThreshold <= 0 {
		return nil, fmt.Errorf("load thresholds must be positive: cpu=%v mem=%v",
			cfg.CPUThreshold, cfg.MemThreshold)
	}

	cfg.RateLimitEnabled = getEnvBool("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitPerCustomer = getEnvInt("RATE_LIMIT_PER_CUSTOMER", 300)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 300)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
