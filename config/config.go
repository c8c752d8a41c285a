package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Session configuration
	Namespace  string // Channel namespace; foreign traffic is ignored
	ContractID string // Machine contract identity

	// Chain configuration
	ChainRPCURL string // Base URL of the chain RPC gateway
	WalletKey   string // Hex-encoded session wallet key

	// Database configuration (optional; spin history is skipped without it)
	DatabaseURL  string
	DatabaseName string

	// Server configuration
	Port int

	// Machine limits
	MinStake int64
	MaxStake int64
	RTP      float64

	// Queue configuration
	QueueLimit       int           // Reconciler prune threshold
	PruneDelay       time.Duration // Grace period before fading entries are removed
	ExpiryTimeout    time.Duration // Client-side bound before an entry is shown Expired
	SnapshotInterval time.Duration // Reconciler snapshot poll cadence
	AutoSpinInterval time.Duration // Auto-continuation tick cadence

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		Namespace:  getEnvWithDefault("SESSION_NAMESPACE", "slotbridge"),
		ContractID: os.Getenv("CONTRACT_ID"),

		ChainRPCURL: os.Getenv("CHAIN_RPC_URL"),
		WalletKey:   os.Getenv("WALLET_KEY"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		Port: 8080,

		MinStake: 5,
		MaxStake: 10_000,
		RTP:      0.96,

		QueueLimit:       10,
		PruneDelay:       5 * time.Second,
		ExpiryTimeout:    60 * time.Second,
		SnapshotInterval: 15 * time.Second,
		AutoSpinInterval: 3 * time.Second,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			config.Port = parsed
		}
	}
	if stake := os.Getenv("MIN_STAKE"); stake != "" {
		if parsed, err := strconv.ParseInt(stake, 10, 64); err == nil {
			config.MinStake = parsed
		}
	}
	if stake := os.Getenv("MAX_STAKE"); stake != "" {
		if parsed, err := strconv.ParseInt(stake, 10, 64); err == nil {
			config.MaxStake = parsed
		}
	}
	if rtp := os.Getenv("MACHINE_RTP"); rtp != "" {
		if parsed, err := strconv.ParseFloat(rtp, 64); err == nil {
			config.RTP = parsed
		}
	}
	if interval := os.Getenv("AUTO_SPIN_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.AutoSpinInterval = parsed
		}
	}
	if interval := os.Getenv("SNAPSHOT_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.SnapshotInterval = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.ChainRPCURL == "" {
			return nil, fmt.Errorf("CHAIN_RPC_URL is required")
		}
		if config.WalletKey == "" {
			return nil, fmt.Errorf("WALLET_KEY is required")
		}
		if config.ContractID == "" {
			return nil, fmt.Errorf("CONTRACT_ID is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		Namespace:        "slotbridge-test",
		ContractID:       "contract-test",
		MinStake:         5,
		MaxStake:         10_000,
		RTP:              0.96,
		QueueLimit:       10,
		PruneDelay:       20 * time.Millisecond,
		ExpiryTimeout:    60 * time.Second,
		SnapshotInterval: 50 * time.Millisecond,
		AutoSpinInterval: 20 * time.Millisecond,
	}
}
