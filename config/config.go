package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"meritbot/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string

	// Snapshot persistence: "file" or "postgres"
	SnapshotBackend string
	SnapshotPath    string

	// Database configuration (postgres backend)
	DatabaseURL  string
	DatabaseName string

	// NATS configuration, empty disables event publishing
	NATSServers string

	// Scheduler configuration
	LifecycleTickMinutes    int // round-expiry check cadence
	SnapshotIntervalMinutes int // snapshot save cadence

	// Environment
	Environment string // "development", "production" or "test"
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

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Optional .env for local development
	_ = godotenv.Load()

	config := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),

		SnapshotBackend: getEnvWithDefault("SNAPSHOT_BACKEND", "file"),
		SnapshotPath:    getEnvWithDefault("SNAPSHOT_PATH", "meritbot-state.json"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers: os.Getenv("NATS_SERVERS"),

		LifecycleTickMinutes:    5,
		SnapshotIntervalMinutes: 15,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if tick := os.Getenv("LIFECYCLE_TICK_MINUTES"); tick != "" {
		if parsed, err := strconv.Atoi(tick); err == nil && parsed > 0 {
			config.LifecycleTickMinutes = parsed
		}
	}
	if interval := os.Getenv("SNAPSHOT_INTERVAL_MINUTES"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SnapshotIntervalMinutes = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		switch config.SnapshotBackend {
		case "file":
			// SnapshotPath always has a default
		case "postgres":
			if config.DatabaseURL == "" {
				return nil, fmt.Errorf("DATABASE_URL is required for the postgres snapshot backend")
			}
		default:
			return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", config.SnapshotBackend)
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
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:             "test",
		SnapshotBackend:         "file",
		SnapshotPath:            "meritbot-state-test.json",
		LifecycleTickMinutes:    5,
		SnapshotIntervalMinutes: 15,
	}
}
