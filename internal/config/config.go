// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Sync    SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "pretty"; empty picks by environment
}

// StorageConfig holds data directory configuration. The database and the
// search index both live under DataDir.
type StorageConfig struct {
	DataDir string
}

// DatabasePath returns the SQLite database file path.
func (c StorageConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "pagemark.db")
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name          string
	Host          string        // Bind address (default: all interfaces)
	Port          string        // Server port (default: 8766)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins   []string      // Allowed CORS origins (default: *)
	AdvertiseMDNS bool          // Advertise via mDNS/Zeroconf (default: true)
}

// SyncConfig holds sync engine tuning.
type SyncConfig struct {
	// PruneBatchSize bounds the ledger rows the post-push prune examines.
	PruneBatchSize int
	// TombstoneRetention is how long a tombstone survives opportunistic
	// pruning so slow devices can still pull it.
	TombstoneRetention time.Duration
	// RateLimitRPS and RateLimitBurst tune the per-IP limiter on mutation
	// endpoints.
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (PAGEMARK_*).
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, pretty)")
	dataDir := flag.String("data-dir", "", "Data directory for the database and search index")
	serverName := flag.String("server-name", "", "Name advertised for this server")

	// Server flags.
	serverHost := flag.String("host", "", "Bind address (default: all interfaces)")
	serverPort := flag.String("port", "", "Server port (default: 8766)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")

	// Sync flags.
	pruneBatchSize := flag.String("prune-batch-size", "", "Ledger rows examined per prune pass (default: 500)")
	tombstoneRetention := flag.String("tombstone-retention", "", "How long tombstones survive opportunistic pruning (default: 720h)")
	rateLimitRPS := flag.String("rate-limit-rps", "", "Per-IP requests per second on mutation endpoints (default: 10)")
	rateLimitBurst := flag.String("rate-limit-burst", "", "Per-IP burst size on mutation endpoints (default: 20)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "PAGEMARK_ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "PAGEMARK_LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "PAGEMARK_LOG_FORMAT", ""),
		},
		Storage: StorageConfig{
			DataDir: getConfigValue(*dataDir, "PAGEMARK_DATA_DIR", ""),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "PAGEMARK_SERVER_NAME", "Pagemark Server"),
			Host:          getConfigValue(*serverHost, "PAGEMARK_HOST", ""),
			Port:          getConfigValue(*serverPort, "PAGEMARK_PORT", "8766"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "PAGEMARK_MDNS", true),
		},
		Sync: SyncConfig{
			PruneBatchSize: getIntConfigValue(*pruneBatchSize, "PAGEMARK_PRUNE_BATCH_SIZE", 500),
			RateLimitRPS:   float64(getIntConfigValue(*rateLimitRPS, "PAGEMARK_RATE_LIMIT_RPS", 10)),
			RateLimitBurst: getIntConfigValue(*rateLimitBurst, "PAGEMARK_RATE_LIMIT_BURST", 20),
		},
	}

	// Parse CORS origins.
	originsStr := getConfigValue(*corsOrigins, "PAGEMARK_CORS_ORIGINS", "*")
	for _, origin := range strings.Split(originsStr, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, origin)
		}
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "PAGEMARK_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "PAGEMARK_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "PAGEMARK_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Sync.TombstoneRetention, err = parseDurationValue(*tombstoneRetention, "PAGEMARK_TOMBSTONE_RETENTION", "720h"); err != nil {
		return nil, fmt.Errorf("invalid tombstone retention: %w", err)
	}

	// Expand and validate the data directory.
	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("environment is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "" && c.Logger.Format != "json" && c.Logger.Format != "pretty" {
		return fmt.Errorf("invalid log format: %s (must be json or pretty)", c.Logger.Format)
	}

	if c.Storage.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if c.Sync.PruneBatchSize <= 0 {
		return fmt.Errorf("prune batch size must be positive, got %d", c.Sync.PruneBatchSize)
	}
	if c.Sync.TombstoneRetention < 0 {
		return fmt.Errorf("tombstone retention cannot be negative, got %s", c.Sync.TombstoneRetention)
	}
	if c.Sync.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive, got %v", c.Sync.RateLimitRPS)
	}
	if c.Sync.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive, got %d", c.Sync.RateLimitBurst)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataDir expands ~ and makes the path absolute, defaulting to
// ~/Pagemark.
func (c *Config) expandDataDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Pagemark")

	expanded, err := expandPath(c.Storage.DataDir, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataDir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves flag/env/default precedence and parses the
// result as a duration.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
