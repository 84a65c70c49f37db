package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir: "/some/path",
		},
		Sync: SyncConfig{
			PruneBatchSize:     500,
			TombstoneRetention: 720 * time.Hour,
			RateLimitRPS:       10,
			RateLimitBurst:     20,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"production", true},
		{"staging", false},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"INFO", true},   // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"", true}, // empty picks by environment
		{"json", true},
		{"pretty", true},
		{"text", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Format = tt.format

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataDir = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data dir cannot be empty")
}

func TestValidate_SyncBounds(t *testing.T) {
	t.Run("prune batch size must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sync.PruneBatchSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("tombstone retention cannot be negative", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sync.TombstoneRetention = -time.Hour
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero tombstone retention is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sync.TombstoneRetention = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rate limit knobs must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Sync.RateLimitRPS = 0
		assert.Error(t, cfg.Validate())

		cfg = validConfig()
		cfg.Sync.RateLimitBurst = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestExpandDataDir_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandDataDir()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	expected := filepath.Join(homeDir, "Pagemark")
	assert.Equal(t, expected, cfg.Storage.DataDir)
}

func TestExpandDataDir_TildeExpansion(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			DataDir: "~/my-bookmarks",
		},
	}

	err := cfg.expandDataDir()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	expected := filepath.Join(homeDir, "my-bookmarks")
	assert.Equal(t, expected, cfg.Storage.DataDir)
}

func TestExpandDataDir_AbsolutePath(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			DataDir: "/absolute/path/to/data",
		},
	}

	err := cfg.expandDataDir()
	require.NoError(t, err)

	assert.Equal(t, "/absolute/path/to/data", cfg.Storage.DataDir)
}

func TestExpandDataDir_RelativePath(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{
			DataDir: "relative/path",
		},
	}

	err := cfg.expandDataDir()
	require.NoError(t, err)

	// Should be converted to absolute path.
	assert.True(t, filepath.IsAbs(cfg.Storage.DataDir))
	assert.Contains(t, cfg.Storage.DataDir, "relative/path")
}

func TestDatabasePath(t *testing.T) {
	cfg := StorageConfig{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "pagemark.db"), cfg.DatabasePath())
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	os.Setenv("TEST_ENV_KEY", "env-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_ENV_KEY")      //nolint:errcheck // Test cleanup

	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "NONEXISTENT_DURATION_KEY", "15s")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	d, err = parseDurationValue("2m", "NONEXISTENT_DURATION_KEY", "15s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	_, err = parseDurationValue("not-a-duration", "NONEXISTENT_DURATION_KEY", "15s")
	assert.Error(t, err)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	// Create temp .env file.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
PAGEMARK_ENV=production
PAGEMARK_LOG_LEVEL=debug
PAGEMARK_DATA_DIR=/test/path
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	keys := []string{"PAGEMARK_ENV", "PAGEMARK_LOG_LEVEL", "PAGEMARK_DATA_DIR", "QUOTED_VALUE", "SINGLE_QUOTED"}
	for _, k := range keys {
		os.Unsetenv(k) //nolint:errcheck // Test cleanup
	}
	defer func() {
		for _, k := range keys {
			os.Unsetenv(k) //nolint:errcheck // Test cleanup
		}
	}()

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Verify values were loaded.
	assert.Equal(t, "production", os.Getenv("PAGEMARK_ENV"))
	assert.Equal(t, "debug", os.Getenv("PAGEMARK_LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("PAGEMARK_DATA_DIR"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	// Create temp .env file with invalid format.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Should return error.
	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	// Set env var first.
	os.Setenv("TEST_VAR", "original-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_VAR")           //nolint:errcheck // Test cleanup

	// Create temp .env file that tries to override it.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `TEST_VAR=new-value`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_EmptyLines(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `
KEY1=value1


KEY2=value2

# Comment

KEY3=value3
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY1") //nolint:errcheck // Test cleanup
	os.Unsetenv("KEY2") //nolint:errcheck // Test cleanup
	os.Unsetenv("KEY3") //nolint:errcheck // Test cleanup
	defer func() {
		os.Unsetenv("KEY1") //nolint:errcheck // Test cleanup
		os.Unsetenv("KEY2") //nolint:errcheck // Test cleanup
		os.Unsetenv("KEY3") //nolint:errcheck // Test cleanup
	}()

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "value2", os.Getenv("KEY2"))
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `  KEY_WITH_SPACES  =  value with spaces  `
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY_WITH_SPACES")       //nolint:errcheck // Test cleanup
	defer os.Unsetenv("KEY_WITH_SPACES") //nolint:errcheck // Test cleanup

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Whitespace should be trimmed.
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
