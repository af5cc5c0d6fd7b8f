package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/config"
)

const testSecret = "0123456789abcdef0123"

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "timesheets.db", cfg.Store.SQLitePath)
	assert.Equal(t, testSecret, cfg.Auth.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.CacheTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Len(t, cfg.CORS.AllowedOrigins, 2)
}

func TestLoad_MissingSecret(t *testing.T) {
	_, err := config.Load(config.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Auth.Secret")
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)
	t.Setenv("TIMESHEET_STORE_DRIVER", "postgres")

	_, err := config.Load(config.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgresDSN")

	t.Setenv("TIMESHEET_STORE_POSTGRES_DSN", "postgres://localhost/timesheets")
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)
	t.Setenv("TIMESHEET_STORE_DRIVER", "mysql")

	_, err := config.Load(config.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "timesheet.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  addr: ":9090"
store:
  driver: memory
auth:
  secret: "`+testSecret+`"
  issuer: acme
  cache_ttl: 30s
log:
  level: debug
  format: text
`), 0o600))

	cfg, err := config.Load(config.New(), file)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "acme", cfg.Auth.Issuer)
	assert.Equal(t, 30*time.Second, cfg.Auth.CacheTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	t.Setenv("TIMESHEET_AUTH_SECRET", testSecret)
	t.Setenv("TIMESHEET_HTTP_ADDR", ":7000")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("store", "sqlite", "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":6000", "--store", "memory"}))

	v := config.New()
	require.NoError(t, config.BindFlags(v, flags))

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := config.NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.WithField("week", "2025-03-10").Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"week":"2025-03-10"`)

	_, err = config.NewLogger(config.LogConfig{Level: "loud", Format: "json"}, nil)
	assert.Error(t, err)
}
