/*
Package config loads server configuration from flags, environment and an
optional config file.

SOURCES (highest precedence first):
  1. Flags bound with BindFlags
  2. Environment, prefix TIMESHEET_ ("store.driver" => TIMESHEET_STORE_DRIVER)
  3. Config file (--config), any format viper reads
  4. Defaults below

KEYS:
  http.addr              listen address                 ":8080"
  store.driver           sqlite | postgres | memory     "sqlite"
  store.sqlite_path      SQLite file                    "timesheets.db"
  store.postgres_dsn     pgx connection string          required for postgres
  auth.secret            HS256 signing secret           required
  auth.issuer            expected iss claim             ""
  auth.cache_ttl         identity cache lifetime        "5m"
  cors.allowed_origins   CORS origins                   localhost dev servers
  log.level              logrus level                   "info"
  log.format             json | text                    "json"

Load validates the result with go-playground/validator struct tags.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TIMESHEET"

// Config is the full server configuration.
type Config struct {
	HTTP  HTTPConfig  `mapstructure:"http"`
	Store StoreConfig `mapstructure:"store"`
	Auth  AuthConfig  `mapstructure:"auth"`
	CORS  CORSConfig  `mapstructure:"cors"`
	Log   LogConfig   `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=sqlite postgres memory"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"required,min=16"`
	Issuer   string        `mapstructure:"issuer"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "timesheets.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.cache_ttl", 5*time.Minute)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"addr":            "http.addr",
	"store":           "store.driver",
	"sqlite-path":     "store.sqlite_path",
	"postgres-dsn":    "store.postgres_dsn",
	"auth-secret":     "auth.secret",
	"auth-issuer":     "auth.issuer",
	"auth-cache-ttl":  "auth.cache_ttl",
	"allowed-origins": "cors.allowed_origins",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// BindFlags binds every flag in FlagKeys that flags defines. Unknown flags
// are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file, decodes and validates.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
}
