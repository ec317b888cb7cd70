package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full process configuration for `catalog serve`.
type Config struct {
	Addr    string        `mapstructure:"addr"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	// Seed is an optional YAML file of books created at startup.
	Seed  string      `mapstructure:"seed"`
	Admin AdminConfig `mapstructure:"admin"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, sqlite or redis
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	TTL           time.Duration `mapstructure:"ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// AdminConfig registers a bootstrap account. An empty Username disables it.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Session backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// EnvPrefix is prepended to every environment override, e.g. CATALOG_SESSION_BACKEND.
const EnvPrefix = "catalog"

// Defaults returns the built-in values. PORT is honored for the listen address.
func Defaults() map[string]any {
	addr := ":3000"
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		addr = ":" + port
	}
	return map[string]any{
		"addr":                   addr,
		"log.level":              "info",
		"log.format":             "text",
		"session.backend":        BackendMemory,
		"session.sqlite_path":    "file::memory:?cache=shared",
		"session.redis_addr":     "localhost:6379",
		"session.redis_password": "",
		"session.ttl":            24 * time.Hour,
		"session.cookie_name":    "catalog_session",
		"session.cookie_secure":  false,
		"seed":                   "",
		"admin.username":         "",
		"admin.password":         "",
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"addr":            "addr",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"session-backend": "session.backend",
	"sqlite-path":     "session.sqlite_path",
	"redis-addr":      "session.redis_addr",
	"session-ttl":     "session.ttl",
	"seed":            "seed",
	"admin":           "admin.username",
}

// RegisterFlags adds the serve flags to fs. Defaults live in Defaults so an
// unset flag never shadows the config file or environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("addr", "", "listen address (default :3000 or :$PORT)")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.String("session-backend", "", "memory, sqlite or redis")
	fs.String("sqlite-path", "", "SQLite session database path or DSN")
	fs.String("redis-addr", "", "Redis address for the redis session backend")
	fs.Duration("session-ttl", 0, "session lifetime for sqlite and redis backends")
	fs.String("seed", "", "YAML file of books to load at startup")
	fs.String("admin", "", "username of a bootstrap account to register at startup")
}

// Load resolves configuration with precedence defaults < file < env < flags.
func Load(fs *pflag.FlagSet) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return c, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return c, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	return c, c.Validate()
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("session.sqlite_path is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl must not be negative"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	return errors.Join(errs...)
}
