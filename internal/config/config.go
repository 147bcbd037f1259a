// Package config loads settings for the server and the CLI and sets up logging.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Typesense  TypesenseConfig  `mapstructure:"typesense"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Client     ClientConfig     `mapstructure:"client"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener of icp-server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GatewayConfig points at the external ingestion gateway.
type GatewayConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// TypesenseConfig is used only for the search health probe.
type TypesenseConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// SupabaseConfig holds auth settings and the database holding profiles and roles.
type SupabaseConfig struct {
	URL         string `mapstructure:"url"`
	AnonKey     string `mapstructure:"anon_key"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	DatabaseURL string `mapstructure:"database_url"`
}

// MonitoringConfig controls snapshot polling.
type MonitoringConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StaleGrace   time.Duration `mapstructure:"stale_grace"`
}

// ClientConfig is read by the icp CLI.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig selects the log level, the stderr format and an optional JSON
// log file.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// envBindings maps config keys to the environment names used by existing
// deployments. The first variable that is set wins.
var envBindings = map[string][]string{
	"gateway.url":           {"ICP_GATEWAY_URL", "NEXT_PUBLIC_API_GATEWAY_URL"},
	"gateway.api_key":       {"ICP_GATEWAY_API_KEY", "GATEWAY_API_KEY", "NEXT_PUBLIC_GATEWAY_API_KEY"},
	"typesense.url":         {"ICP_TYPESENSE_URL", "TYPESENSE_URL", "NEXT_PUBLIC_TYPESENSE_URL"},
	"typesense.api_key":     {"ICP_TYPESENSE_API_KEY", "TYPESENSE_SEARCH_ONLY_API_KEY", "TYPESENSE_SEARCH_API_KEY"},
	"supabase.url":          {"ICP_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"},
	"supabase.anon_key":     {"ICP_SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"},
	"supabase.jwt_secret":   {"ICP_SUPABASE_JWT_SECRET", "SUPABASE_JWT_SECRET"},
	"supabase.database_url": {"ICP_SUPABASE_DATABASE_URL", "SUPABASE_DB_URL", "DATABASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("gateway.url", "http://localhost:8080")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.rate_limit", 20.0)
	v.SetDefault("gateway.rate_burst", 10)

	v.SetDefault("monitoring.poll_interval", 10*time.Second)
	v.SetDefault("monitoring.stale_grace", 5*time.Minute)

	v.SetDefault("client.server_url", "http://localhost:3000")
	v.SetDefault("client.timeout", 30*time.Second)

	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", LogFormatText)
	v.SetDefault("log.file", "")
}

// Load reads configuration from an optional YAML file and the environment.
// With an empty path it looks for icp.yaml in . and ./configs and carries on
// without one.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("icp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("ICP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Gateway.URL = strings.TrimRight(cfg.Gateway.URL, "/")
	cfg.Typesense.URL = strings.TrimRight(cfg.Typesense.URL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects malformed values. A missing gateway API key is not an
// error here; the proxy routes report it per request.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("server timeouts must be positive"))
	}
	if err := checkURL("gateway.url", c.Gateway.URL, true); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkURL("typesense.url", c.Typesense.URL, false); err != nil {
		result = multierror.Append(result, err)
	}
	if err := checkURL("client.server_url", c.Client.ServerURL, true); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Gateway.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("gateway.timeout must be positive"))
	}
	if c.Gateway.RateLimit <= 0 || c.Gateway.RateBurst <= 0 {
		result = multierror.Append(result, fmt.Errorf("gateway rate limit and burst must be positive"))
	}
	if c.Monitoring.PollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("monitoring.poll_interval must be positive"))
	}
	if _, ok := ParseLogLevel(c.Log.Level); !ok {
		result = multierror.Append(result, fmt.Errorf("invalid log level: %s", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case LogFormatText, LogFormatJSON:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid log format: %s", c.Log.Format))
	}

	return result.ErrorOrNil()
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogLevel returns the configured slog level, INFO when unrecognised.
func (c *Config) LogLevel() slog.Level {
	level, _ := ParseLogLevel(c.Log.Level)
	return level
}

func checkURL(name, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not an absolute URL: %q", name, raw)
	}
	return nil
}

// ParseLogLevel maps DEBUG/INFO/WARN/ERROR (any case) to a slog level.
func ParseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
