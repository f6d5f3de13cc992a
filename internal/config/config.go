package config

import (
	"os"
	"sort"
	"strings"
	"time"
)

// Config is the root configuration for a nexusfeed instance. It is built
// once at startup and treated as an immutable snapshot for the run's
// lifetime.
type Config struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Sources     SourcesConfig     `yaml:"sources"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Database    DBConfig          `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Directory   DirectoryConfig   `yaml:"directory"`
	Query       QueryConfig       `yaml:"query"`
	Server      ServerConfig      `yaml:"server"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SourcesConfig describes which sources to poll and how often.
type SourcesConfig struct {
	// Symbols maps source id -> list of symbols to poll.
	Symbols map[string][]string `yaml:"symbols"`

	// Enabled restricts polling to these source ids. Empty means every key
	// of Symbols is polled.
	Enabled []string `yaml:"enabled"`

	// RefreshInterval is the default poll interval for every target.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Sandbox flags per source id (testnet endpoints).
	Sandbox map[string]bool `yaml:"sandbox"`
}

// PersistenceConfig holds the file sink settings.
type PersistenceConfig struct {
	Dir     string   `yaml:"dir"`     // Destination directory for {source}_ticker.* files
	Formats []string `yaml:"formats"` // Subset of {"csv", "json"}
}

// DBConfig holds an optional PostgreSQL connection for the database sink.
// Empty host disables the database sink.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database sink is configured.
func (db DBConfig) Enabled() bool { return db.Host != "" }

// RedisConfig holds the optional snapshot cache connection. Empty addr
// disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether the snapshot cache is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// DirectoryConfig holds the secondary symbol-directory provider settings.
type DirectoryConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// QueryConfig holds aggregated query settings.
type QueryConfig struct {
	// FacetTimeout bounds each facet of a market-data query so one slow
	// facet cannot delay the merged response.
	FacetTimeout time.Duration `yaml:"facet_timeout"`

	// TradeLimit is the number of recent trades fetched per query.
	TradeLimit int `yaml:"trade_limit"`

	// BookDepth is the order book depth fetched per query.
	BookDepth int `yaml:"book_depth"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// Credentials holds optional API credentials for one source. When a secret
// is present, connectors that support it sign requests with HMAC-SHA256.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string // required by some vendors (OKX) alongside the key
}

// SourceCredentials reads credentials for a source from the environment,
// looking for {SOURCE}_API_KEY, {SOURCE}_API_SECRET and
// {SOURCE}_API_PASSPHRASE. Missing variables yield empty fields; public
// market data needs no credentials.
func SourceCredentials(source string) Credentials {
	prefix := strings.ToUpper(source)
	return Credentials{
		APIKey:     os.Getenv(prefix + "_API_KEY"),
		APISecret:  os.Getenv(prefix + "_API_SECRET"),
		Passphrase: os.Getenv(prefix + "_API_PASSPHRASE"),
	}
}

// EnabledSources returns the source ids to poll, in a stable order.
func (s SourcesConfig) EnabledSources() []string {
	if len(s.Enabled) > 0 {
		return s.Enabled
	}
	out := make([]string, 0, len(s.Symbols))
	for id := range s.Symbols {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
