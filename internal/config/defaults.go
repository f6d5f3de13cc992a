package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultRefreshInterval  = 5 * time.Second
	DefaultPersistenceDir   = "data/raw"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultRedisTTL         = 60 * time.Second
	DefaultDirectoryURL     = "https://gomarket-api.goquant.io"
	DefaultDirectoryTimeout = 10 * time.Second
	DefaultMaxRetries       = 3
	DefaultFacetTimeout     = 10 * time.Second
	DefaultTradeLimit       = 50
	DefaultBookDepth        = 20
	DefaultServerPort       = 8080
	DefaultMetricsPath      = "/metrics"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = fmt.Sprintf("nexusfeed-%s", uuid.NewString()[:8])
	}

	// Sources defaults
	if c.Sources.RefreshInterval == 0 {
		c.Sources.RefreshInterval = DefaultRefreshInterval
	}

	// Persistence defaults
	if c.Persistence.Dir == "" {
		c.Persistence.Dir = DefaultPersistenceDir
	}
	if len(c.Persistence.Formats) == 0 {
		c.Persistence.Formats = []string{"csv", "json"}
	}

	// Database defaults (only meaningful when a host is set)
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	// Directory defaults
	if c.Directory.BaseURL == "" {
		c.Directory.BaseURL = DefaultDirectoryURL
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = DefaultDirectoryTimeout
	}
	if c.Directory.MaxRetries == 0 {
		c.Directory.MaxRetries = DefaultMaxRetries
	}

	// Query defaults
	if c.Query.FacetTimeout == 0 {
		c.Query.FacetTimeout = DefaultFacetTimeout
	}
	if c.Query.TradeLimit == 0 {
		c.Query.TradeLimit = DefaultTradeLimit
	}
	if c.Query.BookDepth == 0 {
		c.Query.BookDepth = DefaultBookDepth
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
}
