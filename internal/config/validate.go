package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if len(c.Sources.Symbols) == 0 {
		return errors.New("sources.symbols must configure at least one source")
	}
	for id, symbols := range c.Sources.Symbols {
		if id == "" {
			return errors.New("sources.symbols contains an empty source id")
		}
		if len(symbols) == 0 {
			return fmt.Errorf("sources.symbols.%s has no symbols", id)
		}
		for _, sym := range symbols {
			if strings.TrimSpace(sym) == "" {
				return fmt.Errorf("sources.symbols.%s contains an empty symbol", id)
			}
		}
	}
	for _, id := range c.Sources.Enabled {
		if _, ok := c.Sources.Symbols[id]; !ok {
			return fmt.Errorf("sources.enabled names %q which has no symbols configured", id)
		}
	}
	if c.Sources.RefreshInterval <= 0 {
		return errors.New("sources.refresh_interval must be positive")
	}

	for _, f := range c.Persistence.Formats {
		if f != "csv" && f != "json" {
			return fmt.Errorf("persistence.formats contains unknown format %q (want csv or json)", f)
		}
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Query.FacetTimeout <= 0 {
		return errors.New("query.facet_timeout must be positive")
	}
	if c.Query.TradeLimit < 1 {
		return errors.New("query.trade_limit must be >= 1")
	}
	if c.Query.BookDepth < 1 {
		return errors.New("query.book_depth must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
