package database

import (
	"fmt"
	"net/url"

	"github.com/nexusfeed/nexusfeed/internal/config"
)

// BuildConnString renders a pool connection URL from config. Credentials
// with special characters are percent-encoded by the URL builder. SSLMode
// is guaranteed non-empty by config defaults.
func BuildConnString(cfg config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + cfg.SSLMode,
	}
	return u.String()
}
