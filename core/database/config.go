package database

import (
	"net/url"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

// Config holds database connection settings.
type Config = coreconfig.DatabaseConfig

// URL builds the postgres:// connection URL understood by both lib/pq and
// golang-migrate. Credentials are escaped.
func URL(cfg Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host,
		Path:   "/" + cfg.Name,
	}
	if cfg.Port != "" {
		u.Host += ":" + cfg.Port
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}
