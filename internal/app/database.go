package app

import (
	"strings"

	"github.com/hadbitapp/hadbit-server/internal/database"
)

// DatabaseSettings converts the loaded configuration into connection options.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	var auth DBAuthConfig
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		auth = c.Database.Postgres
	case "mysql":
		auth = c.Database.MySQL
	}

	cfg.Host = auth.Host
	cfg.Port = auth.Port
	cfg.Name = auth.Database
	cfg.User = auth.Username
	cfg.Password = auth.Password

	return cfg
}
