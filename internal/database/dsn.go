package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/deppfellow/platform-user/internal/config"
)

// PostgresDSN builds a postgres:// URL. The password is escaped.
func PostgresDSN(cfg config.DatabaseConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		hostPort,
		cfg.Name,
		cfg.SSLMode,
	)
}

// MySQLDSN builds a go-sql-driver DSN over TCP.
func MySQLDSN(cfg config.DatabaseConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	c.ParseTime = true
	return c.FormatDSN()
}

// SQLiteDSN returns the sqlite3 data source. Plain file names get foreign keys enabled.
func SQLiteDSN(cfg config.DatabaseConfig) string {
	if strings.HasPrefix(cfg.Name, "file:") || cfg.Name == ":memory:" {
		return cfg.Name
	}
	return "file:" + cfg.Name + "?_foreign_keys=on"
}
