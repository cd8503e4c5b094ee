package repository

import (
	"database/sql"
	"net"
	"net/url"
	"strconv"

	"github.com/opensource-finance/baobab/internal/domain"
	_ "github.com/lib/pq"
)

// postgresDSN builds a postgres:// URL for lib/pq, filling in the local
// defaults for anything the config leaves empty.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "baobab"
	}
	sslmode := cfg.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	switch {
	case cfg.PostgresUser != "" && cfg.PostgresPassword != "":
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	case cfg.PostgresUser != "":
		u.User = url.User(cfg.PostgresUser)
	}
	return u.String()
}

func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	return openDB("postgres", postgresDSN(cfg))
}
