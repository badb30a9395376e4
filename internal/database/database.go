package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// Open connects to the database. For sqlite the pool is pinned to a single
// connection so that an in-memory database lives as long as the handle.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if IsSQLite(driver) {
		// sqlite only supports a single writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)

		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing PRAGMA foreign_keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func IsSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

// DataSourceName folds user and password into url the way driver expects.
// URLs already carrying credentials are left alone.
func DataSourceName(driver, rawURL, user, password string) string {
	if user == "" {
		return rawURL
	}

	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		u, err := url.Parse(rawURL)
		if err != nil || u.Scheme == "" || u.User != nil {
			return rawURL
		}
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
		return u.String()
	case "mysql":
		if strings.Contains(rawURL, "@") {
			return rawURL
		}
		if password != "" {
			return user + ":" + password + "@" + rawURL
		}
		return user + "@" + rawURL
	}
	return rawURL
}
