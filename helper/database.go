package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	qh "github.com/siherrmann/queuer/helper"
)

// DatabaseConfig holds the Postgres connection of the record store.
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfigFromEnv reads the SCHOOLPAY_DB_* variables.
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("SCHOOLPAY_DB_HOST", "localhost"),
		Port:     GetEnvOrDefault("SCHOOLPAY_DB_PORT", "5432"),
		Database: GetEnvOrDefault("SCHOOLPAY_DB_DATABASE", "database"),
		Username: GetEnvOrDefault("SCHOOLPAY_DB_USERNAME", "user"),
		Password: GetEnvOrDefault("SCHOOLPAY_DB_PASSWORD", "password"),
		Schema:   GetEnvOrDefault("SCHOOLPAY_DB_SCHEMA", "public"),
		SSLMode:  GetEnvOrDefault("SCHOOLPAY_DB_SSLMODE", "disable"),
	}
}

// DSN returns the lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		query.Set("search_path", c.Schema)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// ConnectDatabase opens and pings the Postgres database and wraps it for the
// record store.
func ConnectDatabase(name string, config DatabaseConfig, logger *slog.Logger) (*qh.Database, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%s: %w", config.Host, config.Port, err)
	}

	return qh.NewDatabaseWithDB(name, db, logger), nil
}
