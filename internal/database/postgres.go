package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildPostgresDSN assembles a keyword/value connection string. Extra options
// are emitted in sorted order so the DSN is stable across restarts; sslmode
// defaults to disable unless the configuration says otherwise.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres requires a user and a database name")
	}

	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 5432
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "host=%s port=%d user=%s dbname=%s", host, port, cfg.User, cfg.Name)
	if cfg.Password != "" {
		fmt.Fprintf(&sb, " password=%s", cfg.Password)
	}

	extra := make(map[string]string, len(cfg.Options)+1)
	extra["sslmode"] = "disable"
	for key, value := range cfg.Options {
		extra[key] = value
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&sb, " %s=%s", key, extra[key])
	}

	return sb.String(), nil
}
