package database

import (
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// buildMySQLDSN delegates formatting to the driver's own config type so
// escaping rules stay the driver's problem. parseTime is always on because
// gorm scans DATETIME columns into time.Time.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql requires a user and a database name")
	}

	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = 3306
	}

	dc := mysqldrv.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", host, port)
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.Local

	dc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		dc.Params[key] = value
	}

	return dc.FormatDSN(), nil
}
