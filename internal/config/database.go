package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// sqlDriverNames maps STORE_DRIVER to the database/sql driver registered for it
var sqlDriverNames = map[string]string{
	DriverMySQL:    "mysql",
	DriverPostgres: "pgx",
}

// InitDB opens a pooled *sql.DB for the mysql or postgres store and pings it.
func InitDB(ctx context.Context, cfg StoreConfig, log *zap.Logger) (*sql.DB, error) {
	driver, ok := sqlDriverNames[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("store driver %q is not a SQL driver", cfg.Driver)
	}

	dsn, err := DataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	log.Info("database connected",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return db, nil
}

// DataSourceName returns the DSN handed to sql.Open. MySQL DSNs always get
// parseTime=true so created_at scans into time.Time.
func DataSourceName(cfg StoreConfig) (string, error) {
	if cfg.Driver != DriverMySQL {
		return cfg.DSN, nil
	}

	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mcfg.ParseTime = true
	return mcfg.FormatDSN(), nil
}
