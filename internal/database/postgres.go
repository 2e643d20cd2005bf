package database

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingDeadline   = 30 * time.Second
	pingBackoffMin = 500 * time.Millisecond
	pingBackoffMax = 5 * time.Second
)

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdle     time.Duration
	ConnMaxLifetime time.Duration
}

// NewPostgres opens the pool and blocks until the database answers a ping,
// backing off between attempts. Startup without a database is fatal.
func NewPostgres(cfg PostgresConfig, log *zap.SugaredLogger) *sql.DB {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		log.Fatalw("failed to open postgres", "error", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	deadline := time.Now().Add(pingDeadline)
	backoff := pingBackoffMin
	for {
		err := db.Ping()
		if err == nil {
			return db
		}
		if time.Now().After(deadline) {
			log.Fatalw("failed to ping postgres", "error", err)
		}
		log.Warnw("postgres not ready yet", "error", err, "retry_in", backoff)
		time.Sleep(backoff)
		if backoff < pingBackoffMax {
			backoff *= 2
		}
	}
}
