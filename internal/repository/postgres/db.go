package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"njcrashes/internal/config"
)

const (
	pingTimeout     = 5 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// NewDB opens the ingest ledger pool and checks it is reachable. Batch ingests
// hold connections only briefly, so idle ones are recycled.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening ledger database %s: %w", cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger database %s@%s:%d unreachable: %w", cfg.Name, cfg.Host, cfg.Port, err)
	}
	return db, nil
}
