package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/asayao-fp/keiba/config"
	"github.com/asayao-fp/keiba/models"
)

// Setup opens the SQLite storage file using the provided config.
// One connection only: the rebuild pipeline is a single-writer batch
// process and SQLite serializes writers anyway.
func Setup(cfg *config.Config) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.RawRecord)(nil),
		(*models.Race)(nil),
		(*models.Entry)(nil),
		(*models.Jockey)(nil),
		(*models.Trainer)(nil),
		(*models.PlaceOdds)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS entries_race_horse ON entries (race_key, horse_no)`,
		`CREATE INDEX IF NOT EXISTS races_date ON races (yyyymmdd)`,
		`CREATE INDEX IF NOT EXISTS raw_jv_records_dataspec ON raw_jv_records (dataspec)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}

	return nil
}
