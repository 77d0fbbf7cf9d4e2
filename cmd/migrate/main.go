package main

// Run database migrations:
//   go run ./cmd/migrate                 # uses USAGE_STORE / DATABASE_URL / SQLITE_PATH
//   go run ./cmd/migrate -status

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/kimola/kimola-go/internal/shared/config"
	"github.com/kimola/kimola-go/internal/shared/storage/db"
)

func main() {
	status := flag.Bool("status", false, "print migration status instead of migrating")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, dialect, err := open(ctx, cfg)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if *status {
		if err := db.MigrationStatus(ctx, sqlDB, dialect); err != nil {
			log.Printf("failed to read migration status: %v", err)
			os.Exit(1)
		}
		return
	}
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied dialect=%s", dialect)
}

func open(ctx context.Context, cfg config.Config) (*sql.DB, string, error) {
	if cfg.UsageStore == "sqlite" {
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		return sqlDB, db.DialectSQLite, err
	}
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	return sqlDB, db.DialectPostgres, err
}
