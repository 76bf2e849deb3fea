package pg

import (
	"fmt"

	"github.com/GlebRadaev/payee-ledger/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const migrationsTable = "ledger_schema_migrations"

// RunMigrations applies the embedded schema and logs the resulting version.
func RunMigrations(pool *pgxpool.Pool) (err error) {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetTableName(migrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close db: %w", cerr)
		}
	}()

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	zap.L().Info("schema is up to date", zap.Int64("version", version))
	return nil
}
