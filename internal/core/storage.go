package core

import (
	"context"
	"fmt"
	"os"

	"luminary/internal/infra/persistence/memory"
	"luminary/internal/infra/persistence/postgres"
	"luminary/internal/infra/persistence/sqlite"
	"luminary/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects an artifact store backend using environment
// variables. Defaults to sqlite when unset.
//
//	LUMINARY_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	LUMINARY_SQLITE_PATH: path to sqlite file (default ./luminary.db)
//	LUMINARY_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(ctx context.Context) (domain.ArtifactStore, error) {
	driver := os.Getenv("LUMINARY_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("LUMINARY_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(ctx, os.Getenv("LUMINARY_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
