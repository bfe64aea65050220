package database

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB returns a migrated, private in-memory SQLite database that is
// closed when the test ends. It holds a single connection, so code under test
// must run its queries on the transaction handle while a transaction is open.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := uuid.Must(uuid.NewV4()).String()
	return openMigrated(t, &PoolConfig{
		Driver:       DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
}

// OpenFileTestDB returns a migrated SQLite database file in the test's temp
// dir with a real connection pool, for tests that need concurrent writers.
func OpenFileTestDB(t testing.TB, maxOpenConns int) *gorm.DB {
	t.Helper()

	return openMigrated(t, &PoolConfig{
		Driver:       DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: maxOpenConns,
		MaxIdleConns: maxOpenConns,
		LogLevel:     logger.Silent,
	})
}

func openMigrated(t testing.TB, config *PoolConfig) *gorm.DB {
	t.Helper()

	pool, err := NewDatabasePool(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := Migrate(pool.DB); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return pool.DB
}
