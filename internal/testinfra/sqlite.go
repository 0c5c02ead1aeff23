// Package testinfra holds helpers shared by package tests. Nothing outside _test.go
// files imports it.
package testinfra

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"printdock.app/api/internal/database"
)

// Logger returns a logrus logger that discards output unless the test runs verbose.
func Logger(t *testing.T) *logrus.Logger {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	if !testing.Verbose() {
		l.SetOutput(io.Discard)
	}
	return l
}

// OpenSQLite returns an in-memory database with the users and files tables. A single
// connection keeps every goroutine of a test on the same memory database.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(Logger(t)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&database.User{}, &database.File{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
