// Package sqlite implements every store on a single embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/mattn/go-sqlite3"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage/migrations"
)

// DB wraps sql.DB opened with the sqlite3 driver.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps
	// in-memory databases consistent across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := migrations.ApplySQLite(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{DB: db}, nil
}

func constraintCode(err error) sqlite3.ErrNoExtended {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
		return sqErr.ExtendedCode
	}
	return 0
}

func isDuplicateKeyError(err error) bool {
	code := constraintCode(err)
	return code == sqlite3.ErrConstraintPrimaryKey || code == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	return constraintCode(err) == sqlite3.ErrConstraintForeignKey
}

// nullableFloat maps NaN, which SQLite stores as NULL, back and forth.
func nullableFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

type rowScanner interface {
	Scan(dest ...any) error
}
