package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresExecer is satisfied by *pgxpool.Pool and pgx.Tx.
type PostgresExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClickhouseExecer is satisfied by clickhouse driver.Conn.
type ClickhouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ApplyPostgres applies all embedded PostgreSQL files in lexical order.
// Each file is sent as one multi-statement batch.
func ApplyPostgres(ctx context.Context, db PostgresExecer) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}

// ApplyClickhouse applies all embedded ClickHouse files in lexical order.
// The ClickHouse driver does not accept multi-statement Exec, so files are
// split on semicolons first.
func ApplyClickhouse(ctx context.Context, db ClickhouseExecer) error {
	return applyStatements(ClickhouseFS, "clickhouse", func(stmt string) error {
		return db.Exec(ctx, stmt)
	})
}

// ApplySQLite applies all embedded SQLite files in lexical order.
func ApplySQLite(ctx context.Context, db *sql.DB) error {
	return applyStatements(SQLiteFS, "sqlite", func(stmt string) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
}

func applyStatements(fsys fs.FS, dir string, exec func(string) error) error {
	files, err := sqlFiles(fsys, dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return fmt.Errorf("validate migration %s: %w", file, err)
		}

		for _, stmt := range splitStatements(string(data)) {
			if err := exec(stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}
	return nil
}

func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements splits SQL content into individual statements by semicolon.
//
// The splitter does not understand string literals, block comments or
// dollar quoting. Migrations therefore use -- comments only and keep
// semicolons out of literals; validateNoSemicolonInStrings enforces the
// second rule.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted literal.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal at offset %d", i)
		}
	}
	return nil
}

// DatabaseFromDSN extracts the database name from a clickhouse:// DSN.
func DatabaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
