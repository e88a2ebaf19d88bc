package db

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Queries are written with "?" placeholders; Database rewrites them for Postgres.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type CopyCapable interface {
	CopyFrom(ctx context.Context, table string, columns []string, filePath string) (int64, error)
}

type Database struct {
	db     *sql.DB
	pool   *pgxpool.Pool
	driver string
}

// IsPostgres reports whether dsn names a Postgres server; anything else is a SQLite path.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func NewDatabaseConnection(ctx context.Context, domainStringName string) (*Database, error) {
	if IsPostgres(domainStringName) {
		return openPostgres(ctx, domainStringName)
	}
	return openSQLite(ctx, domainStringName)
}

func openPostgres(ctx context.Context, domainStringName string) (*Database, error) {
	db, err := sql.Open(DriverPostgres, domainStringName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	pool, err := pgxpool.New(ctx, domainStringName)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		_ = db.Close()
		return nil, fmt.Errorf("pgxpool ping: %w", err)
	}

	return &Database{db: db, pool: pool, driver: DriverPostgres}, nil
}

func openSQLite(ctx context.Context, path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}

	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// One connection: SQLite has a single writer and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &Database{db: db, driver: DriverSQLite}, nil
}

func (db *Database) Driver() string {
	return db.driver
}

func (db *Database) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	if db.pool != nil {
		db.pool.Close()
	}
	return db.db.Close()
}

func (db *Database) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Rebind converts "?" placeholders to "$n" when talking to Postgres.
func (db *Database) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var builder strings.Builder
	builder.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteString("$" + strconv.Itoa(n))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

func (db *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, db.Rebind(query), args...)
}

func (db *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, db.Rebind(query), args...)
}

func (db *Database) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, db.Rebind(query), args...)
}

func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func buildCopyQuery(tableName string, columns []string) string {
	protectedColumns := make([]string, len(columns))
	for i, col := range columns {
		protectedColumns[i] = QuoteIdentifier(col)
	}

	return fmt.Sprintf(
		"COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
		QuoteIdentifier(tableName),
		strings.Join(protectedColumns, ", "),
	)
}

func buildInsertQuery(tableName string, columns []string) string {
	protectedColumns := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		protectedColumns[i] = QuoteIdentifier(col)
		placeholders[i] = "?"
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(tableName),
		strings.Join(protectedColumns, ", "),
		strings.Join(placeholders, ", "),
	)
}

func (db *Database) CopyFromCSVFile(ctx context.Context, table string, columns []string, filePath string) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection from pool: %w", err)
	}
	defer conn.Release()

	copyQuery := buildCopyQuery(table, columns)
	res, err := conn.Conn().PgConn().CopyFrom(ctx, file, copyQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to copy from CSV file: %w", err)
	}
	return res.RowsAffected(), nil
}

// InsertFromCSVFile inserts every data row of a CSV file inside one transaction.
func (db *Database) InsertFromCSVFile(ctx context.Context, table string, columns []string, filePath string) (inserted int64, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, db.Rebind(buildInsertQuery(table, columns)))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	values := make([]any, len(columns))
	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return inserted, fmt.Errorf("failed to read CSV row %d: %w", inserted+2, readErr)
		}
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("row %d has %d fields, header has %d", inserted+2, len(row), len(columns))
		}

		for i, field := range row {
			values[i] = strings.TrimSpace(field)
		}
		if _, err = stmt.ExecContext(ctx, values...); err != nil {
			return inserted, fmt.Errorf("failed to insert row %d: %w", inserted+2, err)
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// CopyFrom bulk-loads a CSV file: COPY on Postgres, batched INSERT on SQLite.
func (db *Database) CopyFrom(ctx context.Context, table string, columns []string, filePath string) (int64, error) {
	if db.driver == DriverPostgres {
		return db.CopyFromCSVFile(ctx, table, columns, filePath)
	}
	return db.InsertFromCSVFile(ctx, table, columns, filePath)
}
