package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Clock supplies creation timestamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DB represents the database connection
type DB struct {
	conn    *sql.DB
	dialect dialect
	clock   Clock
	logger  *slog.Logger
}

// Option customizes a DB
type Option func(*DB)

// WithClock replaces the wall clock used for created_at
func WithClock(c Clock) Option {
	return func(db *DB) { db.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// New opens a database connection for driver and checks it is reachable.
//
//	sqlite:   a file path or ":memory:"
//	postgres: "host=... user=... password=... dbname=... port=..."
//	mysql:    "user:password@tcp(host:3306)/dbname"
func New(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if d.name == DriverMySQL {
		dsn, err = mysqlDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
	}

	// statements are traced under the caller's span
	conn, err := otelsql.Open(d.driverName, dsn,
		otelsql.WithAttributes(attribute.String("db.system", d.name)),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true, OmitRows: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch d.name {
	case DriverSQLite:
		// a single writer avoids SQLITE_BUSY and keeps :memory: databases shared
		conn.SetMaxOpenConns(1)
	case DriverMySQL, DriverPostgres:
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:    conn,
		dialect: d,
		clock:   SystemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the dialect name
func (db *DB) Driver() string {
	return db.dialect.name
}

// mysqlDSN makes the driver return DATETIME columns as UTC time.Time values
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// dialect captures the SQL differences between drivers
type dialect struct {
	name       string
	driverName string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// INSERT ... RETURNING id instead of LastInsertId
	returning  bool
	migrations []Migration
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		return dialect{name: DriverSQLite, driverName: "sqlite", migrations: sqliteMigrations}, nil
	case DriverPostgres, "postgresql":
		return dialect{name: DriverPostgres, driverName: "postgres", numbered: true, returning: true, migrations: postgresMigrations}, nil
	case DriverMySQL:
		return dialect{name: DriverMySQL, driverName: "mysql", migrations: mysqlMigrations}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders for dialects that number them
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
