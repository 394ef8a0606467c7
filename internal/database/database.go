package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Dialect names the SQL backend behind a DB
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrQueryFailed is the uniform failure returned by repositories; the driver error is logged, not returned
	ErrQueryFailed = errors.New("database operation failed")
	// ErrNothingToUpdate is returned by Update when no allowed field was supplied
	ErrNothingToUpdate = errors.New("no updatable fields supplied")
)

// Config describes how to reach the relational store
type Config struct {
	Driver   Dialect
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Charset  string

	// Path is the database file for the SQLite dialect
	Path string

	// SchemaFile overrides the embedded schema used by Bootstrap
	SchemaFile string
}

// DB owns the single shared connection to the relational store.
// It is constructed once by the process entry point and handed to every repository.
type DB struct {
	conn    *sql.DB
	cfg     Config
	backend backend
	mu      sync.Mutex
}

// Open connects to the configured store. When the target database does not exist yet it
// is created and the schema is imported before the handle is returned.
func Open(cfg Config) (*DB, error) {
	b, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := connect(b, true)
	provisioned := false
	if err != nil {
		if !b.isMissingDatabase(err) {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		log.Warn().Str("driver", string(cfg.Driver)).Str("database", b.target()).Msg("Database does not exist, provisioning")

		if err := b.createDatabase(); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}

		conn, err = connect(b, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to created database: %w", err)
		}
		provisioned = true
	}

	db := &DB{
		conn:    conn,
		cfg:     cfg,
		backend: b,
	}

	if provisioned {
		// The connection stays usable even when the import fails part way
		if err := db.Bootstrap(); err != nil {
			log.Error().Err(err).Msg("Schema import failed")
		}
	}

	log.Debug().Str("driver", string(cfg.Driver)).Str("database", b.target()).Msg("Database connection established")

	return db, nil
}

// Dialect returns the SQL dialect of the underlying store
func (db *DB) Dialect() Dialect {
	return db.cfg.Driver
}

// Close releases the connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Execute runs a statement with bound parameters
func (db *DB) Execute(query string, args ...any) (sql.Result, error) {
	return db.exec(query, args...)
}

// Insert runs an INSERT and returns the generated identifier
func (db *DB) Insert(query string, args ...any) (int64, error) {
	result, err := db.exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Row is a single result row keyed by column name, with the select order kept in Columns
type Row struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value of a column, or nil when the column is absent
func (r Row) Get(column string) any {
	return r.Values[column]
}

// FetchOne returns the first row of a query, or nil when the query yields nothing
func (db *DB) FetchOne(query string, args ...any) (*Row, error) {
	rows, err := db.FetchAll(query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FetchAll returns every row of a query as column-to-value mappings
func (db *DB) FetchAll(query string, args ...any) ([]Row, error) {
	rows, err := db.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := Row{Columns: columns, Values: make(map[string]any, len(columns))}
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row.Values[col] = string(b)
				continue
			}
			row.Values[col] = values[i]
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// Transaction wraps a function in a database transaction
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// fail logs a driver error at the repository boundary and hands back the uniform sentinel
func fail(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Database operation failed")
	return ErrQueryFailed
}
