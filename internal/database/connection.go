package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// mysqlUnknownDatabase is ER_BAD_DB_ERROR
const mysqlUnknownDatabase = 1049

// identifierPattern guards names that have to be spliced into DDL
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var errDatabaseFileMissing = errors.New("database file does not exist")

// backend hides the dialect specific parts of connecting and provisioning
type backend interface {
	driverName() string
	dsn(withDatabase bool) (string, error)
	isMissingDatabase(err error) bool
	createDatabase() error
	target() string
}

func newBackend(cfg Config) (backend, error) {
	switch cfg.Driver {
	case DialectMySQL:
		if !identifierPattern.MatchString(cfg.Name) {
			return nil, fmt.Errorf("invalid database name %q", cfg.Name)
		}
		if cfg.Charset != "" && !identifierPattern.MatchString(cfg.Charset) {
			return nil, fmt.Errorf("invalid charset %q", cfg.Charset)
		}
		return &mysqlBackend{cfg: cfg}, nil
	case DialectSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		return &sqliteBackend{path: cfg.Path}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// connect opens and verifies a handle capped at a single open connection
func connect(b backend, withDatabase bool) (*sql.DB, error) {
	dsn, err := b.dsn(withDatabase)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(b.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

type mysqlBackend struct {
	cfg Config
}

func (b *mysqlBackend) driverName() string { return "mysql" }

func (b *mysqlBackend) target() string { return b.cfg.Name }

func (b *mysqlBackend) dsn(withDatabase bool) (string, error) {
	port := b.cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = b.cfg.User
	mc.Passwd = b.cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(b.cfg.Host, strconv.Itoa(port))
	if withDatabase {
		mc.DBName = b.cfg.Name
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	// Statements go to the server as real prepared statements
	mc.InterpolateParams = false
	if b.cfg.Charset != "" {
		if err := mc.Apply(mysql.Charset(b.cfg.Charset, "")); err != nil {
			return "", fmt.Errorf("invalid mysql configuration: %w", err)
		}
	}

	return mc.FormatDSN(), nil
}

func (b *mysqlBackend) isMissingDatabase(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlUnknownDatabase
}

func (b *mysqlBackend) createDatabase() error {
	conn, err := connect(b, false)
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt := "CREATE DATABASE IF NOT EXISTS `" + b.cfg.Name + "`"
	if b.cfg.Charset != "" {
		stmt += " CHARACTER SET " + b.cfg.Charset
	}
	if _, err := conn.Exec(stmt); err != nil {
		return err
	}
	return nil
}

type sqliteBackend struct {
	path string
}

func (b *sqliteBackend) driverName() string { return "sqlite" }

func (b *sqliteBackend) target() string { return b.path }

func (b *sqliteBackend) dsn(withDatabase bool) (string, error) {
	if withDatabase {
		if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
			return "", errDatabaseFileMissing
		}
	}
	// mode=rw refuses to create the file implicitly
	return fmt.Sprintf("file:%s?mode=rw&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", b.path), nil
}

func (b *sqliteBackend) isMissingDatabase(err error) bool {
	if errors.Is(err, errDatabaseFileMissing) {
		return true
	}
	_, statErr := os.Stat(b.path)
	return errors.Is(statErr, fs.ErrNotExist)
}

func (b *sqliteBackend) createDatabase() error {
	if dir := filepath.Dir(b.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(b.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

func (db *DB) begin() (*sql.Tx, error) {
	return db.conn.Begin()
}
