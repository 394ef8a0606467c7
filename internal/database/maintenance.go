package database

import (
	"fmt"
	"strings"
)

// Tables lists every table the schema creates, parents first
var Tables = []string{"users", "disasters", "relief_camps", "resources", "donations", "sessions"}

// Optimize refreshes planner statistics.
func (db *DB) Optimize() error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.maintain("PRAGMA optimize", "ANALYZE TABLE"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}

	return nil
}

// Vacuum rebuilds storage to reclaim unused space.
func (db *DB) Vacuum() error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.maintain("VACUUM", "OPTIMIZE TABLE"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// maintain runs the SQLite statement, or the MySQL table verb over every table.
// MySQL answers table maintenance with a report result set, which is discarded.
func (db *DB) maintain(sqliteStmt, mysqlVerb string) error {
	if db.Dialect() != DialectMySQL {
		_, err := db.exec(sqliteStmt)
		return err
	}

	rows, err := db.query(mysqlVerb + " " + strings.Join(Tables, ", "))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}
