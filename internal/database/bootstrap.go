package database

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// provisioningStatement matches statements that create or select the database itself.
// Those steps are done by the connection manager before the import runs.
var provisioningStatement = regexp.MustCompile(`(?i)^(CREATE\s+(DATABASE|SCHEMA)\b|USE\s)`)

// Bootstrap imports the schema definition into the connected database
func (db *DB) Bootstrap() error {
	source, err := db.schemaSource()
	if err != nil {
		return err
	}

	statements := schemaStatements(source)
	log.Info().Int("statements", len(statements)).Str("database", db.backend.target()).Msg("Importing database schema")

	for i, stmt := range statements {
		if _, err := db.exec(stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}

	log.Info().Msg("Database schema imported")
	return nil
}

func (db *DB) schemaSource() (string, error) {
	if db.cfg.SchemaFile != "" {
		data, err := os.ReadFile(db.cfg.SchemaFile)
		if err != nil {
			return "", fmt.Errorf("failed to read schema file: %w", err)
		}
		return string(data), nil
	}

	data, err := schemaFS.ReadFile("schema/" + string(db.cfg.Driver) + ".sql")
	if err != nil {
		return "", fmt.Errorf("no embedded schema for %s: %w", db.cfg.Driver, err)
	}
	return string(data), nil
}

// schemaStatements splits a schema script and drops the database provisioning statements
func schemaStatements(sql string) []string {
	var statements []string
	for _, stmt := range splitSQLStatements(sql) {
		if provisioningStatement.MatchString(stmt) {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}

// splitSQLStatements splits a SQL string into individual statements.
// Blank lines and "--" comment lines are skipped. A ";" anywhere on a line closes the
// statement; a trailing "--" comment after it is dropped and other text starts the next one.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for line := range strings.SplitSeq(sql, "\n") {
		for {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				break
			}

			head, tail, closed := strings.Cut(line, ";")
			current.WriteString(head)
			current.WriteString("\n")
			if !closed {
				break
			}
			flush()
			line = tail
		}
	}

	// Trailing statement without a terminator
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}
