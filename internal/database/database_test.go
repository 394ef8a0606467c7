package database

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{Driver: DialectSQLite, Path: filepath.Join(t.TempDir(), "relief.db")})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, username string, role Role) int64 {
	t.Helper()

	id, err := NewUsers(db).Create(NewUser{
		Username:     username,
		Email:        username + "@example.org",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz01234",
		FullName:     "User " + username,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return id
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOpen_ProvisionsMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relief.db")

	db, err := Open(Config{Driver: DialectSQLite, Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file to be created: %v", err)
	}

	users, err := NewUsers(db).List(nil)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}

	row, err := db.FetchOne(`SELECT COUNT(*) AS n FROM disasters`)
	if err != nil {
		t.Fatalf("FetchOne returned error: %v", err)
	}
	if row == nil || row.Get("n") != int64(0) {
		t.Fatalf("expected zero disasters, got %+v", row)
	}
}

func TestOpen_ReopensExistingDatabaseWithoutBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relief.db")

	db, err := Open(Config{Driver: DialectSQLite, Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	seedUser(t, db, "alice", RoleAdmin)
	db.Close()

	// A broken schema source would fail if it were imported again
	broken := filepath.Join(t.TempDir(), "broken.sql")
	if err := os.WriteFile(broken, []byte("THIS IS NOT SQL;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err = Open(Config{Driver: DialectSQLite, Path: path, SchemaFile: broken})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()

	exists, err := NewUsers(db).UsernameExists("alice")
	if err != nil {
		t.Fatalf("UsernameExists returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected existing data to survive reopening")
	}
}

func TestOpen_BootstrapFailureIsNotFatal(t *testing.T) {
	schema := filepath.Join(t.TempDir(), "schema.sql")
	content := "CREATE TABLE first_table (id INTEGER PRIMARY KEY);\nCREATE TABLE broken (;\nCREATE TABLE never_created (id INTEGER);\n"
	if err := os.WriteFile(schema, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	db, err := Open(Config{Driver: DialectSQLite, Path: filepath.Join(t.TempDir(), "relief.db"), SchemaFile: schema})
	if err != nil {
		t.Fatalf("expected connection despite bootstrap failure, got %v", err)
	}
	defer db.Close()

	if _, err := db.FetchAll(`SELECT * FROM first_table`); err != nil {
		t.Fatalf("expected statements before the failure to be applied: %v", err)
	}
	if _, err := db.FetchAll(`SELECT * FROM never_created`); err == nil {
		t.Fatal("expected statements after the failure to be skipped")
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_RejectsUnsafeDatabaseName(t *testing.T) {
	_, err := Open(Config{Driver: DialectMySQL, Host: "127.0.0.1", Name: "relief`; DROP"})
	if err == nil {
		t.Fatal("expected error for unsafe database name")
	}
}

func TestFetchAll_ReturnsOrderedColumns(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice", RoleAdmin)

	rows, err := db.FetchAll(`SELECT username, role FROM users`)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Columns; len(got) != 2 || got[0] != "username" || got[1] != "role" {
		t.Fatalf("unexpected columns %v", got)
	}
	if rows[0].Get("username") != "alice" {
		t.Fatalf("expected alice, got %v", rows[0].Get("username"))
	}
	if rows[0].Get("missing") != nil {
		t.Fatal("expected nil for unknown column")
	}
}

func TestFetchOne_EmptyResult(t *testing.T) {
	db := newTestDB(t)

	row, err := db.FetchOne(`SELECT user_id FROM users WHERE username = ?`, "nobody")
	if err != nil {
		t.Fatalf("FetchOne returned error: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row, got %+v", row)
	}
}

func TestInsert_ReturnsLastInsertID(t *testing.T) {
	db := newTestDB(t)

	first, err := db.Insert(`INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)`, "a", []byte("x"), 1)
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	second, err := db.Insert(`INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)`, "b", []byte("y"), 1)
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing ids, got %d then %d", first, second)
	}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO sessions (token, data, expiry) VALUES ('t', x'00', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	row, err := db.FetchOne(`SELECT COUNT(*) AS n FROM sessions`)
	if err != nil {
		t.Fatalf("FetchOne returned error: %v", err)
	}
	if row.Get("n") != int64(0) {
		t.Fatalf("expected rollback, got %v rows", row.Get("n"))
	}
}

func TestRepositoryErrorsAreSanitised(t *testing.T) {
	db := newTestDB(t)
	users := NewUsers(db)
	seedUser(t, db, "alice", RoleDonor)

	// Duplicate username violates the unique constraint
	_, err := users.Create(NewUser{Username: "alice", Email: "other@example.org", PasswordHash: "x", FullName: "A"})
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
}
