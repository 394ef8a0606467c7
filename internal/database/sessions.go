package database

import (
	"database/sql"
	"errors"
	"time"
)

// SessionStore keeps session records in the sessions table.
// It satisfies the scs.Store interface.
type SessionStore struct {
	db *DB
}

// NewSessionStore returns a session store bound to db
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Find returns the data for an unexpired session token
func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	var data []byte
	err := s.db.queryRow(`SELECT data FROM sessions WHERE token = ? AND expiry > ?`, token, time.Now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail("find session", err)
	}
	return data, true, nil
}

// Commit stores session data, replacing any previous record for the token
func (s *SessionStore) Commit(token string, data []byte, expiry time.Time) error {
	err := s.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)`, token, data, expiry.Unix())
		return err
	})
	if err != nil {
		return fail("commit session", err)
	}
	return nil
}

// Delete removes a session record. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(token string) error {
	if _, err := s.db.exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fail("delete session", err)
	}
	return nil
}

// PurgeExpired deletes expired session records and returns how many were removed
func (s *SessionStore) PurgeExpired() (int64, error) {
	result, err := s.db.exec(`DELETE FROM sessions WHERE expiry <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fail("purge sessions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fail("purge sessions", err)
	}
	return n, nil
}
