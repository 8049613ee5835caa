package main

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrDuplicateUsername reports a violated username uniqueness constraint.
var ErrDuplicateUsername = errors.New("username already exists")

// DB wraps the sqlite connection holding accounts, sessions and follows.
type DB struct {
	conn *sql.DB
}

func openDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS account (
			account_id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			pw_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS session (
			token TEXT PRIMARY KEY,
			account_id INTEGER NOT NULL REFERENCES account(account_id) ON DELETE CASCADE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS follower (
			who_id INTEGER NOT NULL REFERENCES account(account_id),
			whom_id INTEGER NOT NULL REFERENCES account(account_id),
			PRIMARY KEY (who_id, whom_id),
			CHECK (who_id != whom_id)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// --- Accounts ---

// InsertAccount persists a new account. The username uniqueness constraint
// is enforced by the schema; a violation comes back as ErrDuplicateUsername
// so concurrent registrations of the same name lose cleanly.
func (db *DB) InsertAccount(username, email, pwHash string) (*Account, error) {
	res, err := db.conn.Exec(
		"INSERT INTO account (username, email, pw_hash) VALUES (?, ?, ?)",
		username, email, pwHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.AccountByID(id)
}

func (db *DB) AccountByID(id int64) (*Account, error) {
	return scanAccount(db.conn.QueryRow(
		"SELECT account_id, username, email, pw_hash, created_at FROM account WHERE account_id = ?", id))
}

// AccountByUsername looks an account up by exact, case-sensitive username.
func (db *DB) AccountByUsername(username string) (*Account, error) {
	return scanAccount(db.conn.QueryRow(
		"SELECT account_id, username, email, pw_hash, created_at FROM account WHERE username = ?", username))
}

func (db *DB) UpdateAccountEmail(id int64, email string) error {
	_, err := db.conn.Exec("UPDATE account SET email = ? WHERE account_id = ?", email, id)
	return err
}

func (db *DB) CountAccounts() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM account").Scan(&n)
	return n, err
}

// ListAccounts returns the most recently registered accounts.
func (db *DB) ListAccounts(limit int) ([]Account, error) {
	return db.queryAccounts(
		"SELECT account_id, username, email, pw_hash, created_at FROM account ORDER BY created_at DESC, account_id DESC LIMIT ?",
		limit)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PwHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) queryAccounts(query string, args ...interface{}) ([]Account, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PwHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- Sessions ---

func (db *DB) CreateSession(token string, accountID int64) (*Session, error) {
	_, err := db.conn.Exec(
		"INSERT INTO session (token, account_id) VALUES (?, ?)", token, accountID)
	if err != nil {
		return nil, err
	}
	return db.SessionByToken(token)
}

func (db *DB) SessionByToken(token string) (*Session, error) {
	var s Session
	err := db.conn.QueryRow(
		"SELECT token, account_id, created_at FROM session WHERE token = ?", token).
		Scan(&s.Token, &s.AccountID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AccountBySession resolves a session token to its account, failing when the
// token is unknown. A valid token is the definition of "authenticated".
func (db *DB) AccountBySession(token string) (*Account, error) {
	return scanAccount(db.conn.QueryRow(`
		SELECT a.account_id, a.username, a.email, a.pw_hash, a.created_at
		FROM session s JOIN account a ON s.account_id = a.account_id
		WHERE s.token = ?`, token))
}

func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM session WHERE token = ?", token)
	return err
}

// --- Follows ---

// InsertFollow records who following whom. Repeating an existing follow is a
// no-op thanks to the composite primary key.
func (db *DB) InsertFollow(whoID, whomID int64) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO follower (who_id, whom_id) VALUES (?, ?)", whoID, whomID)
	return err
}

func (db *DB) DeleteFollow(whoID, whomID int64) error {
	_, err := db.conn.Exec(
		"DELETE FROM follower WHERE who_id = ? AND whom_id = ?", whoID, whomID)
	return err
}

func (db *DB) IsFollowing(whoID, whomID int64) (bool, error) {
	var exists int
	err := db.conn.QueryRow(
		"SELECT 1 FROM follower WHERE who_id = ? AND whom_id = ?", whoID, whomID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Following lists the accounts that accountID follows.
func (db *DB) Following(accountID int64) ([]Account, error) {
	return db.queryAccounts(`
		SELECT a.account_id, a.username, a.email, a.pw_hash, a.created_at
		FROM follower f JOIN account a ON f.whom_id = a.account_id
		WHERE f.who_id = ? ORDER BY a.username`, accountID)
}

// Followers lists the accounts following accountID.
func (db *DB) Followers(accountID int64) ([]Account, error) {
	return db.queryAccounts(`
		SELECT a.account_id, a.username, a.email, a.pw_hash, a.created_at
		FROM follower f JOIN account a ON f.who_id = a.account_id
		WHERE f.whom_id = ? ORDER BY a.username`, accountID)
}

// FollowCounts returns how many accounts follow accountID and how many it
// follows, in that order.
func (db *DB) FollowCounts(accountID int64) (followers, following int, err error) {
	err = db.conn.QueryRow(
		"SELECT COUNT(*) FROM follower WHERE whom_id = ?", accountID).Scan(&followers)
	if err != nil {
		return 0, 0, err
	}
	err = db.conn.QueryRow(
		"SELECT COUNT(*) FROM follower WHERE who_id = ?", accountID).Scan(&following)
	if err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
