package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// CreateUser inserts a user and returns its ID. A duplicate email yields an
// error matching ErrConstraint.
func (d *DB) CreateUser(ctx context.Context, email, passHash string, isAdmin bool) (int64, error) {
	if email == "" || passHash == "" {
		return 0, errors.New("email and password hash are required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO users(email, password_hash, is_admin, created_at) VALUES(?, ?, ?, ?)
`, email, passHash, boolToInt(isAdmin), nowUnix())
	if err != nil {
		return 0, wrapConstraint(err)
	}
	return res.LastInsertId()
}

// GetUserByEmail looks up a user by exact (case-sensitive) email.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	var u User
	var isAdmin int
	err := d.sql.QueryRowContext(ctx, `
SELECT id, email, password_hash, is_admin, created_at FROM users WHERE email = ?
`, email).Scan(&u.ID, &u.Email, &u.PassHash, &isAdmin, &u.CreatedAt)
	if err == nil {
		u.IsAdmin = isAdmin != 0
		return &u, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

// SetUserPasswordHash replaces a user's password hash. It is only used by
// the out-of-band reset-admin command.
func (d *DB) SetUserPasswordHash(ctx context.Context, id int64, passHash string) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if passHash == "" {
		return errors.New("password hash is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passHash, id)
	return err
}

// CreateInfo inserts an info entry and returns its ID.
func (d *DB) CreateInfo(ctx context.Context, in NewInfo) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, errors.New("info name is required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO infos(name, description, image_filename, created_at, created_by) VALUES(?, ?, ?, ?, ?)
`, name, in.Description, nullString(in.ImageFilename), nowUnix(), nullInt64(in.CreatedBy))
	if err != nil {
		return 0, wrapConstraint(err)
	}
	return res.LastInsertId()
}

const infoColumns = `id, name, COALESCE(description, ''), COALESCE(image_filename, ''), created_at, COALESCE(created_by, 0)`

// GetInfo looks up an info entry by ID.
func (d *DB) GetInfo(ctx context.Context, id int64) (*Info, bool, error) {
	var in Info
	err := d.sql.QueryRowContext(ctx, `SELECT `+infoColumns+` FROM infos WHERE id = ?`, id).
		Scan(&in.ID, &in.Name, &in.Description, &in.ImageFilename, &in.CreatedAt, &in.CreatedBy)
	if err == nil {
		return &in, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

// ListInfos returns every info entry, newest first. Entries created within
// the same second are ordered by descending ID.
func (d *DB) ListInfos(ctx context.Context) ([]Info, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+infoColumns+` FROM infos ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Info{}
	for rows.Next() {
		var in Info
		if err := rows.Scan(&in.ID, &in.Name, &in.Description, &in.ImageFilename, &in.CreatedAt, &in.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CreateSession stores a session token for userID that expires ttl from now.
func (d *DB) CreateSession(ctx context.Context, token string, userID int64, isAdmin bool, ttl time.Duration) error {
	if token == "" || userID <= 0 {
		return errors.New("invalid session")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO sessions(token, user_id, is_admin, created_at, expires_at) VALUES(?, ?, ?, ?, ?)
`, token, userID, boolToInt(isAdmin), now, now+int64(ttl.Seconds()))
	return wrapConstraint(err)
}

// GetSession looks up a session by token. Expiry is left to the caller.
func (d *DB) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var s Session
	var isAdmin int
	err := d.sql.QueryRowContext(ctx, `
SELECT token, user_id, is_admin, created_at, expires_at FROM sessions WHERE token = ?
`, token).Scan(&s.Token, &s.UserID, &isAdmin, &s.CreatedAt, &s.ExpiresAt)
	if err == nil {
		s.IsAdmin = isAdmin != 0
		return &s, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

// DeleteSession removes a session by token. Deleting a missing token is not an error.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions deletes sessions that expired at or before now.
func (d *DB) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// boolToInt maps booleans to SQLite-friendly integer flags.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}
