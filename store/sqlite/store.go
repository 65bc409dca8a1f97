package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	authsystem "github.com/MrEthical07/authsystem"
)

const userColumns = `id, name, email, password_hash, created_at, email_confirmed,
	confirmation_token, confirmation_token_expires_at`

// Store is a SQLite-backed authsystem.UserStore.
type Store struct {
	db *sql.DB
}

// New wraps a migrated database. The caller owns db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, in authsystem.CreateUserInput) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at, email_confirmed,
			confirmation_token, confirmation_token_expires_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)
		 RETURNING `+userColumns,
		in.Name, in.Email, in.PasswordHash, in.CreatedAt.UnixNano(),
		in.ConfirmationToken, in.ConfirmationTokenExpiresAt.UnixNano(),
	)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueEmail(err) {
			return authsystem.UserRecord{}, oops.Code("DUPLICATE_EMAIL").
				With("operation", "create user").
				Wrap(authsystem.ErrDuplicateEmail)
		}
		return authsystem.UserRecord{}, oops.With("operation", "create user").Wrap(err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return one(row, "get user by id")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return one(row, "get user by email")
}

func (s *Store) GetUserByConfirmationToken(ctx context.Context, token string) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE confirmation_token = ?`, token)
	return one(row, "get user by confirmation token")
}

func (s *Store) SetConfirmationToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET confirmation_token = ?, confirmation_token_expires_at = ? WHERE id = ?`,
		token, expiresAt.UnixNano(), id,
	)
	return affected(res, err, "set confirmation token")
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, id int64, token string) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users
		 SET email_confirmed = 1, confirmation_token = NULL, confirmation_token_expires_at = NULL
		 WHERE id = ? AND confirmation_token = ?
		 RETURNING `+userColumns,
		id, token,
	)
	return one(row, "mark email confirmed")
}

func (s *Store) UpdateName(ctx context.Context, id int64, name string) (authsystem.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `UPDATE users SET name = ? WHERE id = ? RETURNING `+userColumns, name, id)
	return one(row, "update name")
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return affected(res, err, "update password hash")
}

func one(row *sql.Row, operation string) (authsystem.UserRecord, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authsystem.UserRecord{}, oops.Code("USER_NOT_FOUND").
				With("operation", operation).
				Wrap(authsystem.ErrRecordNotFound)
		}
		return authsystem.UserRecord{}, oops.With("operation", operation).Wrap(err)
	}
	return user, nil
}

func affected(res sql.Result, err error, operation string) error {
	if err != nil {
		return oops.With("operation", operation).Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.With("operation", operation).Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").With("operation", operation).Wrap(authsystem.ErrRecordNotFound)
	}
	return nil
}

func scanUser(row *sql.Row) (authsystem.UserRecord, error) {
	var (
		u         authsystem.UserRecord
		createdAt int64
		confirmed int64
		token     sql.NullString
		expiresAt sql.NullInt64
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt, &confirmed,
		&token, &expiresAt,
	); err != nil {
		return authsystem.UserRecord{}, err
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	u.EmailConfirmed = confirmed != 0
	if token.Valid && expiresAt.Valid {
		tok := token.String
		exp := time.Unix(0, expiresAt.Int64).UTC()
		u.ConfirmationToken = &tok
		u.ConfirmationTokenExpiresAt = &exp
	}
	return u, nil
}

func isUniqueEmail(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "users.email")
}
