package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	authsystem "github.com/MrEthical07/authsystem"
)

// poolIface is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, name, email, password_hash, created_at, email_confirmed,
	confirmation_token, confirmation_token_expires_at`

// Store is a PostgreSQL-backed authsystem.UserStore.
type Store struct {
	pool poolIface
}

// New wraps an open pool. The caller owns the pool.
func New(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONNECT_FAILED").With("operation", "connect").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("POSTGRES_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

func (s *Store) CreateUser(ctx context.Context, in authsystem.CreateUserInput) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, created_at, email_confirmed,
			confirmation_token, confirmation_token_expires_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		 RETURNING `+userColumns,
		in.Name, in.Email, in.PasswordHash, in.CreatedAt.UTC(),
		in.ConfirmationToken, in.ConfirmationTokenExpiresAt.UTC(),
	)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return authsystem.UserRecord{}, oops.Code("DUPLICATE_EMAIL").
				With("operation", "create user").
				Wrap(authsystem.ErrDuplicateEmail)
		}
		return authsystem.UserRecord{}, oops.With("operation", "create user").Wrap(err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.one(row, "get user by id", "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return s.one(row, "get user by email", "email", email)
}

func (s *Store) GetUserByConfirmationToken(ctx context.Context, token string) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE confirmation_token = $1`, token)
	return s.one(row, "get user by confirmation token", "token", "<redacted>")
}

func (s *Store) SetConfirmationToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET confirmation_token = $2, confirmation_token_expires_at = $3 WHERE id = $1`,
		id, token, expiresAt.UTC(),
	)
	if err != nil {
		return oops.With("operation", "set confirmation token").With("id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("set confirmation token", "id", id)
	}
	return nil
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, id int64, token string) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users
		 SET email_confirmed = TRUE, confirmation_token = NULL, confirmation_token_expires_at = NULL
		 WHERE id = $1 AND confirmation_token = $2
		 RETURNING `+userColumns,
		id, token,
	)
	return s.one(row, "mark email confirmed", "id", id)
}

func (s *Store) UpdateName(ctx context.Context, id int64, name string) (authsystem.UserRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users SET name = $2 WHERE id = $1 RETURNING `+userColumns,
		id, name,
	)
	return s.one(row, "update name", "id", id)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return oops.With("operation", "update password hash").With("id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("update password hash", "id", id)
	}
	return nil
}

func (s *Store) one(row pgx.Row, operation, key string, value any) (authsystem.UserRecord, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authsystem.UserRecord{}, notFound(operation, key, value)
		}
		return authsystem.UserRecord{}, oops.With("operation", operation).With(key, value).Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (authsystem.UserRecord, error) {
	var (
		u         authsystem.UserRecord
		token     *string
		expiresAt *time.Time
	)
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.EmailConfirmed,
		&token, &expiresAt,
	); err != nil {
		return authsystem.UserRecord{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if token != nil && expiresAt != nil {
		exp := expiresAt.UTC()
		u.ConfirmationToken = token
		u.ConfirmationTokenExpiresAt = &exp
	}
	return u, nil
}

func notFound(operation, key string, value any) error {
	return oops.Code("USER_NOT_FOUND").
		With("operation", operation).
		With(key, value).
		Wrap(authsystem.ErrRecordNotFound)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
