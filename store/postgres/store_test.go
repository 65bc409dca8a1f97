package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsystem "github.com/MrEthical07/authsystem"
)

var (
	columns = []string{
		"id", "name", "email", "password_hash", "created_at", "email_confirmed",
		"confirmation_token", "confirmation_token_expires_at",
	}
	created = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expires = created.Add(24 * time.Hour)
)

func pendingRow(id int64, email, token string) *pgxmock.Rows {
	return pgxmock.NewRows(columns).
		AddRow(id, "Ana", email, "hash", created, false, &token, &expires)
}

func confirmedRow(id int64, name, email string) *pgxmock.Rows {
	return pgxmock.NewRows(columns).
		AddRow(id, name, email, "hash", created, true, (*string)(nil), (*time.Time)(nil))
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func TestStore_CreateUser(t *testing.T) {
	in := authsystem.CreateUserInput{
		Name:                       "Ana",
		Email:                      "ana@x.com",
		PasswordHash:               "hash",
		CreatedAt:                  created,
		ConfirmationToken:          "tok",
		ConfirmationTokenExpiresAt: expires,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantOther bool
	}{
		{
			name: "inserted",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ana", "ana@x.com", "hash", created, "tok", expires).
					WillReturnRows(pendingRow(7, "ana@x.com", "tok"))
			},
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ana", "ana@x.com", "hash", created, "tok", expires).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: authsystem.ErrDuplicateEmail,
		},
		{
			name: "connection failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("Ana", "ana@x.com", "hash", created, "tok", expires).
					WillReturnError(errors.New("connection refused"))
			},
			wantOther: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMock(t)
			tt.setupMock(mock)

			got, err := store.CreateUser(context.Background(), in)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantOther:
				require.Error(t, err)
				assert.Contains(t, err.Error(), "connection refused")
				assert.NotErrorIs(t, err, authsystem.ErrDuplicateEmail)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(7), got.ID)
				assert.Equal(t, "ana@x.com", got.Email)
				assert.False(t, got.EmailConfirmed)
				require.NotNil(t, got.ConfirmationToken)
				assert.Equal(t, "tok", *got.ConfirmationToken)
				require.NotNil(t, got.ConfirmationTokenExpiresAt)
				assert.True(t, got.ConfirmationTokenExpiresAt.Equal(expires))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_Lookups(t *testing.T) {
	ctx := context.Background()

	t.Run("by email", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("ana@x.com").
			WillReturnRows(confirmedRow(3, "Ana", "ana@x.com"))

		got, err := store.GetUserByEmail(ctx, "ana@x.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.True(t, got.EmailConfirmed)
		assert.Nil(t, got.ConfirmationToken)
		assert.Nil(t, got.ConfirmationTokenExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by token", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE confirmation_token = \$1`).
			WithArgs("tok").
			WillReturnRows(pendingRow(4, "bo@x.com", "tok"))

		got, err := store.GetUserByConfirmationToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.ID)
		assert.True(t, got.HasPendingConfirmation())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing id", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		_, err := store.GetUserByID(ctx, 99)
		require.ErrorIs(t, err, authsystem.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outage", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnError(errors.New("connection reset"))

		_, err := store.GetUserByID(ctx, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, authsystem.ErrRecordNotFound)
		assert.Contains(t, err.Error(), "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_SetConfirmationToken(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "replaced", affected: 1},
		{name: "unknown user", affected: 0, wantErr: authsystem.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, store := newMock(t)
			mock.ExpectExec(`UPDATE users SET confirmation_token = \$2`).
				WithArgs(int64(5), "fresh", expires).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := store.SetConfirmationToken(context.Background(), 5, "fresh", expires)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_MarkEmailConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("matching token", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`UPDATE users\s+SET email_confirmed = TRUE`).
			WithArgs(int64(2), "tok").
			WillReturnRows(confirmedRow(2, "Ana", "ana@x.com"))

		got, err := store.MarkEmailConfirmed(ctx, 2, "tok")
		require.NoError(t, err)
		assert.True(t, got.EmailConfirmed)
		assert.False(t, got.HasPendingConfirmation())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale token", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`UPDATE users\s+SET email_confirmed = TRUE`).
			WithArgs(int64(2), "old").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.MarkEmailConfirmed(ctx, 2, "old")
		require.ErrorIs(t, err, authsystem.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_Updates(t *testing.T) {
	ctx := context.Background()

	t.Run("name", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectQuery(`UPDATE users SET name = \$2 WHERE id = \$1`).
			WithArgs(int64(2), "Bea").
			WillReturnRows(confirmedRow(2, "Bea", "ana@x.com"))

		got, err := store.UpdateName(ctx, 2, "Bea")
		require.NoError(t, err)
		assert.Equal(t, "Bea", got.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("password hash", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2 WHERE id = \$1`).
			WithArgs(int64(2), "new-hash").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.UpdatePasswordHash(ctx, 2, "new-hash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("password hash outage", func(t *testing.T) {
		mock, store := newMock(t)
		mock.ExpectExec(`UPDATE users SET password_hash = \$2 WHERE id = \$1`).
			WithArgs(int64(2), "new-hash").
			WillReturnError(errors.New("timeout"))

		err := store.UpdatePasswordHash(ctx, 2, "new-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, authsystem.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := migrationsFS.ReadFile("migrations/00001_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "UNIQUE (email)")
}
