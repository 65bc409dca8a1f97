package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/store/sqlite"
	"github.com/MrEthical07/authsystem/store/storetest"
)

func newStore(t *testing.T) authsystem.UserStore {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlite.Migrate(ctx, db))
	return sqlite.New(db)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlite.Migrate(ctx, db))
	require.NoError(t, sqlite.Migrate(ctx, db))
}

func TestTimestampsSurviveRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

	user, err := s.CreateUser(ctx, authsystem.CreateUserInput{
		Name:                       "Ana",
		Email:                      "ana@x.com",
		PasswordHash:               "hash",
		CreatedAt:                  created,
		ConfirmationToken:          "tok",
		ConfirmationTokenExpiresAt: created.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.ConfirmationTokenExpiresAt)
	assert.True(t, got.ConfirmationTokenExpiresAt.Equal(created.Add(24*time.Hour)))
}
