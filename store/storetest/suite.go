// Package storetest is the behavioral contract every authsystem.UserStore must
// satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsystem "github.com/MrEthical07/authsystem"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) authsystem.UserStore

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var seq atomic.Int64

func input(email string) authsystem.CreateUserInput {
	n := seq.Add(1)
	return authsystem.CreateUserInput{
		Name:                       "Ana",
		Email:                      email,
		PasswordHash:               "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		CreatedAt:                  base,
		ConfirmationToken:          fmt.Sprintf("token-%d", n),
		ConfirmationTokenExpiresAt: base.Add(24 * time.Hour),
	}
}

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndLookup", func(t *testing.T) { testCreateAndLookup(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("ConcurrentCreateSingleWinner", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("SetConfirmationTokenReplaces", func(t *testing.T) { testSetToken(t, newStore(t)) })
	t.Run("MarkEmailConfirmedConditional", func(t *testing.T) { testMarkConfirmed(t, newStore(t)) })
	t.Run("UpdateNameAndHash", func(t *testing.T) { testUpdates(t, newStore(t)) })
}

func testCreateAndLookup(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()
	in := input("ana@x.com")

	created, err := s.CreateUser(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "ana@x.com", created.Email)
	assert.False(t, created.EmailConfirmed)
	require.True(t, created.HasPendingConfirmation())
	assert.Equal(t, in.ConfirmationToken, *created.ConfirmationToken)
	assert.True(t, in.ConfirmationTokenExpiresAt.Equal(*created.ConfirmationTokenExpiresAt))
	assert.True(t, base.Equal(created.CreatedAt))

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, in.PasswordHash, byID.PasswordHash)

	byEmail, err := s.GetUserByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byToken, err := s.GetUserByConfirmationToken(ctx, in.ConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)

	other, err := s.CreateUser(ctx, input("bo@x.com"))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func testDuplicateEmail(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()

	_, err := s.CreateUser(ctx, input("ana@x.com"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, input("ana@x.com"))
	assert.True(t, errors.Is(err, authsystem.ErrDuplicateEmail), "got %v", err)
}

func testConcurrentCreate(t *testing.T, s authsystem.UserStore) {
	const attempts = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		dups atomic.Int32
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		in := input("race@x.com")
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(context.Background(), in)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, authsystem.ErrDuplicateEmail):
				dups.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(attempts-1), dups.Load())
}

func testMissing(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, 4242)
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)
	_, err = s.GetUserByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)
	_, err = s.GetUserByConfirmationToken(ctx, "nope")
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)
	_, err = s.UpdateName(ctx, 4242, "Ghost")
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)
	assert.ErrorIs(t, s.SetConfirmationToken(ctx, 4242, "t", base), authsystem.ErrRecordNotFound)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, 4242, "h"), authsystem.ErrRecordNotFound)
}

func testSetToken(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()
	in := input("ana@x.com")
	created, err := s.CreateUser(ctx, in)
	require.NoError(t, err)

	expires := base.Add(48 * time.Hour)
	require.NoError(t, s.SetConfirmationToken(ctx, created.ID, "fresh-token", expires))

	_, err = s.GetUserByConfirmationToken(ctx, in.ConfirmationToken)
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound, "old token must stop resolving")

	rec, err := s.GetUserByConfirmationToken(ctx, "fresh-token")
	require.NoError(t, err)
	assert.Equal(t, created.ID, rec.ID)
	require.NotNil(t, rec.ConfirmationTokenExpiresAt)
	assert.True(t, expires.Equal(*rec.ConfirmationTokenExpiresAt))
}

func testMarkConfirmed(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()
	in := input("ana@x.com")
	created, err := s.CreateUser(ctx, in)
	require.NoError(t, err)

	_, err = s.MarkEmailConfirmed(ctx, created.ID, "wrong-token")
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)

	confirmed, err := s.MarkEmailConfirmed(ctx, created.ID, in.ConfirmationToken)
	require.NoError(t, err)
	assert.True(t, confirmed.EmailConfirmed)
	assert.Nil(t, confirmed.ConfirmationToken)
	assert.Nil(t, confirmed.ConfirmationTokenExpiresAt)

	_, err = s.MarkEmailConfirmed(ctx, created.ID, in.ConfirmationToken)
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound, "a token confirms once")

	_, err = s.GetUserByConfirmationToken(ctx, in.ConfirmationToken)
	assert.ErrorIs(t, err, authsystem.ErrRecordNotFound)

	rec, err := s.GetUserByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.True(t, rec.EmailConfirmed)
	assert.False(t, rec.HasPendingConfirmation())
}

func testUpdates(t *testing.T, s authsystem.UserStore) {
	ctx := context.Background()
	created, err := s.CreateUser(ctx, input("ana@x.com"))
	require.NoError(t, err)

	renamed, err := s.UpdateName(ctx, created.ID, "Ana Maria")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", renamed.Name)
	assert.Equal(t, "ana@x.com", renamed.Email)

	require.NoError(t, s.UpdatePasswordHash(ctx, created.ID, "$argon2id$new"))
	rec, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", rec.PasswordHash)
	assert.Equal(t, "Ana Maria", rec.Name)
}
