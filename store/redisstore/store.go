package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	authsystem "github.com/MrEthical07/authsystem"
)

// ErrRedisUnavailable wraps every Redis failure that is not a miss or a conflict.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	fieldName           = "name"
	fieldEmail          = "email"
	fieldPasswordHash   = "password_hash"
	fieldCreatedAt      = "created_at"
	fieldEmailConfirmed = "email_confirmed"
	fieldToken          = "confirm_token"
	fieldTokenExpiresAt = "confirm_expires_at"
)

// createUserLua claims the email index, allocates an id and writes the record
// in one step.
// KEYS[1] = email index key, KEYS[2] = id sequence key
// ARGV[1] = user key prefix, ARGV[2] = token key prefix
// ARGV[3..] = name, email, password hash, created_at, token, token expiry
var createUserLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {err='duplicate'}
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[1] .. id,
  'name', ARGV[3],
  'email', ARGV[4],
  'password_hash', ARGV[5],
  'created_at', ARGV[6],
  'email_confirmed', '0',
  'confirm_token', ARGV[7],
  'confirm_expires_at', ARGV[8])
redis.call('SET', KEYS[1], id)
redis.call('SET', ARGV[2] .. ARGV[7], id)
return id
`)

// setTokenLua replaces the outstanding token and its index entry.
// KEYS[1] = user key
// ARGV[1] = token key prefix, ARGV[2] = id, ARGV[3] = token, ARGV[4] = expiry
var setTokenLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
local old = redis.call('HGET', KEYS[1], 'confirm_token')
if old and old ~= '' then
  redis.call('DEL', ARGV[1] .. old)
end
redis.call('HSET', KEYS[1], 'confirm_token', ARGV[3], 'confirm_expires_at', ARGV[4])
redis.call('SET', ARGV[1] .. ARGV[3], ARGV[2])
return 1
`)

// markConfirmedLua confirms only while ARGV[1] is still the outstanding token.
// KEYS[1] = user key, KEYS[2] = token index key
var markConfirmedLua = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'confirm_token')
if not current or current ~= ARGV[1] then
  return {err='not_found'}
end
redis.call('HSET', KEYS[1], 'email_confirmed', '1')
redis.call('HDEL', KEYS[1], 'confirm_token', 'confirm_expires_at')
redis.call('DEL', KEYS[2])
return 1
`)

// updateFieldLua sets one field on an existing record.
// KEYS[1] = user key, ARGV[1] = field, ARGV[2] = value
var updateFieldLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// Store is an authsystem.UserStore over Redis. Records are hashes under
// {prefix}:user:{id}; {prefix}:email:{email} and {prefix}:token:{token} index
// them. Every mutation is one Lua script, so it is atomic on a single node.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store using prefix for every key. An empty prefix uses "as".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKeyPrefix() string        { return s.prefix + ":user:" }
func (s *Store) tokenKeyPrefix() string       { return s.prefix + ":token:" }
func (s *Store) userKey(id int64) string      { return s.userKeyPrefix() + strconv.FormatInt(id, 10) }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *Store) tokenKey(token string) string { return s.tokenKeyPrefix() + token }
func (s *Store) seqKey() string               { return s.prefix + ":user_seq" }

func (s *Store) CreateUser(ctx context.Context, in authsystem.CreateUserInput) (authsystem.UserRecord, error) {
	id, err := createUserLua.Run(ctx, s.redis,
		[]string{s.emailKey(in.Email), s.seqKey()},
		s.userKeyPrefix(),
		s.tokenKeyPrefix(),
		in.Name,
		in.Email,
		in.PasswordHash,
		formatTime(in.CreatedAt),
		in.ConfirmationToken,
		formatTime(in.ConfirmationTokenExpiresAt),
	).Int64()
	if err != nil {
		return authsystem.UserRecord{}, mapScriptError(err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (authsystem.UserRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return authsystem.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	return decodeUser(id, fields)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (authsystem.UserRecord, error) {
	return s.lookup(ctx, s.emailKey(email))
}

func (s *Store) GetUserByConfirmationToken(ctx context.Context, token string) (authsystem.UserRecord, error) {
	rec, err := s.lookup(ctx, s.tokenKey(token))
	if err != nil {
		return authsystem.UserRecord{}, err
	}
	// The index can briefly point at a record whose token was just replaced.
	if rec.ConfirmationToken == nil || *rec.ConfirmationToken != token {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	return rec, nil
}

func (s *Store) lookup(ctx context.Context, indexKey string) (authsystem.UserRecord, error) {
	id, err := s.redis.Get(ctx, indexKey).Int64()
	if errors.Is(err, redis.Nil) {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	if err != nil {
		return authsystem.UserRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) SetConfirmationToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	err := setTokenLua.Run(ctx, s.redis,
		[]string{s.userKey(id)},
		s.tokenKeyPrefix(),
		id,
		token,
		formatTime(expiresAt),
	).Err()
	return mapScriptError(err)
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, id int64, token string) (authsystem.UserRecord, error) {
	err := markConfirmedLua.Run(ctx, s.redis, []string{s.userKey(id), s.tokenKey(token)}, token).Err()
	if err != nil {
		return authsystem.UserRecord{}, mapScriptError(err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) UpdateName(ctx context.Context, id int64, name string) (authsystem.UserRecord, error) {
	if err := s.updateField(ctx, id, fieldName, name); err != nil {
		return authsystem.UserRecord{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.updateField(ctx, id, fieldPasswordHash, hash)
}

func (s *Store) updateField(ctx context.Context, id int64, field, value string) error {
	err := updateFieldLua.Run(ctx, s.redis, []string{s.userKey(id)}, field, value).Err()
	return mapScriptError(err)
}

func mapScriptError(err error) error {
	if err == nil {
		return nil
	}
	switch err.Error() {
	case "duplicate":
		return authsystem.ErrDuplicateEmail
	case "not_found":
		return authsystem.ErrRecordNotFound
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UTC().UnixNano(), 10)
}

func parseTime(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

func decodeUser(id int64, fields map[string]string) (authsystem.UserRecord, error) {
	createdAt, err := parseTime(fields[fieldCreatedAt])
	if err != nil {
		return authsystem.UserRecord{}, fmt.Errorf("%w: corrupt created_at for user %d", ErrRedisUnavailable, id)
	}

	rec := authsystem.UserRecord{
		ID:             id,
		Name:           fields[fieldName],
		Email:          fields[fieldEmail],
		PasswordHash:   fields[fieldPasswordHash],
		CreatedAt:      createdAt,
		EmailConfirmed: fields[fieldEmailConfirmed] == "1",
	}

	token, hasToken := fields[fieldToken]
	rawExpiry, hasExpiry := fields[fieldTokenExpiresAt]
	if hasToken && hasExpiry && token != "" {
		expiresAt, err := parseTime(rawExpiry)
		if err != nil {
			return authsystem.UserRecord{}, fmt.Errorf("%w: corrupt token expiry for user %d", ErrRedisUnavailable, id)
		}
		rec.ConfirmationToken = &token
		rec.ConfirmationTokenExpiresAt = &expiresAt
	}
	return rec, nil
}
