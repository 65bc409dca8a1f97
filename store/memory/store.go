package memory

import (
	"context"
	"sync"
	"time"

	authsystem "github.com/MrEthical07/authsystem"
)

// Store is an in-process authsystem.UserStore. Records live until the process
// exits. Every method holds one mutex, so each call is atomic.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]authsystem.UserRecord
	byEmail map[string]int64
	byToken map[string]int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[int64]authsystem.UserRecord),
		byEmail: make(map[string]int64),
		byToken: make(map[string]int64),
	}
}

func (s *Store) CreateUser(_ context.Context, in authsystem.CreateUserInput) (authsystem.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[in.Email]; taken {
		return authsystem.UserRecord{}, authsystem.ErrDuplicateEmail
	}

	s.nextID++
	token := in.ConfirmationToken
	expires := in.ConfirmationTokenExpiresAt
	rec := authsystem.UserRecord{
		ID:                         s.nextID,
		Name:                       in.Name,
		Email:                      in.Email,
		PasswordHash:               in.PasswordHash,
		CreatedAt:                  in.CreatedAt,
		ConfirmationToken:          &token,
		ConfirmationTokenExpiresAt: &expires,
	}
	s.users[rec.ID] = rec
	s.byEmail[rec.Email] = rec.ID
	s.byToken[token] = rec.ID
	return clone(rec), nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (authsystem.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[id]
	if !ok {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	return clone(rec), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (authsystem.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) GetUserByConfirmationToken(_ context.Context, token string) (authsystem.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) SetConfirmationToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return authsystem.ErrRecordNotFound
	}
	if rec.ConfirmationToken != nil {
		delete(s.byToken, *rec.ConfirmationToken)
	}
	rec.ConfirmationToken = &token
	rec.ConfirmationTokenExpiresAt = &expiresAt
	s.users[id] = rec
	s.byToken[token] = id
	return nil
}

func (s *Store) MarkEmailConfirmed(_ context.Context, id int64, token string) (authsystem.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok || rec.ConfirmationToken == nil || *rec.ConfirmationToken != token {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	delete(s.byToken, token)
	rec.EmailConfirmed = true
	rec.ConfirmationToken = nil
	rec.ConfirmationTokenExpiresAt = nil
	s.users[id] = rec
	return clone(rec), nil
}

func (s *Store) UpdateName(_ context.Context, id int64, name string) (authsystem.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return authsystem.UserRecord{}, authsystem.ErrRecordNotFound
	}
	rec.Name = name
	s.users[id] = rec
	return clone(rec), nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return authsystem.ErrRecordNotFound
	}
	rec.PasswordHash = hash
	s.users[id] = rec
	return nil
}

// clone detaches the token pointers so callers cannot mutate stored state.
func clone(rec authsystem.UserRecord) authsystem.UserRecord {
	if rec.ConfirmationToken != nil {
		token := *rec.ConfirmationToken
		rec.ConfirmationToken = &token
	}
	if rec.ConfirmationTokenExpiresAt != nil {
		expires := *rec.ConfirmationTokenExpiresAt
		rec.ConfirmationTokenExpiresAt = &expires
	}
	return rec
}
