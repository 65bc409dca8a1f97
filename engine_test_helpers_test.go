package authsystem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

const testPassword = "Sup3r!Secret"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("test-secret-test-secret-test-sec")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32
	cfg.Notification.QueueSize = 16
	cfg.Notification.Workers = 1
	cfg.Notification.SendTimeout = time.Second
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeUserStore is an in-memory UserStore with the same uniqueness and
// conditional-confirm semantics the real backends provide.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]UserRecord

	// err, when set, is returned by every call.
	err error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]UserRecord)}
}

func (s *fakeUserStore) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeUserStore) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	for _, u := range s.users {
		if u.Email == in.Email {
			return UserRecord{}, fmt.Errorf("insert: %w", ErrDuplicateEmail)
		}
	}
	s.nextID++
	token := in.ConfirmationToken
	expires := in.ConfirmationTokenExpiresAt
	u := UserRecord{
		ID:                         s.nextID,
		Name:                       in.Name,
		Email:                      in.Email,
		PasswordHash:               in.PasswordHash,
		CreatedAt:                  in.CreatedAt,
		ConfirmationToken:          &token,
		ConfirmationTokenExpiresAt: &expires,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id int64) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return UserRecord{}, ErrRecordNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, ErrRecordNotFound
}

func (s *fakeUserStore) GetUserByConfirmationToken(_ context.Context, token string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	for _, u := range s.users {
		if u.ConfirmationToken != nil && *u.ConfirmationToken == token {
			return u, nil
		}
	}
	return UserRecord{}, ErrRecordNotFound
}

func (s *fakeUserStore) SetConfirmationToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	u.ConfirmationToken = &token
	u.ConfirmationTokenExpiresAt = &expiresAt
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) MarkEmailConfirmed(_ context.Context, id int64, token string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	u, ok := s.users[id]
	if !ok || u.ConfirmationToken == nil || *u.ConfirmationToken != token {
		return UserRecord{}, ErrRecordNotFound
	}
	u.EmailConfirmed = true
	u.ConfirmationToken = nil
	u.ConfirmationTokenExpiresAt = nil
	s.users[id] = u
	return u, nil
}

func (s *fakeUserStore) UpdateName(_ context.Context, id int64, name string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserRecord{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return UserRecord{}, ErrRecordNotFound
	}
	u.Name = name
	s.users[id] = u
	return u, nil
}

func (s *fakeUserStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

// seed inserts a record directly, bypassing Register.
func (s *fakeUserStore) seed(u UserRecord) UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	return u
}

func (s *fakeUserStore) byEmail(t *testing.T, email string) UserRecord {
	t.Helper()
	u, err := s.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	return u
}

func (s *fakeUserStore) tokenFor(t *testing.T, email string) string {
	t.Helper()
	u := s.byEmail(t, email)
	if u.ConfirmationToken == nil {
		t.Fatalf("%s has no outstanding confirmation token", email)
	}
	return *u.ConfirmationToken
}

type sentNotification struct {
	kind  string
	email string
	name  string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) NotifyConfirmation(_ context.Context, email, name, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: "confirmation", email: email, name: name, token: token})
	return n.err
}

func (n *fakeNotifier) NotifyPasswordReset(_ context.Context, email, name, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: "password_reset", email: email, name: name, token: token})
	return n.err
}

func (n *fakeNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentNotification, len(n.sent))
	copy(out, n.sent)
	return out
}

// waitFor polls until want notifications for email arrived.
func (n *fakeNotifier) waitFor(t *testing.T, email string, want int) []sentNotification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var matched []sentNotification
		for _, s := range n.all() {
			if strings.EqualFold(s.email, email) {
				matched = append(matched, s)
			}
		}
		if len(matched) >= want {
			return matched
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d notifications for %s, got %d", want, email, len(matched))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, opts ...engineOption) (*Engine, *fakeUserStore, *fakeNotifier) {
	t.Helper()

	store := newFakeUserStore()
	notifier := &fakeNotifier{}

	b := New().
		WithConfig(testConfig()).
		WithUserStore(store).
		WithNotifier(notifier)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store, notifier
}

func registerAndConfirm(t *testing.T, engine *Engine, store *fakeUserStore, name, email string) Result {
	t.Helper()
	ctx := context.Background()
	if _, err := engine.Register(ctx, RegisterInput{Name: name, Email: email, Password: testPassword}); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	res, err := engine.ConfirmEmail(ctx, store.tokenFor(t, email))
	if err != nil {
		t.Fatalf("confirm %s: %v", email, err)
	}
	return res
}
