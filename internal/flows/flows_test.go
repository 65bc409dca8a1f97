package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errNotReady    = errors.New("not ready")
	errTaken       = errors.New("taken")
	errUnavailable = errors.New("unavailable")
	errInvalidCred = errors.New("invalid credentials")
	errUnconfirmed = errors.New("unconfirmed")
	errInvalidTok  = errors.New("invalid token")
	errExpiredTok  = errors.New("expired token")
	errConfirmed   = errors.New("already confirmed")
	errNotFound    = errors.New("not found")

	errStoreMiss = errors.New("store: miss")
	errStoreDup  = errors.New("store: duplicate")
)

func baseStore() StoreFuncs {
	return StoreFuncs{
		IsNotFound:    func(err error) bool { return errors.Is(err, errStoreMiss) },
		IsDuplicate:   func(err error) bool { return errors.Is(err, errStoreDup) },
		MapStoreError: func(err error) error { return errUnavailable },
	}
}

func TestRunRegisterMapsStoreUniqueConflict(t *testing.T) {
	store := baseStore()
	store.GetUserByEmail = func(context.Context, string) (User, error) { return User{}, errStoreMiss }
	store.CreateUser = func(context.Context, NewUser) (User, error) { return User{}, errStoreDup }

	enqueued := false
	_, err := RunRegister(context.Background(), RegisterInput{Name: "Ana", Email: "ana@x.io", Password: "Sup3r!Secret"}, RegisterDeps{
		CheckPassword: func(string) error { return nil },
		HashPassword:  func(string) (string, error) { return "hash", nil },
		NewToken:      func() (string, error) { return "tok", nil },
		Enqueue:       func(context.Context, User, string) bool { enqueued = true; return true },
		Store:         store,
		Errors:        RegisterErrors{EngineNotReady: errNotReady, EmailTaken: errTaken, StoreUnavailable: errUnavailable},
	})
	if !errors.Is(err, errTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if enqueued {
		t.Fatal("no notification may be queued for a failed registration")
	}
}

func TestRunRegisterSetsTokenExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var created NewUser
	store := baseStore()
	store.GetUserByEmail = func(context.Context, string) (User, error) { return User{}, errStoreMiss }
	store.CreateUser = func(_ context.Context, in NewUser) (User, error) {
		created = in
		return User{ID: 1, Name: in.Name, Email: in.Email}, nil
	}

	var queuedToken string
	user, err := RunRegister(context.Background(), RegisterInput{Name: "Ana", Email: "ana@x.io", Password: "p"}, RegisterDeps{
		ConfirmationTTL: 24 * time.Hour,
		Now:             func() time.Time { return now },
		CheckPassword:   func(string) error { return nil },
		HashPassword:    func(string) (string, error) { return "hash", nil },
		NewToken:        func() (string, error) { return "tok", nil },
		Enqueue:         func(_ context.Context, _ User, token string) bool { queuedToken = token; return true },
		Store:           store,
		Errors:          RegisterErrors{EngineNotReady: errNotReady, EmailTaken: errTaken, StoreUnavailable: errUnavailable},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("unexpected user %+v", user)
	}
	if !created.ConfirmationTokenExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", created.ConfirmationTokenExpiresAt)
	}
	if created.PasswordHash != "hash" || created.ConfirmationToken != "tok" {
		t.Fatalf("unexpected create payload %+v", created)
	}
	if queuedToken != "tok" {
		t.Fatalf("expected notification with fresh token, got %q", queuedToken)
	}
}

func TestRunLoginSpendsVerificationOnUnknownEmail(t *testing.T) {
	store := baseStore()
	store.GetUserByEmail = func(context.Context, string) (User, error) { return User{}, errStoreMiss }

	dummyCalls := 0
	_, err := RunLogin(context.Background(), LoginInput{Email: "ghost@x.io", Password: "whatever"}, LoginDeps{
		VerifyPassword: func(string, string) bool { t.Fatal("real verify must not run"); return false },
		VerifyDummy:    func(string) { dummyCalls++ },
		IssueSession:   func(context.Context, User) (string, error) { return "", nil },
		Store:          store,
		Errors:         LoginErrors{EngineNotReady: errNotReady, InvalidCredentials: errInvalidCred, EmailNotConfirmed: errUnconfirmed},
	})
	if !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if dummyCalls != 1 {
		t.Fatalf("expected one dummy verification, got %d", dummyCalls)
	}
}

func TestRunLoginUpgradeFailureDoesNotFailLogin(t *testing.T) {
	store := baseStore()
	store.GetUserByEmail = func(context.Context, string) (User, error) {
		return User{ID: 9, Email: "ana@x.io", PasswordHash: "$2a$legacy", EmailConfirmed: true}, nil
	}
	store.UpdatePasswordHash = func(context.Context, int64, string) error { return errors.New("disk full") }

	var upgradeErr error
	session, err := RunLogin(context.Background(), LoginInput{Email: "ana@x.io", Password: "pw"}, LoginDeps{
		UpgradeOnLogin: true,
		VerifyPassword: func(string, string) bool { return true },
		NeedsRehash:    func(string) bool { return true },
		HashPassword:   func(string) (string, error) { return "$argon2id$new", nil },
		IssueSession:   func(context.Context, User) (string, error) { return "session", nil },
		OnUpgradeError: func(_ context.Context, _ User, err error) { upgradeErr = err },
		Store:          store,
		Errors:         LoginErrors{EngineNotReady: errNotReady, InvalidCredentials: errInvalidCred, EmailNotConfirmed: errUnconfirmed},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token != "session" {
		t.Fatalf("unexpected token %q", session.Token)
	}
	if upgradeErr == nil {
		t.Fatal("expected upgrade failure to be reported")
	}
}

func confirmDeps(store StoreFuncs, now time.Time) ConfirmationDeps {
	return ConfirmationDeps{
		ConfirmationTTL: 24 * time.Hour,
		Now:             func() time.Time { return now },
		NewToken:        func() (string, error) { return "fresh", nil },
		IssueSession:    func(context.Context, User) (string, error) { return "session", nil },
		Store:           store,
		Errors: ConfirmationErrors{
			EngineNotReady:   errNotReady,
			InvalidToken:     errInvalidTok,
			ExpiredToken:     errExpiredTok,
			AlreadyConfirmed: errConfirmed,
			StoreUnavailable: errUnavailable,
		},
	}
}

func TestRunConfirmEmailRejectsAtExpiryInstant(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	token := "tok"
	expires := now
	store := baseStore()
	store.GetUserByConfirmationToken = func(context.Context, string) (User, error) {
		return User{ID: 1, ConfirmationToken: &token, ConfirmationTokenExpiresAt: &expires}, nil
	}
	store.MarkEmailConfirmed = func(context.Context, int64, string) (User, error) {
		t.Fatal("expired token must not confirm")
		return User{}, nil
	}

	if _, err := RunConfirmEmail(context.Background(), token, confirmDeps(store, now)); !errors.Is(err, errExpiredTok) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestRunConfirmEmailTokenReplacedConcurrently(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	token := "tok"
	expires := now.Add(time.Hour)
	store := baseStore()
	store.GetUserByConfirmationToken = func(context.Context, string) (User, error) {
		return User{ID: 1, ConfirmationToken: &token, ConfirmationTokenExpiresAt: &expires}, nil
	}
	store.MarkEmailConfirmed = func(context.Context, int64, string) (User, error) { return User{}, errStoreMiss }

	if _, err := RunConfirmEmail(context.Background(), token, confirmDeps(store, now)); !errors.Is(err, errInvalidTok) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRunResendConfirmationUnknownEmailIsQuiet(t *testing.T) {
	store := baseStore()
	store.GetUserByEmail = func(context.Context, string) (User, error) { return User{}, errStoreMiss }
	store.SetConfirmationToken = func(context.Context, int64, string, time.Time) error {
		t.Fatal("unknown email must not write")
		return nil
	}

	outcome, err := RunResendConfirmation(context.Background(), "ghost@x.io", confirmDeps(store, time.Now()))
	if err != nil {
		t.Fatalf("expected generic success, got %v", err)
	}
	if outcome.Known || outcome.Queued {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestRunGetProfileNotFound(t *testing.T) {
	store := baseStore()
	store.GetUserByID = func(context.Context, int64) (User, error) { return User{}, errStoreMiss }

	_, err := RunGetProfile(context.Background(), 5, ProfileDeps{
		Store:  store,
		Errors: ProfileErrors{EngineNotReady: errNotReady, NotFound: errNotFound, StoreUnavailable: errUnavailable},
	})
	if !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFlowsReportNotReadyWithoutStore(t *testing.T) {
	if _, err := RunRegister(context.Background(), RegisterInput{}, RegisterDeps{Errors: RegisterErrors{EngineNotReady: errNotReady}}); !errors.Is(err, errNotReady) {
		t.Fatalf("register: expected not ready, got %v", err)
	}
	if _, err := RunLogin(context.Background(), LoginInput{}, LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}}); !errors.Is(err, errNotReady) {
		t.Fatalf("login: expected not ready, got %v", err)
	}
	if _, err := RunUpdateProfile(context.Background(), 1, "Ana", ProfileDeps{Errors: ProfileErrors{EngineNotReady: errNotReady}}); !errors.Is(err, errNotReady) {
		t.Fatalf("profile: expected not ready, got %v", err)
	}
}
