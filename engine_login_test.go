package authsystem

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestLoginBeforeConfirmation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@x.com", Password: testPassword}); err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := engine.Login(ctx, LoginInput{Email: "ana@x.com", Password: testPassword})
	if !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("expected ErrEmailNotConfirmed, got %v", err)
	}
	if res.Token != "" || res.Message != MsgEmailNotConfirmed {
		t.Fatalf("unexpected result %+v", res)
	}

	// Wrong password on an unconfirmed account is still a credential failure.
	if _, err := engine.Login(ctx, LoginInput{Email: "ana@x.com", Password: "Wr0ng!Passw"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	registerAndConfirm(t, engine, store, "Ana", "ana@x.com")
	ctx := context.Background()

	unknown, unknownErr := engine.Login(ctx, LoginInput{Email: "ghost@x.com", Password: testPassword})
	wrong, wrongErr := engine.Login(ctx, LoginInput{Email: "ana@x.com", Password: "Wr0ng!Passw"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error text differs: %q vs %q", unknownErr, wrongErr)
	}
	if unknown != wrong {
		t.Fatalf("results differ: %+v vs %+v", unknown, wrong)
	}
}

func TestLoginAfterConfirmationIssuesSession(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	registerAndConfirm(t, engine, store, "Ana", "ana@x.com")

	res, err := engine.Login(context.Background(), LoginInput{Email: "ANA@x.com", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Success || res.Message != MsgLoggedIn || res.Token == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	claims, err := engine.ValidateSession(res.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Name != "Ana" || claims.Email != "ana@x.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginUpgradesLegacyBcryptHash(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	store.seed(UserRecord{
		Name:           "Legacy",
		Email:          "legacy@x.com",
		PasswordHash:   string(legacy),
		EmailConfirmed: true,
	})

	if _, err := engine.Login(context.Background(), LoginInput{Email: "legacy@x.com", Password: testPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}

	rec := store.byEmail(t, "legacy@x.com")
	if !strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		t.Fatalf("expected upgraded hash, got %q", rec.PasswordHash)
	}
	if got := engine.MetricsSnapshot().Counters[MetricPasswordUpgraded]; got != 1 {
		t.Fatalf("expected one upgrade, got %d", got)
	}

	// The upgraded hash keeps working.
	if _, err := engine.Login(context.Background(), LoginInput{Email: "legacy@x.com", Password: testPassword}); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestLoginStoreOutage(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	store.failWith(errors.New("timeout"))

	_, err := engine.Login(context.Background(), LoginInput{Email: "ana@x.com", Password: testPassword})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("an outage must not look like bad credentials")
	}
}

func TestLoginMalformedEmailIsInvalidCredentials(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Login(context.Background(), LoginInput{Email: "nope", Password: testPassword})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
