package jwt

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := Config{
		Secret:   testSecret,
		Issuer:   "authsystem",
		Audience: "authsystem-client",
		TTL:      24 * time.Hour,
		Now:      clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, clock
}

func TestIssueValidateRoundTrip(t *testing.T) {
	m, clock := newTestManager(t, nil)

	token, err := m.Issue(Identity{Subject: "42", Name: "Ana", Email: "ana@x.io"}, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", token)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "42" || claims.Name != "Ana" || claims.Email != "ana@x.io" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "authsystem" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "authsystem-client" {
		t.Fatalf("unexpected audience %v", claims.Audience)
	}
	if !claims.ExpiresAt.Time.Equal(clock.now.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h expiry, got %v", claims.ExpiresAt.Time)
	}
	if claims.ID == "" {
		t.Fatal("expected token id")
	}
}

func TestIssueAssignsDistinctTokenIDs(t *testing.T) {
	m, _ := newTestManager(t, nil)
	id := Identity{Subject: "1", Name: "Ana", Email: "ana@x.io"}

	a, err := m.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := m.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens for the same identity")
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if _, err := m.Issue(Identity{Name: "Ana"}, time.Hour); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}
}

func TestValidateRejectsAnyAlteredByte(t *testing.T) {
	m, _ := newTestManager(t, nil)
	token, err := m.Issue(Identity{Subject: "7", Name: "Ana", Email: "ana@x.io"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := m.Validate(tampered)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("byte %d: expected ErrInvalidSignature, got %v", i, err)
		}
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	m, _ := newTestManager(t, nil)
	other, _ := newTestManager(t, func(c *Config) {
		c.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})

	token, err := other.Issue(Identity{Subject: "1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	m, _ := newTestManager(t, nil)

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "authsystem",
		Audience:  gjwt.ClaimStrings{"authsystem-client"},
		ExpiresAt: gjwt.NewNumericDate(time.Unix(1_700_000_000, 0).Add(time.Hour)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Validate(unsigned); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected unsigned token to be malformed, got %v", err)
	}
}

func TestValidateExpiry(t *testing.T) {
	m, clock := newTestManager(t, nil)
	start := clock.now

	token, err := m.Issue(Identity{Subject: "1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = start.Add(time.Hour - time.Second)
	if _, err := m.Validate(token); err != nil {
		t.Fatalf("expected token valid before expiry: %v", err)
	}

	clock.now = start.Add(time.Hour)
	if _, err := m.Validate(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at expiry instant, got %v", err)
	}
}

func TestValidateLeewayExtendsExpiry(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.Leeway = 30 * time.Second })
	start := clock.now

	token, err := m.Issue(Identity{Subject: "1"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = start.Add(time.Minute + 10*time.Second)
	if _, err := m.Validate(token); err != nil {
		t.Fatalf("expected leeway to accept token: %v", err)
	}
	clock.now = start.Add(2 * time.Minute)
	if _, err := m.Validate(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past leeway, got %v", err)
	}
}

func TestValidateIssuerAndAudience(t *testing.T) {
	m, _ := newTestManager(t, nil)

	wrongIssuer, _ := newTestManager(t, func(c *Config) { c.Issuer = "someone-else" })
	token, err := wrongIssuer.Issue(Identity{Subject: "1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}

	wrongAudience, _ := newTestManager(t, func(c *Config) { c.Audience = "mobile" })
	token, err = wrongAudience.Issue(Identity{Subject: "1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestValidateMalformed(t *testing.T) {
	m, _ := newTestManager(t, nil)

	for _, input := range []string{"", "abc", "a.b", "a..c", "a.b.c.d"} {
		if _, err := m.Validate(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", input, err)
		}
	}

	// Correctly signed but the payload is not JSON.
	signing := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." + base64.RawURLEncoding.EncodeToString([]byte("not-json"))
	sig, err := gjwt.SigningMethodHS256.Sign(signing, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	token := signing + "." + base64.RawURLEncoding.EncodeToString(sig)
	if _, err := m.Validate(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for bad payload, got %v", err)
	}
}

func TestValidateRejectsFutureIssuedAt(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.MaxFutureIAT = time.Minute })
	start := clock.now

	clock.now = start.Add(time.Hour)
	token, err := m.Issue(Identity{Subject: "1"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = start
	if _, err := m.Validate(token); err == nil {
		t.Fatal("expected token issued in the future to be rejected")
	}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	base := Config{Secret: testSecret, Issuer: "i", Audience: "a", TTL: time.Hour}

	cases := map[string]func(*Config){
		"short secret":   func(c *Config) { c.Secret = []byte("short") },
		"zero ttl":       func(c *Config) { c.TTL = 0 },
		"blank issuer":   func(c *Config) { c.Issuer = "  " },
		"blank audience": func(c *Config) { c.Audience = "" },
		"huge leeway":    func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestIssueFallsBackToConfiguredTTL(t *testing.T) {
	m, clock := newTestManager(t, func(c *Config) { c.TTL = 90 * time.Minute })
	if m.TTL() != 90*time.Minute {
		t.Fatalf("expected 90m TTL, got %v", m.TTL())
	}

	token, err := m.Issue(Identity{Subject: "7"}, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(clock.now.Add(m.TTL())) {
		t.Fatalf("expected expiry at now+TTL, got %v", claims.ExpiresAt.Time)
	}

	token, err = m.Issue(Identity{Subject: "7"}, 5*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err = m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(clock.now.Add(5 * time.Minute)) {
		t.Fatalf("explicit ttl ignored, got %v", claims.ExpiresAt.Time)
	}
}
