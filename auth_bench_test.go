package authsystem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func BenchmarkValidateSession(b *testing.B) {
	engine, token := newBenchmarkSession(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.ValidateSession(token); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkValidateSessionParallel(b *testing.B) {
	engine, token := newBenchmarkSession(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.ValidateSession(token); err != nil {
				b.Errorf("validate failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkLogin(b *testing.B) {
	engine, _ := newBenchmarkSession(b)
	in := LoginInput{Email: "bench@example.com", Password: testPassword}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Login(context.Background(), in); err != nil {
			b.Fatalf("login failed: %v", err)
		}
	}
}

func BenchmarkLoginUnknownEmail(b *testing.B) {
	engine, _ := newBenchmarkSession(b)
	in := LoginInput{Email: "ghost@example.com", Password: testPassword}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Login(context.Background(), in); err == nil {
			b.Fatal("expected invalid credentials")
		}
	}
}

func BenchmarkRegister(b *testing.B) {
	engine := newBenchmarkEngine(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := engine.Register(context.Background(), RegisterInput{
			Name:     "Bench",
			Email:    fmt.Sprintf("bench-%d@example.com", i),
			Password: testPassword,
		})
		if err != nil {
			b.Fatalf("register failed: %v", err)
		}
	}
}

func newBenchmarkEngine(b *testing.B) *Engine {
	b.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithUserStore(newFakeUserStore()).
		WithNotifier(&fakeNotifier{}).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		b.Fatalf("build failed: %v", err)
	}
	b.Cleanup(engine.Close)
	return engine
}

// newBenchmarkSession registers and confirms bench@example.com and returns the
// session token issued on confirmation.
func newBenchmarkSession(b *testing.B) (*Engine, string) {
	b.Helper()
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	if _, err := engine.Register(ctx, RegisterInput{Name: "Bench", Email: "bench@example.com", Password: testPassword}); err != nil {
		b.Fatalf("register failed: %v", err)
	}
	rec, err := engine.store.GetUserByEmail(ctx, "bench@example.com")
	if err != nil || rec.ConfirmationToken == nil {
		b.Fatalf("lookup failed: %v", err)
	}
	res, err := engine.ConfirmEmail(ctx, *rec.ConfirmationToken)
	if err != nil {
		b.Fatalf("confirm failed: %v", err)
	}
	return engine, res.Token
}
