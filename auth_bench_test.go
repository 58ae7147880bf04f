package authkit

import (
	"context"
	"testing"

	"github.com/davrk/authkit/provider"
)

func newBenchService(b *testing.B) (*Service, *AuthResult) {
	b.Helper()

	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.SaltRounds = 4
	cfg.Audit.Enabled = false

	svc, err := New().
		WithConfig(cfg).
		WithUserRepository(provider.NewMemoryRepository()).
		Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.Cleanup(svc.Close)

	res, err := svc.Register(context.Background(), Registration{
		Email:    "bench@example.com",
		Password: "Bench-Pass-9!",
	})
	if err != nil {
		b.Fatalf("register: %v", err)
	}
	return svc, res
}

func BenchmarkVerifyToken(b *testing.B) {
	svc, res := newBenchService(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if out := svc.VerifyToken(ctx, res.AccessToken); !out.Authenticated {
			b.Fatal("token rejected")
		}
	}
}

func BenchmarkVerifyTokenParallel(b *testing.B) {
	svc, res := newBenchService(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if out := svc.VerifyToken(ctx, res.AccessToken); !out.Authenticated {
				b.Fatal("token rejected")
			}
		}
	})
}

func BenchmarkLogin(b *testing.B) {
	svc, _ := newBenchService(b)
	ctx := context.Background()
	creds := Credentials{Email: "bench@example.com", Password: "Bench-Pass-9!"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Login(ctx, creds); err != nil {
			b.Fatalf("login: %v", err)
		}
	}
}

func BenchmarkRefreshSession(b *testing.B) {
	svc, res := newBenchService(b)
	ctx := context.Background()

	refresh := res.RefreshToken
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, err := svc.RefreshSession(ctx, refresh)
		if err != nil {
			b.Fatalf("refresh: %v", err)
		}
		refresh = out.RefreshToken
	}
}
