package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/davrk/authkit"
	"github.com/davrk/authkit/rbac"
)

type verifyResultContextKey struct{}

// VerifyResultFromContext returns the verification result injected by
// [Authenticate] or [Require], reporting whether one is present.
func VerifyResultFromContext(ctx context.Context) (authkit.VerifyResult, bool) {
	res, ok := ctx.Value(verifyResultContextKey{}).(authkit.VerifyResult)
	return res, ok
}

// Authenticate verifies the bearer token and injects the result into the
// request context. Missing, expired, and malformed tokens get 401.
func Authenticate(svc *authkit.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res := svc.VerifyToken(r.Context(), token)
			if !res.Authenticated {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), verifyResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require authenticates and then evaluates the requirement set against the
// token's principal. Valid tokens that fail the requirement get 403.
func Require(svc *authkit.Service, req rbac.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res := svc.VerifyToken(r.Context(), token)
			if !res.Authenticated {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := svc.Evaluate(res, req); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), verifyResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
