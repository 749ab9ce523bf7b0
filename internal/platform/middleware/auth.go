package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"unigraph/pkg/domain"
	"unigraph/pkg/requestcontext"
)

// CallerClaims are the claims the gateway issues for tool callers: who is
// asking (sub) and what they are entitled to see (permission).
type CallerClaims struct {
	Permission string `json:"permission"`
	jwt.RegisteredClaims
}

// JWTValidator validates bearer tokens and extracts caller identity.
type JWTValidator interface {
	ValidateToken(tokenString string) (callerID string, perm domain.Permission, err error)
}

// HMACValidator validates HS256 tokens signed with a shared key.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(key string) *HMACValidator {
	return &HMACValidator{key: []byte(key)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (string, domain.Permission, error) {
	claims := &CallerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", "", jwt.ErrTokenInvalidClaims
	}
	perm, err := domain.ParsePermission(claims.Permission)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, perm, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller identity and permission into the request context. Permission travels
// as an explicit parameter from here on; services never infer it.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				unauthorized(w)
				return
			}
			callerID, perm, err := validator.ValidateToken(strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "token rejected",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w)
				return
			}
			ctx := requestcontext.WithCaller(r.Context(), callerID, perm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
