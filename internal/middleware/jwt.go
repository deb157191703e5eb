package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/httputil"
	"github.com/sentryai/sentry/internal/logging"
)

const issuer = "sentry"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Claims is the payload of an access token.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// WithPrincipal stores the caller in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by JWTMiddleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequirePrincipal is PrincipalFrom for logic that must not run anonymously.
func RequirePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID == "" {
		return Principal{}, apperr.New(apperr.KindUnauthorized, "unauthorized")
	}
	return p, nil
}

// CanAccess reports whether p may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin || p.UserID == ownerID
}

// IssueToken signs an access token for p that expires after ttl.
func IssueToken(secret string, ttl time.Duration, p Principal) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)
	claims := Claims{
		Name:    p.Name,
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken validates an access token and returns its principal.
func ParseToken(secret, token string) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	return Principal{UserID: claims.Subject, Name: claims.Name, Email: claims.Email, IsAdmin: claims.IsAdmin}, nil
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// caller's Principal in the request context.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Unauthorized(w, "missing authorization header")
				return
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				httputil.Unauthorized(w, "invalid authorization header format")
				return
			}

			p, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				logging.Debugf("[auth] rejected token: %v", err)
				httputil.Unauthorized(w, "invalid token")
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logging.NewContext(ctx, "user", p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
