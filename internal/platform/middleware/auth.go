package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "xftledger/pkg/domain"
	dErrors "xftledger/pkg/domain-errors"
	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// TokenValidator validates an API bearer token and returns the actor
// address it was issued to.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.Address, error)
}

// KeyVerifier checks an operator API key secret against its stored hash.
type KeyVerifier interface {
	Verify(ctx context.Context, account id.Address, secret string) error
}

// JWTValidator validates HMAC-signed bearer tokens whose subject is the
// actor's ledger address.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (id.Address, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token has no subject: %w", err)
	}
	actor, err := id.ParseAddress(subject)
	if err != nil {
		return "", fmt.Errorf("token subject is not an address: %w", err)
	}
	return actor, nil
}

// IssueToken mints a token for an actor address; used by admin tooling and
// tests.
func IssueToken(signingKey string, actor id.Address) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": actor.String(),
	})
	return token.SignedString([]byte(signingKey))
}

// RequireAuth authenticates the request and stores the actor address in the
// request context. Mutating routes mount this; reads stay open. Requests
// carrying an X-API-Key header in "address:secret" form authenticate
// against the key verifier instead of the bearer token.
func RequireAuth(validator TokenValidator, keys KeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && keys != nil {
				account, secret, found := strings.Cut(apiKey, ":")
				actor, err := id.ParseAddress(account)
				if !found || err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed API key"))
					return
				}
				if err := keys.Verify(ctx, actor, secret); err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid api key",
						"account", actor,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid API key"))
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
				return
			}
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}
			actor, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}
