package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tradematch/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Principal is the authenticated caller resolved from the session token.
type Principal struct {
	UserID        string
	Email         string
	EmailVerified bool
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// SessionClaims are the claims of a user session token. Subject is the user id.
type SessionClaims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing token")

// AuthManager validates HS256 session tokens issued by the identity service.
type AuthManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthManager(secret, issuer string) *AuthManager {
	return &AuthManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Mint issues a session token. Used by seeding and tests; production tokens
// come from the identity service.
func (a *AuthManager) Mint(userID, email string, emailVerified bool, ttl time.Duration) (string, error) {
	now := a.now()
	claims := SessionClaims{
		Email:         email,
		EmailVerified: emailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*SessionClaims, error) {
	// Authorization: Bearer <jwt>
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errMissingToken
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Authenticate rejects requests without a valid session with 401 and stores
// the Principal in the request context.
func (a *AuthManager) Authenticate(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				if !errors.Is(err, errMissingToken) {
					logging.With(r.Context(), logger).Debug().Err(err).Msg("session rejected")
				}
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
				return
			}
			ctx := WithPrincipal(r.Context(), Principal{
				UserID:        claims.Subject,
				Email:         claims.Email,
				EmailVerified: claims.EmailVerified,
			})
			ctx = logging.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerifiedEmail answers 403 EMAIL_NOT_VERIFIED for unverified sessions
// when enabled.
func RequireVerifiedEmail(enabled bool) Middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
				return
			}
			if !p.EmailVerified {
				WriteError(w, http.StatusForbidden, CodeEmailNotVerified, "email address must be verified")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
