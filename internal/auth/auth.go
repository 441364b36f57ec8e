// Package auth resolves the caller's identity from a bearer token and the
// anonymous session cart cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	SessionCookie    = "sessionCartId"
	SessionHeader    = "X-Session-Cart-Id"
	sessionCookieTTL = 30 * 24 * time.Hour
	maxSessionIDLen  = 128
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Authenticator struct {
	secret       []byte
	secureCookie bool
	now          func() time.Time
}

func NewAuthenticator(secret string, secureCookie bool) *Authenticator {
	return &Authenticator{
		secret:       []byte(secret),
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

// IssueToken signs an HS256 token whose subject is userID.
func (a *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates tokenString and returns its subject.
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware attaches an Identity to every request. A bad bearer token is
// treated as no token. Requests without a session id get a new one in a
// cookie.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id Identity

		if tokenString, ok := bearerToken(r); ok {
			userID, err := a.ParseToken(tokenString)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring bearer token")
			} else {
				id.UserID = userID
			}
		}

		id.SessionCartID = sessionID(r)
		if id.SessionCartID == "" {
			id.SessionCartID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id.SessionCartID,
				Path:     "/",
				Expires:  a.now().Add(sessionCookieTTL),
				MaxAge:   int(sessionCookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   a.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionID(r *http.Request) string {
	if v := validSessionID(r.Header.Get(SessionHeader)); v != "" {
		return v
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return validSessionID(c.Value)
	}
	return ""
}

func validSessionID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxSessionIDLen {
		return ""
	}
	return v
}
