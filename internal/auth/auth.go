package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
	// ErrNilSubject rejects the nil user id, which services reserve for
	// internal system calls.
	ErrNilSubject = errors.New("subject must not be the nil user id")
)

const userKey = "auth.user"

type ctxKey struct{}

// User is the authenticated caller.
type User struct {
	ID   uuid.UUID
	Name string
}

// Claims represents the authorization claims transmitted via a JWT. The
// subject carries the user ID.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(u User) (string, error) {
	if u.ID == uuid.Nil {
		return "", ErrNilSubject
	}
	now := t.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    t.issuer,
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
		Name: u.Name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Parse(raw string) (User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyIssuer(t.issuer, true) {
		return User{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return User{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if id == uuid.Nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, ErrNilSubject)
	}
	return User{ID: id, Name: claims.Name}, nil
}

// FromRequest authenticates an Authorization: Bearer header, falling back to
// a token query parameter for websocket clients that cannot set headers.
func (t *Tokens) FromRequest(r *http.Request) (User, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return User{}, ErrMissingToken
	}
	return t.Parse(strings.TrimSpace(raw))
}

// Middleware rejects unauthenticated requests with 401 and stores the caller
// on both the gin and request contexts.
func Middleware(t *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := t.FromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
			return
		}
		c.Set(userKey, u)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the authenticated caller. A stored user with the nil id
// is never reported: services read the nil id as the internal system caller.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	if !ok || u.ID == uuid.Nil {
		return User{}, false
	}
	return u, true
}

// RequireUser returns the caller or aborts the request with 401.
func RequireUser(c *gin.Context) (User, bool) {
	u, ok := FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return User{}, false
	}
	return u, true
}

// UserFrom returns the caller stored by Middleware.
func UserFrom(c *gin.Context) (User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	if !ok || u.ID == uuid.Nil {
		return User{}, false
	}
	return u, true
}
