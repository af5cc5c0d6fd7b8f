// Package identity resolves bearer credentials to the employee making a request.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/warp/timesheet-engine/generic"
)

var (
	// ErrUnauthenticated covers missing, malformed, expired or badly signed tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized is returned for a valid token that does not grant access.
	ErrUnauthorized = errors.New("unauthorized")
)

// Identity is the claim set the timesheet core consumes.
type Identity struct {
	EmployeeID  generic.EmployeeID `json:"employeeId"`
	IsAdmin     bool               `json:"isAdmin"`
	DisplayName string             `json:"displayName"`
	ExpiresAt   time.Time          `json:"-"`
}

// ActorName is the name written to activity entries.
func (i Identity) ActorName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return string(i.EmployeeID)
}

// Resolver turns a bearer token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// =============================================================================
// JWT RESOLVER
// =============================================================================

// Config holds HS256 verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// JWTResolver verifies HS256 tokens. Claims: sub (employee id), admin (bool),
// name (display name).
type JWTResolver struct {
	cfg Config
}

func NewJWTResolver(cfg Config) *JWTResolver {
	return &JWTResolver{cfg: cfg}
}

type claims struct {
	Admin bool   `json:"admin"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired()}
	if r.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.cfg.Issuer))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(r.cfg.Secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no employee id", ErrUnauthorized)
	}

	id := Identity{
		EmployeeID:  generic.EmployeeID(c.Subject),
		IsAdmin:     c.Admin,
		DisplayName: c.Name,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id, nil
}

// IssueToken signs a token for id. Used by tests and the CLI.
func IssueToken(cfg Config, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Admin: id.IsAdmin,
		Name:  id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id.EmployeeID),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(cfg.Secret))
}

// =============================================================================
// CACHING RESOLVER
// =============================================================================

// CachingResolver remembers successful resolutions until the token expires
// or ttl passes, whichever is first. Failures are never cached.
type CachingResolver struct {
	next  Resolver
	ttl   time.Duration
	cache *cache.Cache
}

func NewCachingResolver(next Resolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:  next,
		ttl:   ttl,
		cache: cache.New(ttl, time.Minute),
	}
}

func (r *CachingResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if v, ok := r.cache.Get(token); ok {
		return v.(Identity), nil
	}
	id, err := r.next.Resolve(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	ttl := r.ttl
	if !id.ExpiresAt.IsZero() {
		if remaining := time.Until(id.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		r.cache.Set(token, id, ttl)
	}
	return id, nil
}

// =============================================================================
// CONTEXT
// =============================================================================

type contextKey string

const identityKey contextKey = "timesheet-identity"

// WithIdentity stores id on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
