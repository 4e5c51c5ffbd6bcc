// package session maps HTTP requests to the signed-in [identity.Identity].
//
// Two backends exist: [CookieStore] keeps the identity in a signed, encrypted cookie;
// [RedisStore] keeps it server-side under an opaque token. Handlers never touch either
// directly; the server middleware loads the identity into the request context.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mdx/internal/identity"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/redis/go-redis/v9"
)

// Store loads, saves and clears the identity attached to a request.
type Store interface {
	// Load returns the request's identity. ok is false when there is no valid session.
	Load(r *http.Request) (id identity.Identity, ok bool, err error)

	// Save starts a session for id, writing whatever cookie the backend needs.
	Save(w http.ResponseWriter, r *http.Request, id identity.Identity) error

	// Clear ends the request's session. Clearing without a session is not an error.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Options are the cookie settings shared by both backends.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = "mdx_session"
	}
	if o.TTL <= 0 {
		o.TTL = 7 * 24 * time.Hour
	}
	return o
}

// New builds the store selected by cfg.Backend.
//
// The returned closer releases backend connections and is never nil.
func New(ctx context.Context, cfg shared.SessionConfig) (Store, func() error, error) {
	opts := Options{CookieName: cfg.CookieName, TTL: cfg.TTL.Duration, Secure: cfg.Secure}
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "cookie":
		key, err := secretKey(cfg.Secret)
		if err != nil {
			return nil, noop, err
		}
		return NewCookieStore(key, opts), noop, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisStore(rdb, opts), rdb.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// secretKey derives a 32-byte signing key from secret, or generates a random one when it is empty.
func secretKey(secret string) ([]byte, error) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		return key, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by [WithIdentity].
func FromContext(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(identity.Identity)
	return id, ok && id.UserID != ""
}
