package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/mdx/internal/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps identities in Redis under "session:<token>"; the cookie only holds the token.
type RedisStore struct {
	rdb  *redis.Client
	opts Options
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	return &RedisStore{rdb: rdb, opts: opts.withDefaults()}
}

func (s *RedisStore) Load(r *http.Request) (identity.Identity, bool, error) {
	token, ok := s.token(r)
	if !ok {
		return identity.Identity{}, false, nil
	}

	val, err := s.rdb.Get(r.Context(), keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Identity{}, false, nil
	}
	if err != nil {
		return identity.Identity{}, false, fmt.Errorf("redis get session: %w", err)
	}

	var id identity.Identity
	if err := json.Unmarshal(val, &id); err != nil || id.UserID == "" {
		return identity.Identity{}, false, nil
	}
	return id, true, nil
}

// Save stores id under a fresh token, replacing any session the request already had.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, id identity.Identity) error {
	ctx := r.Context()

	if old, ok := s.token(r); ok {
		if err := s.rdb.Del(ctx, keyPrefix+old).Err(); err != nil {
			return fmt.Errorf("redis delete session: %w", err)
		}
	}

	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	token := uuid.New().String()
	if err := s.rdb.Set(ctx, keyPrefix+token, data, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	http.SetCookie(w, s.cookie(token, int(s.opts.TTL.Seconds())))
	return nil
}

func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if token, ok := s.token(r); ok {
		if err := s.rdb.Del(r.Context(), keyPrefix+token).Err(); err != nil {
			return fmt.Errorf("redis delete session: %w", err)
		}
	}

	http.SetCookie(w, s.cookie("", -1))
	return nil
}

// token returns the session token from the request cookie, if it is a well-formed UUID.
func (s *RedisStore) token(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.opts.CookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func (s *RedisStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
