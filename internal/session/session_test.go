package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/mdx/internal/identity"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/redis/go-redis/v9"
)

var alice = identity.Identity{UserID: "user-1", Handle: "@alice"}

// roundTrip saves id with store and returns a new request carrying the resulting cookies.
func roundTrip(t *testing.T, store Store, id identity.Identity) *http.Request {
	t.Helper()

	rec := httptest.NewRecorder()
	if err := store.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), id); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/check_session", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb, Options{CookieName: "sid", TTL: time.Hour}), mr
}

func TestCookieStore(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	t.Run("SaveAndLoad", func(t *testing.T) {
		store := NewCookieStore(key, Options{})
		req := roundTrip(t, store, alice)

		got, ok, err := store.Load(req)
		if err != nil || !ok {
			t.Fatalf("expected session, got ok=%v err=%v", ok, err)
		}
		if got != alice {
			t.Errorf("expected %+v, got %+v", alice, got)
		}
	})

	t.Run("NoCookie", func(t *testing.T) {
		store := NewCookieStore(key, Options{})

		_, ok, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil || ok {
			t.Errorf("expected no session, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("ForeignKeyRejected", func(t *testing.T) {
		req := roundTrip(t, NewCookieStore(key, Options{}), alice)
		other := NewCookieStore([]byte("ffffffffffffffffffffffffffffffff"), Options{})

		_, ok, err := other.Load(req)
		if err != nil || ok {
			t.Errorf("cookie signed with another key must not load, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewCookieStore(key, Options{CookieName: "custom"})
		req := roundTrip(t, store, alice)

		rec := httptest.NewRecorder()
		if err := store.Clear(rec, req); err != nil {
			t.Fatalf("clear failed: %v", err)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "custom" || cookies[0].MaxAge >= 0 {
			t.Fatalf("expected an expiring custom cookie, got %+v", cookies)
		}
	})

	t.Run("CookieAttributes", func(t *testing.T) {
		store := NewCookieStore(key, Options{Secure: true, TTL: time.Hour})

		rec := httptest.NewRecorder()
		if err := store.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), alice); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("expected 1 cookie, got %d", len(cookies))
		}
		c := cookies[0]
		if c.Name != "mdx_session" || !c.HttpOnly || !c.Secure || c.MaxAge != 3600 {
			t.Errorf("unexpected cookie attributes: %+v", c)
		}
	})
}

func TestRedisStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		store, mr := newRedisStore(t)
		req := roundTrip(t, store, alice)

		got, ok, err := store.Load(req)
		if err != nil || !ok {
			t.Fatalf("expected session, got ok=%v err=%v", ok, err)
		}
		if got != alice {
			t.Errorf("expected %+v, got %+v", alice, got)
		}

		keys := mr.Keys()
		if len(keys) != 1 {
			t.Fatalf("expected 1 session key, got %v", keys)
		}
		if ttl := mr.TTL(keys[0]); ttl != time.Hour {
			t.Errorf("expected 1h TTL, got %s", ttl)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		store, mr := newRedisStore(t)
		req := roundTrip(t, store, alice)

		mr.FastForward(2 * time.Hour)

		if _, ok, err := store.Load(req); err != nil || ok {
			t.Errorf("expected expired session, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store, mr := newRedisStore(t)
		req := roundTrip(t, store, alice)

		rec := httptest.NewRecorder()
		if err := store.Clear(rec, req); err != nil {
			t.Fatalf("clear failed: %v", err)
		}

		if keys := mr.Keys(); len(keys) != 0 {
			t.Errorf("expected session key deleted, got %v", keys)
		}
		if _, ok, _ := store.Load(req); ok {
			t.Error("cleared session should not load")
		}
	})

	t.Run("SaveReplacesOldToken", func(t *testing.T) {
		store, mr := newRedisStore(t)
		req := roundTrip(t, store, alice)

		rec := httptest.NewRecorder()
		if err := store.Save(rec, req, identity.Identity{UserID: "user-2", Handle: "@bob"}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if keys := mr.Keys(); len(keys) != 1 {
			t.Errorf("expected old session removed, got %v", keys)
		}
	})

	t.Run("MalformedToken", func(t *testing.T) {
		store, _ := newRedisStore(t)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "*"})

		if _, ok, err := store.Load(req); err != nil || ok {
			t.Errorf("expected no session, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("BackendDown", func(t *testing.T) {
		store, mr := newRedisStore(t)
		req := roundTrip(t, store, alice)
		mr.Close()

		if _, _, err := store.Load(req); err == nil {
			t.Error("expected error when redis is unreachable")
		}
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Cookie", func(t *testing.T) {
		store, closer, err := New(ctx, shared.SessionConfig{Backend: "cookie", Secret: "s3cret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer closer()

		if _, ok := store.(*CookieStore); !ok {
			t.Errorf("expected *CookieStore, got %T", store)
		}
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		cfg := shared.SessionConfig{Backend: "redis"}
		cfg.Redis.Addr = mr.Addr()

		store, closer, err := New(ctx, cfg)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer closer()

		if _, ok := store.(*RedisStore); !ok {
			t.Errorf("expected *RedisStore, got %T", store)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, closer, err := New(ctx, shared.SessionConfig{Backend: "memcached"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if closer == nil {
			t.Error("closer must never be nil")
		}
	})
}

func TestContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), alice)

	got, ok := FromContext(ctx)
	if !ok || got != alice {
		t.Errorf("expected %+v, got %+v (%v)", alice, got, ok)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no identity")
	}
	if _, ok := FromContext(WithIdentity(context.Background(), identity.Identity{})); ok {
		t.Error("an identity without user id should not count")
	}
}
