package session

import (
	"net/http"

	"github.com/desertthunder/mdx/internal/identity"
	"github.com/gorilla/sessions"
)

const (
	keyUserID  = "user_id"
	keyArobase = "arobase"
)

// CookieStore keeps the identity in a gorilla/sessions cookie.
type CookieStore struct {
	store *sessions.CookieStore
	name  string
}

// NewCookieStore creates a cookie-backed store. key signs the cookie.
func NewCookieStore(key []byte, opts Options) *CookieStore {
	opts = opts.withDefaults()

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	return &CookieStore{store: store, name: opts.CookieName}
}

// Load reads the identity from the cookie. A tampered or expired cookie is treated as no session.
func (c *CookieStore) Load(r *http.Request) (identity.Identity, bool, error) {
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		return identity.Identity{}, false, nil
	}

	userID, _ := sess.Values[keyUserID].(string)
	handle, _ := sess.Values[keyArobase].(string)
	if userID == "" {
		return identity.Identity{}, false, nil
	}
	return identity.Identity{UserID: userID, Handle: handle}, true, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, id identity.Identity) error {
	sess, _ := c.store.Get(r, c.name)
	sess.Values[keyUserID] = id.UserID
	sess.Values[keyArobase] = id.Handle
	return sess.Save(r, w)
}

func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, c.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
