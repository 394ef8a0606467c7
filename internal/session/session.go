package session

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

const (
	DefaultCookieName = "DRMS_SESSION"
	DefaultLifetime   = time.Hour
)

// Options configures the session manager
type Options struct {
	CookieName string
	Lifetime   time.Duration
	// Secure marks the cookie HTTPS-only
	Secure bool
}

// New creates a session manager over store. A nil store keeps sessions in memory.
func New(store scs.Store, opts Options) *scs.SessionManager {
	sm := scs.New()
	if store != nil {
		sm.Store = store
	}

	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}

	sm.Lifetime = opts.Lifetime
	sm.Cookie.Name = opts.CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = opts.Secure

	return sm
}
