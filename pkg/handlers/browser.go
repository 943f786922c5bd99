package handlers

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session value keys.
const (
	browserKeyID        = "browser_id"
	browserKeyFirstSeen = "first_seen"
	browserKeyLastSeen  = "last_seen"
)

// BrowserSessions binds a signed cookie to each browser. The cookie carries
// a stable browser id; once a user authenticates, the flow remembers which
// browser did it and mutations from any other browser are refused.
type BrowserSessions struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewBrowserSessions creates the cookie store. The secret is hashed to a
// consistent 32-byte signing key, so any passphrase works and survives
// restarts.
func NewBrowserSessions(secret, cookieName string, logger *zap.Logger) *BrowserSessions {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &BrowserSessions{store: store, name: cookieName, logger: logger}
}

// Touch stamps the browser cookie on the response and returns the stable
// browser id, minting one on first contact. A cookie that fails signature
// verification is replaced rather than rejected.
func (b *BrowserSessions) Touch(w http.ResponseWriter, r *http.Request) string {
	session, err := b.store.Get(r, b.name)
	if err != nil {
		b.logger.Debug("replacing unreadable browser cookie", zap.Error(err))
		session, _ = b.store.New(r, b.name)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	id, ok := session.Values[browserKeyID].(string)
	if !ok || id == "" {
		id = uuid.NewString()
		session.Values[browserKeyID] = id
		session.Values[browserKeyFirstSeen] = now
	}
	session.Values[browserKeyLastSeen] = now

	if err := session.Save(r, w); err != nil {
		b.logger.Debug("saving browser cookie", zap.Error(err))
	}
	return id
}
