package main

import (
	"context"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

const (
	sessionKey        = "session"
	flashKey          = "flash"
	sessionCookie     = "pd_session"
	localOperator     = "local"
	levelSuccess      = "success"
	levelError        = "error"
	levelInfo         = "info"
	defaultSessionTTL = 30 * time.Minute
)

type sessionData struct {
	User      *User
	CreatedAt time.Time
}

type notification struct {
	Level   string
	Message string
}

func init() {
	gob.Register(sessionData{})
	gob.Register(notification{})
}

func newSessionManager(ttl time.Duration, secure bool) *scs.SessionManager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	manager := scs.New()
	manager.Store = memstore.New()
	manager.Lifetime = ttl
	manager.Cookie.Name = sessionCookie
	manager.Cookie.Path = "/"
	manager.Cookie.HttpOnly = true
	manager.Cookie.SameSite = http.SameSiteLaxMode
	manager.Cookie.Secure = secure
	return manager
}

func (a *app) createSession(ctx context.Context, u *User) error {
	if err := a.sessions.RenewToken(ctx); err != nil {
		return err
	}
	a.sessions.Put(ctx, sessionKey, sessionData{
		User:      u,
		CreatedAt: time.Now(),
	})
	return nil
}

func (a *app) getSession(ctx context.Context) (sessionData, bool) {
	sess, ok := a.sessions.Get(ctx, sessionKey).(sessionData)
	if !ok || sess.User == nil {
		return sessionData{}, false
	}
	return sess, true
}

func (a *app) destroySession(ctx context.Context) error {
	return a.sessions.Destroy(ctx)
}

// currentUser names the operator behind the request. Without LDAP every
// request belongs to the local operator.
func (a *app) currentUser(ctx context.Context) (string, bool) {
	if a.auth == nil {
		return localOperator, true
	}
	sess, ok := a.getSession(ctx)
	if !ok {
		return "", false
	}
	return sess.User.Name, true
}

// notifier is the presentation port handlers report outcomes through.
type notifier interface {
	Notify(ctx context.Context, level, message string)
}

// flashNotifier keeps one pending notification in the session; a newer one
// replaces it.
type flashNotifier struct {
	sessions *scs.SessionManager
}

func (f flashNotifier) Notify(ctx context.Context, level, message string) {
	f.sessions.Put(ctx, flashKey, notification{Level: level, Message: message})
}

func (a *app) popNotification(ctx context.Context) *notification {
	n, ok := a.sessions.Pop(ctx, flashKey).(notification)
	if !ok {
		return nil
	}
	return &n
}
