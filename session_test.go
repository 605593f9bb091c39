package main

import (
	"context"
	"testing"
	"time"
)

func commitSession(t *testing.T, a *app, ctx context.Context) string {
	t.Helper()
	token, _, err := a.sessions.Commit(ctx)
	if err != nil {
		t.Fatalf("commit session: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token to be set")
	}
	return token
}

func TestCreateSessionStoresData(t *testing.T) {
	a := newTestApp(t)
	user := &User{Name: "alice", Groups: []string{"operators"}}

	ctx, err := a.sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	start := time.Now()
	if err := a.createSession(ctx, user); err != nil {
		t.Fatalf("create session: %v", err)
	}
	token := commitSession(t, a, ctx)
	end := time.Now()

	loadedCtx, err := a.sessions.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("load committed session: %v", err)
	}
	sess, ok := a.getSession(loadedCtx)
	if !ok {
		t.Fatalf("expected session to be stored")
	}
	if sess.User == nil || sess.User.Name != "alice" || len(sess.User.Groups) != 1 {
		t.Fatalf("unexpected user: %#v", sess.User)
	}
	if sess.CreatedAt.Before(start) || sess.CreatedAt.After(end) {
		t.Fatalf("unexpected CreatedAt: %v", sess.CreatedAt)
	}
}

func TestGetSessionExpired(t *testing.T) {
	a := newTestApp(t)
	a.sessions.Lifetime = 10 * time.Millisecond
	ctx, err := a.sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	a.sessions.Put(ctx, sessionKey, sessionData{
		User:      &User{Name: "tester"},
		CreatedAt: time.Now(),
	})
	token := commitSession(t, a, ctx)
	time.Sleep(20 * time.Millisecond)

	reqCtx, err := a.sessions.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("load request session: %v", err)
	}
	if _, ok := a.getSession(reqCtx); ok {
		t.Fatalf("expected session to be expired")
	}
}

func TestCurrentUserWithoutAuthIsLocalOperator(t *testing.T) {
	a := newTestApp(t)

	user, ok := a.currentUser(context.Background())

	if !ok || user != localOperator {
		t.Fatalf("expected local operator, got %q %t", user, ok)
	}
}

func TestCurrentUserRequiresSessionWithAuth(t *testing.T) {
	a := newTestApp(t)
	a.auth = stubAuthenticator{password: "secret"}
	ctx, err := a.sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	if _, ok := a.currentUser(ctx); ok {
		t.Fatalf("expected no user before login")
	}
	if err := a.createSession(ctx, &User{Name: "bob"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if user, ok := a.currentUser(ctx); !ok || user != "bob" {
		t.Fatalf("expected bob, got %q %t", user, ok)
	}
	if err := a.destroySession(ctx); err != nil {
		t.Fatalf("destroy session: %v", err)
	}
	if _, ok := a.currentUser(ctx); ok {
		t.Fatalf("expected no user after logout")
	}
}

func TestFlashNotificationIsPoppedOnce(t *testing.T) {
	a := newTestApp(t)
	ctx, err := a.sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	a.notify.Notify(ctx, levelInfo, "first")
	a.notify.Notify(ctx, levelSuccess, "second")

	n := a.popNotification(ctx)
	if n == nil || n.Level != levelSuccess || n.Message != "second" {
		t.Fatalf("expected the newest notification, got %#v", n)
	}
	if again := a.popNotification(ctx); again != nil {
		t.Fatalf("expected notification to be consumed, got %#v", again)
	}
}

func TestNewSessionManagerDefaults(t *testing.T) {
	manager := newSessionManager(0, true)

	if manager.Lifetime != defaultSessionTTL {
		t.Fatalf("expected default lifetime, got %v", manager.Lifetime)
	}
	if manager.Cookie.Name != sessionCookie || !manager.Cookie.Secure || !manager.Cookie.HttpOnly {
		t.Fatalf("unexpected cookie settings: %#v", manager.Cookie)
	}
}
