package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
	"github.com/define42/pterodash/internal/pterodactyl"
	"github.com/define42/pterodash/internal/settings"
)

// app holds everything the HTTP handlers share. One settings store is kept
// per operator and followed for external changes until ctx ends.
type app struct {
	ctx        context.Context
	cfg        *config.Config
	log        *zap.Logger
	backend    settings.Backend
	sessions   *scs.SessionManager
	notify     notifier
	auth       authenticator
	hub        *hub
	httpClient *http.Client
	staticDir  string

	mu     sync.Mutex
	stores map[string]*settings.Store
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, backend settings.Backend) *app {
	secure := cfg.Server.TLS.Enabled || cfg.Server.TLS.ACME.Enabled
	sessions := newSessionManager(cfg.Server.SessionTTL, secure)
	a := &app{
		ctx:        ctx,
		cfg:        cfg,
		log:        log,
		backend:    backend,
		sessions:   sessions,
		notify:     flashNotifier{sessions: sessions},
		hub:        newHub(log),
		httpClient: &http.Client{},
		staticDir:  cfg.Server.StaticDir,
		stores:     make(map[string]*settings.Store),
	}
	if a.staticDir == "" {
		a.staticDir = resolveStaticDir()
	}
	if cfg.LDAP.Enabled() {
		a.auth = newLDAPAuthenticator(cfg.LDAP, log)
	}
	return a
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (settings.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return settings.NewMemoryBackend(), nil
	case "sqlite":
		return settings.OpenSQLite(cfg.Path, cfg.WatchInterval)
	case "redis":
		return settings.OpenRedis(ctx, settings.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// storeKey namespaces the slot per operator once logins are in play.
func storeKey(base, user string, perUser bool) string {
	if base == "" {
		base = settings.DefaultKey
	}
	if !perUser || user == "" {
		return base
	}
	return base + ":" + user
}

func (a *app) storeFor(ctx context.Context, user string) (*settings.Store, error) {
	key := storeKey(a.cfg.Store.Key, user, a.auth != nil)

	a.mu.Lock()
	defer a.mu.Unlock()
	if store, ok := a.stores[key]; ok {
		return store, nil
	}

	store := settings.NewStore(a.backend, key)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	changes, err := store.Watch(a.ctx)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", key, err)
	}
	a.stores[key] = store
	go a.followChanges(user, store, changes)
	return store, nil
}

// followChanges reloads the store whenever its slot changes and tells the
// operator's open dashboards which revision is now current.
func (a *app) followChanges(user string, store *settings.Store, changes <-chan struct{}) {
	for range changes {
		if err := store.Load(a.ctx); err != nil {
			a.log.Warn("reload settings failed", zap.String("key", store.Key()), zap.Error(err))
			continue
		}
		a.log.Debug("settings changed", zap.String("key", store.Key()), zap.String("revision", store.Revision()))
		a.hub.broadcast(user, event{Type: eventSettingsChanged, Revision: store.Revision()})
	}
}

func (a *app) panelOptions() []pterodactyl.Option {
	return []pterodactyl.Option{
		pterodactyl.WithHTTPClient(a.httpClient),
		pterodactyl.WithLogger(a.log),
	}
}
