package main

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/define42/pterodash/internal/logger"
)

func (a *app) router() http.Handler {
	_ = mime.AddExtensionType(".js", "application/javascript")

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(logger.Middleware(a.log))

	router.Handle("/static/*", a.staticHandler())
	// Outside LoadAndSave: the upgrade needs the raw connection.
	router.Get("/events", a.handleEvents)

	router.Group(func(r chi.Router) {
		r.Use(sameOrigin)
		r.Use(a.sessions.LoadAndSave)
		r.HandleFunc("/login", a.handleLogin)
		r.HandleFunc("/logout", a.handleLogout)

		api := humachi.New(r, huma.DefaultConfig("pterodash", version))
		a.registerAPI(api)

		r.Group(func(r chi.Router) {
			r.Use(a.requireLogin)
			r.Get("/", a.handleDashboard)
			r.Post("/settings", a.handleSettingsSave)
			r.Post("/servers", a.handleServerCreate)
			r.Get("/servers/{identifier}/manage", a.handleManage)
		})
	})

	return router
}

func (a *app) staticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.Dir(a.staticDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/static/")
		if strings.HasSuffix(path, ".js") {
			w.Header().Set("Content-Type", "application/javascript")
		}
		setNoCacheHeaders(w)
		files.ServeHTTP(w, r)
	})
}

func resolveStaticDir() string {
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "static")
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return dir
		}
	}
	return "./static"
}
