package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/pterodactyl"
	"github.com/define42/pterodash/internal/settings"
)

const (
	stateUnconfigured = "unconfigured"
	stateNoClientKey  = "no-client-key"
	stateError        = "error"
	stateEmpty        = "empty"
	stateServers      = "servers"
)

type dashboardView struct {
	T            *messages
	User         string
	AuthEnabled  bool
	Notification *notification
	Settings     settings.Settings
	Masked       settings.Settings
	Revision     string
	CanCreate    bool
	State        string
	StateMessage string
	Servers      []serverCard
}

type serverCard struct {
	Identifier  string
	Name        string
	Description string
	Status      string
	Online      bool
	Node        string
	CPU         int
	Memory      int
	Disk        int
}

func newServerCard(s pterodactyl.Server, msgs *messages) serverCard {
	description := s.Description
	if strings.TrimSpace(description) == "" {
		description = msgs.NoDescription
	}
	return serverCard{
		Identifier:  s.Identifier,
		Name:        s.Name,
		Description: description,
		Status:      s.Status.Display(),
		Online:      s.Status.Online(),
		Node:        string(s.Node),
		CPU:         s.Limits.CPU,
		Memory:      s.Limits.Memory,
		Disk:        s.Limits.Disk,
	}
}

func extractCredentials(r *http.Request) (string, string, bool, error) {
	username, password, ok := r.BasicAuth()
	if ok && username != "" && password != "" {
		return username, password, true, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", false, err
	}
	username = strings.TrimSpace(r.FormValue("username"))
	password = r.FormValue("password")
	if username == "" || password == "" {
		return username, password, false, nil
	}
	return username, password, true, nil
}

func (a *app) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.currentUser(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin refuses state-changing requests a browser marks as coming from
// another site. Clients that send neither header (CLI tools, curl) pass.
func sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !isSameOrigin(r) {
			http.Error(w, "cross-site request refused", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.serveLogin(w, r, "")
	case http.MethodPost:
		a.handleLoginPost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	msgs := a.messages(r)
	username, password, ok, err := extractCredentials(r)
	if err != nil {
		a.serveLogin(w, r, msgs.InvalidForm)
		return
	}
	if !ok {
		a.serveLogin(w, r, msgs.MissingCredentials)
		return
	}

	user, err := a.auth.Authenticate(username, password)
	if err != nil {
		a.log.Info("ldap auth failed", zap.String("user", username), zap.Error(err))
		a.serveLogin(w, r, msgs.InvalidCredentials)
		return
	}

	if err := a.createSession(r.Context(), user); err != nil {
		a.log.Error("session create failed", zap.String("user", username), zap.Error(err))
		a.serveLogin(w, r, msgs.LoginFailed)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *app) serveLogin(w http.ResponseWriter, r *http.Request, message string) {
	a.renderHTML(w, loginTemplate, struct {
		T     *messages
		Error string
	}{T: a.messages(r), Error: message})
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.destroySession(r.Context()); err != nil {
		a.log.Warn("session destroy failed", zap.Error(err))
	}
	if a.auth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgs := a.messages(r)
	user, _ := a.currentUser(ctx)
	view := dashboardView{
		T:            msgs,
		User:         user,
		AuthEnabled:  a.auth != nil,
		Notification: a.popNotification(ctx),
	}

	store, err := a.storeFor(ctx, user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		view.State, view.StateMessage = stateError, msgs.SettingsUnavailable
		a.renderHTML(w, dashboardTemplate, view)
		return
	}

	current := store.Settings()
	view.Settings = current
	view.Masked = current.Masked()
	view.Revision = store.Revision()
	view.CanCreate = current.IsConfigured() && current.ApplicationAPIKey != ""
	view.State, view.StateMessage, view.Servers = a.loadServers(ctx, current, msgs)
	if view.State == stateError && view.Notification == nil {
		view.Notification = &notification{Level: levelError, Message: view.StateMessage}
	}
	a.renderHTML(w, dashboardTemplate, view)
}

// loadServers never touches the network unless a client key is stored.
func (a *app) loadServers(ctx context.Context, current settings.Settings, msgs *messages) (string, string, []serverCard) {
	session, err := current.ClientSession(a.panelOptions()...)
	switch {
	case errors.Is(err, settings.ErrNotConfigured):
		return stateUnconfigured, msgs.NotConfigured, nil
	case errors.Is(err, settings.ErrNoClientKey):
		return stateNoClientKey, msgs.ClientKeyRequired, nil
	case err != nil:
		a.log.Error("build client session failed", zap.Error(err))
		return stateError, msgs.LoadServersFailed, nil
	}

	servers, err := session.ListServers(ctx)
	if err != nil {
		a.log.Warn("failed to load servers", zap.Int("status", pterodactyl.StatusCode(err)), zap.Error(err))
		return stateError, msgs.LoadServersFailed, nil
	}
	if len(servers) == 0 {
		return stateEmpty, msgs.NoServers, nil
	}
	cards := make([]serverCard, 0, len(servers))
	for _, s := range servers {
		cards = append(cards, newServerCard(s, msgs))
	}
	return stateServers, "", cards
}

func (a *app) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgs := a.messages(r)
	defer http.Redirect(w, r, "/", http.StatusSeeOther)

	if err := r.ParseForm(); err != nil {
		a.notify.Notify(ctx, levelError, msgs.InvalidForm)
		return
	}
	user, _ := a.currentUser(ctx)
	store, err := a.storeFor(ctx, user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		a.notify.Notify(ctx, levelError, msgs.SettingsUnavailable)
		return
	}

	next := settingsFromForm(r.PostForm, store.Settings())
	switch err := store.Save(ctx, next); {
	case err == nil:
		a.log.Info("settings saved", zap.String("key", store.Key()), zap.String("revision", store.Revision()))
		a.notify.Notify(ctx, levelSuccess, msgs.SettingsSaved)
	case errors.Is(err, settings.ErrPanelURLRequired):
		a.notify.Notify(ctx, levelError, msgs.PanelURLRequired)
	case errors.Is(err, settings.ErrAPIKeyRequired):
		a.notify.Notify(ctx, levelError, msgs.APIKeyRequired)
	default:
		a.log.Error("settings save failed", zap.String("key", store.Key()), zap.Error(err))
		a.notify.Notify(ctx, levelError, msgs.SettingsUnavailable)
	}
}

// settingsFromForm reads the settings form. Key inputs are never prefilled,
// so a blank key keeps the stored one unless its clear box is ticked. Stored
// keys never follow a change of panel URL; they must be entered again.
func settingsFromForm(form url.Values, current settings.Settings) settings.Settings {
	panelURL := strings.TrimSpace(form.Get("panelUrl"))
	if panelURL != current.PanelURL {
		current.ClientAPIKey, current.ApplicationAPIKey = "", ""
	}
	return settings.Settings{
		PanelURL:          panelURL,
		ClientAPIKey:      keyFromForm(form, "clientApiKey", "clearClientApiKey", current.ClientAPIKey),
		ApplicationAPIKey: keyFromForm(form, "applicationApiKey", "clearApplicationApiKey", current.ApplicationAPIKey),
	}
}

func keyFromForm(form url.Values, field, clearField, current string) string {
	if form.Get(clearField) != "" {
		return ""
	}
	if v := strings.TrimSpace(form.Get(field)); v != "" {
		return v
	}
	return current
}

type formError struct {
	Field string
	Err   error
}

func (e *formError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *formError) Unwrap() error { return e.Err }

func parseCreateForm(form url.Values) (pterodactyl.CreateServerRequest, error) {
	req := pterodactyl.CreateServerRequest{
		Name:        strings.TrimSpace(form.Get("name")),
		Description: strings.TrimSpace(form.Get("description")),
		DockerImage: strings.TrimSpace(form.Get("image")),
		Startup:     strings.TrimSpace(form.Get("startup")),
	}

	required := []struct {
		field string
		dst   *int
	}{
		{"limits[cpu]", &req.Limits.CPU},
		{"limits[memory]", &req.Limits.Memory},
		{"limits[disk]", &req.Limits.Disk},
		{"egg", &req.Egg},
	}
	for _, f := range required {
		v, err := strconv.Atoi(strings.TrimSpace(form.Get(f.field)))
		if err != nil {
			return pterodactyl.CreateServerRequest{}, &formError{Field: f.field, Err: err}
		}
		*f.dst = v
	}

	if raw := strings.TrimSpace(form.Get("user")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return pterodactyl.CreateServerRequest{}, &formError{Field: "user", Err: err}
		}
		req.User = v
	}
	if raw := strings.TrimSpace(form.Get("allocation")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return pterodactyl.CreateServerRequest{}, &formError{Field: "allocation", Err: err}
		}
		req.Allocation = &pterodactyl.Allocation{Default: v}
	}
	return req, nil
}

func (a *app) handleServerCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	msgs := a.messages(r)
	defer http.Redirect(w, r, "/", http.StatusSeeOther)

	user, _ := a.currentUser(ctx)
	store, err := a.storeFor(ctx, user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		a.notify.Notify(ctx, levelError, msgs.SettingsUnavailable)
		return
	}
	session, err := store.Settings().ApplicationSession(a.panelOptions()...)
	if err != nil {
		a.notify.Notify(ctx, levelError, msgs.CreateNeedsAppKey)
		return
	}

	if err := r.ParseForm(); err != nil {
		a.notify.Notify(ctx, levelError, msgs.InvalidForm)
		return
	}
	payload, err := parseCreateForm(r.PostForm)
	if err != nil {
		var fe *formError
		if errors.As(err, &fe) {
			a.notify.Notify(ctx, levelError, fmt.Sprintf(msgs.InvalidNumber, fe.Field))
		} else {
			a.notify.Notify(ctx, levelError, msgs.InvalidForm)
		}
		return
	}

	created, err := session.CreateServer(ctx, payload)
	if err != nil {
		a.log.Warn("failed to create server", zap.String("name", payload.Name), zap.Int("status", pterodactyl.StatusCode(err)), zap.Error(err))
		a.notify.Notify(ctx, levelError, msgs.CreateFailed)
		return
	}
	a.log.Info("server created", zap.String("name", created.Name), zap.String("identifier", created.Identifier))
	a.notify.Notify(ctx, levelSuccess, msgs.ServerCreated)
}

func (a *app) handleManage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identifier := chi.URLParam(r, "identifier")
	user, _ := a.currentUser(ctx)
	store, err := a.storeFor(ctx, user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		a.notify.Notify(ctx, levelError, a.messages(r).SettingsUnavailable)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	current := store.Settings()
	if current.PanelURL == "" {
		a.notify.Notify(ctx, levelInfo, a.messages(r).NotConfigured)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, current.ServerURL(url.PathEscape(identifier)), http.StatusFound)
}

func (a *app) renderHTML(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		a.log.Error("render failed", zap.String("template", tmpl.Name()), zap.Error(err))
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

const (
	cacheControlValue = "no-store, no-cache, must-revalidate, max-age=0"
	pragmaValue       = "no-cache"
	expiresValue      = "0"
)

func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", cacheControlValue)
	w.Header().Set("Pragma", pragmaValue)
	w.Header().Set("Expires", expiresValue)
}
