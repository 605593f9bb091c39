package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/pterodactyl"
	"github.com/define42/pterodash/internal/settings"
)

type userContextKey struct{}

func (a *app) registerAPI(api huma.API) {
	group := huma.NewGroup(api, "/api")
	group.UseMiddleware(a.sessionMiddleware(api))

	huma.Get(group, "/settings", a.apiGetSettings)
	huma.Put(group, "/settings", a.apiPutSettings)
	huma.Get(group, "/servers", a.apiListServers)
	huma.Get(group, "/servers/{identifier}/resources", a.apiServerResources)
	huma.Register(group, huma.Operation{
		OperationID:   "create-server",
		Method:        http.MethodPost,
		Path:          "/servers",
		Summary:       "Create a server through the application API",
		DefaultStatus: http.StatusCreated,
	}, a.apiCreateServer)
	huma.Get(group, "/nodes", a.apiListNodes)
}

func (a *app) sessionMiddleware(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humachi.Unwrap(ctx)
		user, ok := a.currentUser(req.Context())
		if !ok {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(huma.WithValue(ctx, userContextKey{}, user))
	}
}

func (a *app) storeFromContext(ctx context.Context) (*settings.Store, error) {
	user, ok := ctx.Value(userContextKey{}).(string)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	store, err := a.storeFor(ctx, user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		return nil, huma.Error500InternalServerError("stored settings could not be read")
	}
	return store, nil
}

// panelError is the single place panel and settings failures become HTTP
// statuses.
func (a *app) panelError(op string, err error) error {
	a.log.Warn("panel operation failed", zap.String("op", op), zap.Error(err))

	var statusErr *pterodactyl.StatusError
	switch {
	case errors.Is(err, settings.ErrNotConfigured):
		return huma.Error409Conflict("panel connection is not configured")
	case errors.Is(err, settings.ErrNoClientKey):
		return huma.Error409Conflict("a client api key is required")
	case errors.Is(err, settings.ErrNoApplicationKey):
		return huma.Error409Conflict("an application api key is required")
	case errors.Is(err, pterodactyl.ErrDecode):
		return huma.Error502BadGateway("panel returned a malformed response")
	case errors.As(err, &statusErr):
		return huma.Error502BadGateway(fmt.Sprintf("panel responded with status %d", statusErr.Status))
	case errors.Is(err, pterodactyl.ErrTransport):
		return huma.Error502BadGateway("panel unavailable")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

type settingsPayload struct {
	PanelURL          string `json:"panelUrl" doc:"Base URL of the panel"`
	ClientAPIKey      string `json:"clientApiKey" doc:"Masked client API key"`
	ApplicationAPIKey string `json:"applicationApiKey" doc:"Masked application API key"`
	Configured        bool   `json:"configured"`
	Revision          string `json:"revision" doc:"Changes whenever the stored settings change"`
}

type settingsOutput struct {
	Body settingsPayload
}

func settingsResponse(store *settings.Store) *settingsOutput {
	current := store.Settings()
	masked := current.Masked()
	return &settingsOutput{
		Body: settingsPayload{
			PanelURL:          masked.PanelURL,
			ClientAPIKey:      masked.ClientAPIKey,
			ApplicationAPIKey: masked.ApplicationAPIKey,
			Configured:        current.IsConfigured(),
			Revision:          store.Revision(),
		},
	}
}

func (a *app) apiGetSettings(ctx context.Context, _ *struct{}) (*settingsOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return settingsResponse(store), nil
}

type settingsInput struct {
	Body struct {
		PanelURL          string `json:"panelUrl"`
		ClientAPIKey      string `json:"clientApiKey,omitempty"`
		ApplicationAPIKey string `json:"applicationApiKey,omitempty"`
	}
}

// apiPutSettings replaces the stored settings wholesale.
func (a *app) apiPutSettings(ctx context.Context, input *settingsInput) (*settingsOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	err = store.Save(ctx, settings.Settings{
		PanelURL:          input.Body.PanelURL,
		ClientAPIKey:      input.Body.ClientAPIKey,
		ApplicationAPIKey: input.Body.ApplicationAPIKey,
	})
	switch {
	case errors.Is(err, settings.ErrPanelURLRequired):
		return nil, huma.Error422UnprocessableEntity(messagesEN.PanelURLRequired)
	case errors.Is(err, settings.ErrAPIKeyRequired):
		return nil, huma.Error422UnprocessableEntity(messagesEN.APIKeyRequired)
	case err != nil:
		a.log.Error("settings save failed", zap.String("key", store.Key()), zap.Error(err))
		return nil, huma.Error500InternalServerError("settings could not be saved")
	}
	return settingsResponse(store), nil
}

type serversOutput struct {
	Body struct {
		Servers []pterodactyl.Server `json:"servers"`
	}
}

func (a *app) apiListServers(ctx context.Context, _ *struct{}) (*serversOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	session, err := store.Settings().ClientSession(a.panelOptions()...)
	if err != nil {
		return nil, a.panelError("list-servers", err)
	}
	servers, err := session.ListServers(ctx)
	if err != nil {
		return nil, a.panelError("list-servers", err)
	}
	out := &serversOutput{}
	out.Body.Servers = servers
	return out, nil
}

type resourcesInput struct {
	Identifier string `path:"identifier" minLength:"1"`
}

type resourcesOutput struct {
	Body *pterodactyl.ResourceUsage
}

func (a *app) apiServerResources(ctx context.Context, input *resourcesInput) (*resourcesOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	session, err := store.Settings().ClientSession(a.panelOptions()...)
	if err != nil {
		return nil, a.panelError("server-resources", err)
	}
	usage, err := session.ServerResources(ctx, input.Identifier)
	if err != nil {
		return nil, a.panelError("server-resources", err)
	}
	return &resourcesOutput{Body: usage}, nil
}

type createLimits struct {
	CPU    int `json:"cpu" minimum:"0"`
	Memory int `json:"memory" minimum:"0"`
	Disk   int `json:"disk" minimum:"0"`
	Swap   int `json:"swap,omitempty"`
	IO     int `json:"io,omitempty"`
}

type createServerInput struct {
	Body struct {
		Name        string            `json:"name" minLength:"1"`
		Description string            `json:"description,omitempty"`
		User        int               `json:"user,omitempty"`
		Egg         int               `json:"egg" minimum:"1"`
		DockerImage string            `json:"docker_image" minLength:"1"`
		Startup     string            `json:"startup" minLength:"1"`
		Environment map[string]string `json:"environment,omitempty"`
		Limits      createLimits      `json:"limits"`
		Allocation  int               `json:"allocation,omitempty"`
	}
}

type createServerOutput struct {
	Body *pterodactyl.Server
}

func (a *app) apiCreateServer(ctx context.Context, input *createServerInput) (*createServerOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	session, err := store.Settings().ApplicationSession(a.panelOptions()...)
	if err != nil {
		return nil, a.panelError("create-server", err)
	}

	body := input.Body
	payload := pterodactyl.CreateServerRequest{
		Name:        body.Name,
		Description: body.Description,
		User:        body.User,
		Egg:         body.Egg,
		DockerImage: body.DockerImage,
		Startup:     body.Startup,
		Environment: body.Environment,
		Limits: pterodactyl.Limits{
			CPU:    body.Limits.CPU,
			Memory: body.Limits.Memory,
			Disk:   body.Limits.Disk,
			Swap:   body.Limits.Swap,
			IO:     body.Limits.IO,
		},
	}
	if body.Allocation != 0 {
		payload.Allocation = &pterodactyl.Allocation{Default: body.Allocation}
	}

	created, err := session.CreateServer(ctx, payload)
	if err != nil {
		return nil, a.panelError("create-server", err)
	}
	return &createServerOutput{Body: created}, nil
}

type nodesOutput struct {
	Body struct {
		Nodes []pterodactyl.Node `json:"nodes"`
	}
}

func (a *app) apiListNodes(ctx context.Context, _ *struct{}) (*nodesOutput, error) {
	store, err := a.storeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	session, err := store.Settings().ApplicationSession(a.panelOptions()...)
	if err != nil {
		return nil, a.panelError("list-nodes", err)
	}
	nodes, err := session.ListNodes(ctx)
	if err != nil {
		return nil, a.panelError("list-nodes", err)
	}
	out := &nodesOutput{}
	out.Body.Nodes = nodes
	return out, nil
}
