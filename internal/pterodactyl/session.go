package pterodactyl

import "context"

// ClientSession exposes the operations of the client API only.
type ClientSession struct {
	c *Client
}

// NewClientSession returns a session bound to the client API.
func NewClientSession(baseURL, key string, opts ...Option) (*ClientSession, error) {
	c, err := New(baseURL, key, ModeClient, opts...)
	if err != nil {
		return nil, err
	}
	return &ClientSession{c: c}, nil
}

func (s *ClientSession) Client() *Client { return s.c }

func (s *ClientSession) ListServers(ctx context.Context) ([]Server, error) {
	return s.c.listServers(ctx)
}

func (s *ClientSession) ServerResources(ctx context.Context, identifier string) (*ResourceUsage, error) {
	return s.c.serverResources(ctx, identifier)
}

// ApplicationSession exposes the operations of the application API only.
type ApplicationSession struct {
	c *Client
}

// NewApplicationSession returns a session bound to the application API.
func NewApplicationSession(baseURL, key string, opts ...Option) (*ApplicationSession, error) {
	c, err := New(baseURL, key, ModeApplication, opts...)
	if err != nil {
		return nil, err
	}
	return &ApplicationSession{c: c}, nil
}

func (s *ApplicationSession) Client() *Client { return s.c }

func (s *ApplicationSession) CreateServer(ctx context.Context, payload CreateServerRequest) (*Server, error) {
	return s.c.createServer(ctx, payload)
}

func (s *ApplicationSession) ListNodes(ctx context.Context) ([]Node, error) {
	return s.c.listNodes(ctx)
}
