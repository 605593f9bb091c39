package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventSettingsChanged = "settings-changed"

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 16
)

type event struct {
	Type     string `json:"type"`
	Revision string `json:"revision,omitempty"`
}

type wsClient struct {
	id   string
	user string
	conn *websocket.Conn
	send chan []byte
	hub  *hub
}

// hub fans events out to the dashboards an operator has open.
type hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[string]*wsClient
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		log:     log,
		clients: make(map[string]map[string]*wsClient),
	}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID := h.clients[c.user]
	if byID == nil {
		byID = make(map[string]*wsClient)
		h.clients[c.user] = byID
	}
	byID[c.id] = c
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID := h.clients[c.user]
	if _, ok := byID[c.id]; !ok {
		return
	}
	delete(byID, c.id)
	close(c.send)
	if len(byID) == 0 {
		delete(h.clients, c.user)
	}
}

func (h *hub) count(user string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[user])
}

// broadcast never blocks; a client whose buffer is full misses the event.
func (h *hub) broadcast(user string, ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode event failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients[user] {
		select {
		case c.send <- data:
		default:
			h.log.Debug("dropping event for slow client", zap.String("client", c.id))
		}
	}
}

// sessionContext loads the scs session by hand: the websocket route sits
// outside LoadAndSave because its writer cannot be hijacked.
func (a *app) sessionContext(r *http.Request) (context.Context, error) {
	token := ""
	if cookie, err := r.Cookie(a.sessions.Cookie.Name); err == nil {
		token = cookie.Value
	}
	return a.sessions.Load(r.Context(), token)
}

func (a *app) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx, err := a.sessionContext(r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	user, ok := a.currentUser(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	store, err := a.storeFor(r.Context(), user)
	if err != nil {
		a.log.Error("open settings failed", zap.String("user", user), zap.Error(err))
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := a.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		user: user,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		hub:  a.hub,
	}
	a.hub.register(client)
	a.log.Debug("events client connected", zap.String("user", user), zap.String("client", client.id))

	// The page compares this against the revision it was rendered with.
	if data, err := json.Marshal(event{Type: eventSettingsChanged, Revision: store.Revision()}); err == nil {
		client.send <- data
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the peer going away.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("events client read failed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
