package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/api"
	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChannelID is the id of the WebSocket front-end.
const ChannelID = "web"

// StartCommand is injected when a client connects so it receives the
// catalogue and its history.
const StartCommand = "/start"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Path string `json:"path"`
}

// IncomingMessage is one client frame. Mode, Persona and APIKey are optional
// and switch the session before Text is handled.
type IncomingMessage struct {
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Persona string `json:"persona"`
	APIKey  string `json:"api_key"`
}

type signalFrame struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteMessage(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(messageType, data)
}

type WebChannel struct {
	config      WebConfig
	server      *http.Server
	connections map[string]*SafeConn // ChatID -> connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	return &WebChannel{
		config:      cfg,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return ChannelID
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(c.config.Path, func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})
	return mux
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := net.JoinHostPort(c.config.Host, fmt.Sprint(c.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web listen %s: %w", addr, err)
	}

	c.server = &http.Server{
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Web API listening", "addr", ln.Addr().String(), "path", c.config.Path)

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web API server error", "error", err)
		}
	}()
	return nil
}

func (c *WebChannel) Stop() error {
	c.mu.Lock()
	for id, conn := range c.connections {
		conn.Close()
		delete(c.connections, id)
	}
	c.mu.Unlock()

	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

func (c *WebChannel) conn(session api.SessionContext) (*SafeConn, error) {
	c.mu.RLock()
	conn, ok := c.connections[session.ChatID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("web session %s not connected", session.ChatID)
	}
	return conn, nil
}

// Send writes the reply as one JSON frame.
func (c *WebChannel) Send(session api.SessionContext, reply api.Reply) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendSignal implements the gateway.SignalingChannel interface
func (c *WebChannel) SendSignal(session api.SessionContext, signal string) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	data, err := json.Marshal(signalFrame{Type: "signal", Value: signal})
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}

	// A client may resume a session by passing ?session=<id>.
	chatID := strings.TrimSpace(r.URL.Query().Get("session"))
	if chatID == "" {
		chatID = utils.NewSessionID()
	}

	c.mu.Lock()
	if old, ok := c.connections[chatID]; ok {
		old.Close()
	}
	c.connections[chatID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.connections[chatID] == conn {
			delete(c.connections, chatID)
		}
		c.mu.Unlock()
		conn.Close()
	}()

	session := api.SessionContext{
		ChannelID: ChannelID,
		UserID:    r.RemoteAddr,
		ChatID:    chatID,
		Username:  "WebUser",
	}

	ctx.OnMessage(c.ID(), &api.UnifiedMessage{Session: session, Content: StartCommand})

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		msg := &api.UnifiedMessage{Session: session, Raw: msgBytes}
		var incoming IncomingMessage
		if err := json.Unmarshal(msgBytes, &incoming); err == nil {
			msg.Content = incoming.Text
			msg.Mode = incoming.Mode
			msg.Persona = incoming.Persona
			msg.Credential = incoming.APIKey
		} else {
			// Plain text frames are accepted as-is.
			msg.Content = string(msgBytes)
		}

		ctx.OnMessage(c.ID(), msg)
	}
}
