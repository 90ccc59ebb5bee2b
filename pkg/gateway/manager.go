package gateway

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ohtakaisei/ronpaou/pkg/monitor"
)

// GatewayManager owns the registered channels and routes traffic between them
// and the message handler.
type GatewayManager struct {
	channels   map[string]Channel
	msgHandler MessageHandler
	monitor    monitor.Monitor
	inflight   sync.WaitGroup
	mu         sync.RWMutex
}

func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]Channel),
	}
}

// SetMessageHandler sets the core processing logic.
func (g *GatewayManager) SetMessageHandler(handler MessageHandler) {
	g.mu.Lock()
	g.msgHandler = handler
	g.mu.Unlock()
}

func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

func (g *GatewayManager) Register(c Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

func (g *GatewayManager) GetChannel(id string) (Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts every registered channel with the manager as its context.
func (g *GatewayManager) StartAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every channel and waits for in-flight messages to finish.
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	for id, c := range g.channels {
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
	g.mu.RUnlock()

	g.inflight.Wait()
	if g.monitor != nil {
		g.monitor.Stop()
	}
}

// SendReply delivers a reply through the session's channel.
func (g *GatewayManager) SendReply(session SessionContext, reply Reply) error {
	slog.Debug("Gateway reply", "channel", session.ChannelID, "user", session.Username, "kind", reply.Kind)
	g.mirror(monitor.TypeAssistant, session, reply.Text)

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.Send(session, reply)
}

// SendSignal forwards a control signal. Channels without signal support
// ignore it silently.
func (g *GatewayManager) SendSignal(session SessionContext, signal string) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	if sc, ok := c.(SignalingChannel); ok {
		slog.Debug("Gateway signal", "channel", session.ChannelID, "user", session.Username, "signal", signal)
		return sc.SendSignal(session, signal)
	}
	return nil
}

// OnMessage implements ChannelContext. The handler runs on its own goroutine
// so a slow turn never blocks a channel's receive loop.
func (g *GatewayManager) OnMessage(channelID string, msg *UnifiedMessage) {
	slog.Info("Gateway received", "channel", channelID, "user", msg.Session.Username, "user_id", msg.Session.UserID)
	g.mirror(monitor.TypeUser, msg.Session, redactCredential(msg.Content))

	g.mu.RLock()
	handler := g.msgHandler
	g.mu.RUnlock()
	if handler == nil {
		slog.Warn("No message handler set", "channel", channelID)
		return
	}

	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		handler(msg)
	}()
}

// Mirror forwards one line of traffic to the monitor.
func (g *GatewayManager) Mirror(kind string, session SessionContext, content string) {
	g.mirror(kind, session, content)
}

func (g *GatewayManager) mirror(kind string, session SessionContext, content string) {
	if g.monitor == nil || content == "" {
		return
	}
	g.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: kind,
		ChannelID:   session.ChannelID,
		Username:    session.Username,
		Content:     content,
	})
}

// redactCredential masks the argument of a /key command so API keys never
// reach the monitor.
func redactCredential(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return content
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	if cmd != "/key" || len(fields) == 1 {
		return content
	}
	return fields[0] + " ***"
}
