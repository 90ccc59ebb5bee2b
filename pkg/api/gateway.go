package api

// Signals understood by SignalingChannel implementations.
const (
	SignalThinking = "thinking"
	SignalDone     = "done"
)

// Channel defines the standardized lifecycle interface for communication platforms.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	Send(session SessionContext, reply Reply) error
}

// SignalingChannel is an optional extension of the Channel interface for
// platforms that support control signals (e.g., typing indicators, thinking UI).
type SignalingChannel interface {
	Channel
	SendSignal(session SessionContext, signal string) error
}

// ChannelContext provides the interface for a Channel implementation to
// communicate back with the Gateway core.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
}

// MessageResponder defines the capabilities for sending responses back to a channel.
type MessageResponder interface {
	SendReply(session SessionContext, reply Reply) error
	SendSignal(session SessionContext, signal string) error
}

// UnifiedMessage is the channel-independent form of one incoming message.
type UnifiedMessage struct {
	Session SessionContext
	// Content is the raw user text, including slash commands.
	Content string
	// Mode and Persona optionally switch the session before Content is handled.
	Mode    string
	Persona string
	// Credential optionally sets the session's backend API key.
	Credential string
	// Raw keeps the original platform payload.
	Raw any
	// TraceID groups the log lines of one turn.
	TraceID string
}

// SessionContext encapsulates identity and routing information for a specific
// conversation unit on a specific communication channel.
type SessionContext struct {
	ChannelID string // Identifier of the originating channel (e.g., "telegram")
	UserID    string // Platform-specific unique identifier for the user
	ChatID    string // Platform-specific identifier for the chat (may match UserID for DMs)
	Username  string // Display name as provided by the platform
}

// Key identifies the session across channels.
func (s SessionContext) Key() string {
	return s.ChannelID + ":" + s.ChatID
}

// MessageHandler defines the function signature for processing incoming messages.
type MessageHandler func(*UnifiedMessage)

// OnMessage allows MessageHandler to satisfy the MessageProcessor interface.
func (h MessageHandler) OnMessage(msg *UnifiedMessage) {
	h(msg)
}

// MessageProcessor defines the interface for components that can process incoming messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}

// ResponderAware defines an interface for components that require a MessageResponder to be injected.
type ResponderAware interface {
	SetResponder(responder MessageResponder)
}

// GatewayHandler is a composite interface for components that handle incoming
// messages AND are aware of the responder (e.g., ChatHandler).
type GatewayHandler interface {
	MessageProcessor
	ResponderAware
}
