package gateway

import (
	"github.com/ohtakaisei/ronpaou/pkg/api"
)

// Re-export types from api package so channel and handler code can depend on
// gateway alone.
type Channel = api.Channel
type SignalingChannel = api.SignalingChannel
type MessageResponder = api.MessageResponder
type ChannelContext = api.ChannelContext
type UnifiedMessage = api.UnifiedMessage
type SessionContext = api.SessionContext
type Reply = api.Reply

// MessageHandler processes one standardized incoming message.
type MessageHandler = api.MessageHandler
