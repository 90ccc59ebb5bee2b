package monitor

import "time"

// Message types mirrored to a Monitor.
const (
	TypeUser      = "USER"
	TypeAssistant = "ASSISTANT"
	TypeStep      = "STEP"
	TypeError     = "ERROR"
)

// MonitorMessage is one line of traffic shown by a monitor.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string
	ChannelID   string
	Username    string
	Content     string
}

// Monitor observes all traffic flowing through the gateway.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg MonitorMessage)
}
