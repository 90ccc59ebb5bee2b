package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

// CLIMonitor implements the Monitor interface, providing a direct
// terminal-based view of messages flowing through all channels.
type CLIMonitor struct {
	mu     sync.Mutex
	writer io.Writer
	// stepLimit truncates STEP lines so long observations stay readable.
	stepLimit int
}

// NewCLIMonitor creates a monitor writing to stdout.
func NewCLIMonitor() *CLIMonitor {
	return NewCLIMonitorWithWriter(os.Stdout)
}

// NewCLIMonitorWithWriter creates a monitor writing to w.
func NewCLIMonitorWithWriter(w io.Writer) *CLIMonitor {
	return &CLIMonitor{
		writer:    w,
		stepLimit: 200,
	}
}

// Start starts the CLI monitor
func (m *CLIMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "😈 CLI Monitor Active - All channel messages will appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

// Stop stops the CLI monitor
func (m *CLIMonitor) Stop() error {
	return nil
}

// OnMessage receives and displays a monitoring message
func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	var displayMsg string
	switch msg.MessageType {
	case TypeAssistant:
		displayMsg = fmt.Sprintf("[AI] %s", msg.Content)
	case TypeStep:
		displayMsg = fmt.Sprintf("\033[36m[STEP]\033[0m %s", utils.Truncate(msg.Content, m.stepLimit))
	case TypeError:
		displayMsg = fmt.Sprintf("\033[31m[ERR]\033[0m %s", msg.Content)
	default:
		displayMsg = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.Username, msg.Content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, displayMsg)
}
