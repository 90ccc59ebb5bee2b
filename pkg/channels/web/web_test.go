package web

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohtakaisei/ronpaou/pkg/api"
)

// echoContext answers every message with its content and records it.
type echoContext struct {
	ch   *WebChannel
	mu   sync.Mutex
	msgs []*api.UnifiedMessage
}

func (e *echoContext) OnMessage(_ string, msg *api.UnifiedMessage) {
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
	_ = e.ch.SendSignal(msg.Session, api.SignalThinking)
	_ = e.ch.Send(msg.Session, api.Reply{Kind: api.ReplyInfo, Text: msg.Content})
}

func (e *echoContext) SendReply(s api.SessionContext, r api.Reply) error { return e.ch.Send(s, r) }
func (e *echoContext) SendSignal(s api.SessionContext, v string) error  { return e.ch.SendSignal(s, v) }

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var out map[string]any
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestConnectSendsStartAndRoutesFrames(t *testing.T) {
	ch := NewWebChannel(WebConfig{})
	ectx := &echoContext{ch: ch}
	srv := httptest.NewServer(ch.Handler(ectx))
	defer srv.Close()

	conn := dial(t, srv, "?session=abc")

	assert.Equal(t, map[string]any{"type": "signal", "value": api.SignalThinking}, readFrame(t, conn))
	assert.Equal(t, map[string]any{"type": "info", "text": StartCommand}, readFrame(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"text":"意見です","mode":"free_debate","persona":"critic","api_key":"k"}`)))
	readFrame(t, conn)
	assert.Equal(t, "意見です", readFrame(t, conn)["text"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("plain text")))
	readFrame(t, conn)
	assert.Equal(t, "plain text", readFrame(t, conn)["text"])

	ectx.mu.Lock()
	defer ectx.mu.Unlock()
	require.Len(t, ectx.msgs, 3)
	m := ectx.msgs[1]
	assert.Equal(t, "free_debate", m.Mode)
	assert.Equal(t, "critic", m.Persona)
	assert.Equal(t, "k", m.Credential)
	assert.Equal(t, "abc", m.Session.ChatID)
	assert.Equal(t, "web:abc", m.Session.Key())
}

func TestReplyCarriesSteps(t *testing.T) {
	ch := NewWebChannel(WebConfig{})
	ectx := &echoContext{ch: ch}
	srv := httptest.NewServer(ch.Handler(ectx))
	defer srv.Close()

	conn := dial(t, srv, "?session=s1")
	readFrame(t, conn)
	readFrame(t, conn)

	err := ch.Send(api.SessionContext{ChatID: "s1"}, api.Reply{
		Kind:  api.ReplyAnswer,
		Text:  "反論",
		Steps: []api.TraceStep{{Tool: "web_search", Input: "q", Observation: "o"}},
	})
	require.NoError(t, err)

	frame := readFrame(t, conn)
	assert.Equal(t, "answer", frame["type"])
	steps := frame["steps"].([]any)
	require.Len(t, steps, 1)
	assert.Equal(t, "web_search", steps[0].(map[string]any)["tool"])
}

func TestSendToUnknownSession(t *testing.T) {
	ch := NewWebChannel(WebConfig{})
	assert.Error(t, ch.Send(api.SessionContext{ChatID: "missing"}, api.Reply{Text: "x"}))
	assert.Error(t, ch.SendSignal(api.SessionContext{ChatID: "missing"}, api.SignalDone))
}
