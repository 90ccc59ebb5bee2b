package telegram

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohtakaisei/ronpaou/pkg/api"
)

type fakeBotAPI struct {
	mu      sync.Mutex
	sent    []string
	actions []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = r.ParseForm()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Ronpa","username":"ronpa_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.sent = append(f.sent, r.FormValue("text"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
		f.mu.Lock()
		f.actions = append(f.actions, r.FormValue("action"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	}
}

func newTestChannel(t *testing.T, limit int) (*TelegramChannel, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	ch, err := NewTelegramChannel(TelegramConfig{Token: "TOKEN", APIEndpoint: srv.URL + "/bot%s/%s"}, limit, true)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Stop() })
	return ch, fake
}

func TestSendSplitsLongMessages(t *testing.T) {
	ch, fake := newTestChannel(t, 10)
	session := api.SessionContext{ChannelID: ChannelID, ChatID: "42"}

	err := ch.Send(session, api.Reply{Kind: api.ReplyAnswer, Text: strings.Repeat("あ", 25)})
	require.NoError(t, err)

	require.Len(t, fake.sent, 3)
	assert.Equal(t, strings.Repeat("あ", 10), fake.sent[0])
	assert.Equal(t, strings.Repeat("あ", 5), fake.sent[2])
}

func TestSendRejectsBadChatID(t *testing.T) {
	ch, _ := newTestChannel(t, 100)
	err := ch.Send(api.SessionContext{ChatID: "web-abc"}, api.Reply{Text: "x"})
	assert.Error(t, err)
}

func TestThinkingSignalSendsTyping(t *testing.T) {
	ch, fake := newTestChannel(t, 100)
	session := api.SessionContext{ChatID: "42"}

	require.NoError(t, ch.SendSignal(session, api.SignalThinking))
	require.NoError(t, ch.SendSignal(session, api.SignalDone))
	assert.Equal(t, []string{tgbotapi.ChatTyping}, fake.actions)
}

func TestToUnifiedNormalizesCommands(t *testing.T) {
	update := tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			Text:     "/mode@ronpa_bot free_debate",
			From:     &tgbotapi.User{ID: 5, UserName: "alice"},
			Chat:     &tgbotapi.Chat{ID: 42},
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 15}},
		},
	}

	msg := toUnified(update)
	require.NotNil(t, msg)
	assert.Equal(t, "/mode free_debate", msg.Content)
	assert.Equal(t, "42", msg.Session.ChatID)
	assert.Equal(t, "5", msg.Session.UserID)
	assert.Equal(t, "telegram:42", msg.Session.Key())
}

func TestToUnifiedSkipsEmpty(t *testing.T) {
	assert.Nil(t, toUnified(tgbotapi.Update{}))
	assert.Nil(t, toUnified(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: "  ",
	}}))
}
