package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ohtakaisei/ronpaou/pkg/agent"
	"github.com/ohtakaisei/ronpaou/pkg/api"
	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/monitor"
	"github.com/ohtakaisei/ronpaou/pkg/persona"
	"github.com/ohtakaisei/ronpaou/pkg/session"
	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

const helpText = `📖 使い方
意見や企画書を送ると、選択中のモードとペルソナで反論します。

/modes              モード一覧
/personas           ペルソナ一覧
/mode <id>          モードを切り替え
/persona <id>       ペルソナを切り替え
/key <APIキー>      APIキーを設定
/history            会話履歴を表示
/reset              会話履歴を消去
/help               このヘルプ`

// Texts shown for commands.
const (
	msgResetDone     = "🗑️ 会話履歴を消去しました。"
	msgKeySet        = "🔑 APIキーを設定しました。"
	msgKeyMissingArg = "⚠️ 使い方: /key <APIキー>"
	msgUnknownCmd    = "❓ 不明なコマンドです。/help で使い方を確認してください。"
	msgModeSet       = "%s モードを「%s」に切り替えました。"
	msgPersonaSet    = "%s ペルソナを「%s」に切り替えました。"
	msgUnknownMode   = "❌ 不明なモード: %s (/modes で一覧を確認)"
	msgUnknownPerson = "❌ 不明なペルソナ: %s (/personas で一覧を確認)"
	msgHistoryEmpty  = "📭 会話履歴はまだありません。"
)

// Options tune a ChatHandler.
type Options struct {
	// DefaultMode and DefaultPersona seed new sessions. Empty values use the
	// first catalogue entry.
	DefaultMode    string
	DefaultPersona string
	// RequireCredential rejects turns from sessions without an API key.
	RequireCredential bool
	// BaseContext is the parent of every turn context.
	BaseContext context.Context
}

// mirrorer is implemented by responders that also feed a monitor.
type mirrorer interface {
	Mirror(kind string, session api.SessionContext, content string)
}

// ChatHandler routes incoming messages: slash commands change the session,
// everything else runs one reasoning turn and replies with the answer.
type ChatHandler struct {
	runner    *agent.Runner
	registry  *persona.Registry
	store     *session.Store
	responder api.MessageResponder
	opts      Options

	turnLocks sync.Map // session key -> *sync.Mutex
}

func NewChatHandler(runner *agent.Runner, registry *persona.Registry, store *session.Store, opts Options) *ChatHandler {
	if opts.DefaultMode == "" {
		opts.DefaultMode = registry.DefaultModeID()
	}
	if opts.DefaultPersona == "" {
		opts.DefaultPersona = registry.DefaultPersonaID()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &ChatHandler{
		runner:   runner,
		registry: registry,
		store:    store,
		opts:     opts,
	}
}

// SetResponder implements api.ResponderAware.
func (h *ChatHandler) SetResponder(r api.MessageResponder) {
	h.responder = r
}

// OnMessage implements api.MessageProcessor.
func (h *ChatHandler) OnMessage(msg *api.UnifiedMessage) {
	if msg.TraceID == "" {
		msg.TraceID = utils.NewTraceID()
	}
	ctx := monitor.WithTraceID(h.opts.BaseContext, msg.TraceID)
	sess := h.session(msg.Session)

	switched, ok := h.applySelections(ctx, msg, sess)
	if !ok {
		return
	}

	content := strings.TrimSpace(msg.Content)
	if strings.HasPrefix(content, "/") {
		h.handleSlashCommand(ctx, msg.Session, sess, content)
		return
	}
	if content == "" {
		if switched {
			h.reply(ctx, msg.Session, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, true, true)})
		}
		return
	}

	h.runTurn(ctx, msg.Session, sess, content)
}

// session returns the stored session, seeding selections on first use.
func (h *ChatHandler) session(sc api.SessionContext) *session.Session {
	sess := h.store.Get(sc.Key())
	if sess.Mode() == "" {
		sess.SetMode(h.opts.DefaultMode)
	}
	if sess.Persona() == "" {
		sess.SetPersona(h.opts.DefaultPersona)
	}
	return sess
}

// applySelections applies the optional mode, persona and credential carried
// by the message. It reports whether anything changed and false on an
// invalid id, after replying with the error.
func (h *ChatHandler) applySelections(ctx context.Context, msg *api.UnifiedMessage, sess *session.Session) (switched, ok bool) {
	if msg.Mode != "" && msg.Mode != sess.Mode() {
		if _, found := h.registry.Mode(msg.Mode); !found {
			h.reply(ctx, msg.Session, api.Reply{Kind: api.ReplyError, Text: fmt.Sprintf(msgUnknownMode, msg.Mode)})
			return false, false
		}
		sess.SetMode(msg.Mode)
		switched = true
	}
	if msg.Persona != "" && msg.Persona != sess.Persona() {
		if _, found := h.registry.Persona(msg.Persona); !found {
			h.reply(ctx, msg.Session, api.Reply{Kind: api.ReplyError, Text: fmt.Sprintf(msgUnknownPerson, msg.Persona)})
			return false, false
		}
		sess.SetPersona(msg.Persona)
		switched = true
	}
	if c := strings.TrimSpace(msg.Credential); c != "" {
		sess.SetCredential(c)
	}
	return switched, true
}

func (h *ChatHandler) handleSlashCommand(ctx context.Context, sc api.SessionContext, sess *session.Session, content string) {
	cmd, arg, _ := strings.Cut(content, " ")
	arg = strings.TrimSpace(arg)
	slog.InfoContext(ctx, "Command received", "command", cmd, "session", sc.Key())

	switch strings.ToLower(cmd) {
	case "/start":
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, true, true)})
		if items := historyItems(sess.History()); len(items) > 0 {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyHistory, History: items})
		}
	case "/help":
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: helpText})
	case "/modes":
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, true, false)})
	case "/personas":
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, false, true)})
	case "/mode":
		if arg == "" {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, true, false)})
			return
		}
		m, ok := h.registry.Mode(arg)
		if !ok {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: fmt.Sprintf(msgUnknownMode, arg)})
			return
		}
		sess.SetMode(m.ID)
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: fmt.Sprintf(msgModeSet, m.Icon, m.Label)})
	case "/persona":
		if arg == "" {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyCatalog, Catalog: h.catalog(sess, false, true)})
			return
		}
		p, ok := h.registry.Persona(arg)
		if !ok {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: fmt.Sprintf(msgUnknownPerson, arg)})
			return
		}
		sess.SetPersona(p.ID)
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: fmt.Sprintf(msgPersonaSet, p.Icon, p.Label)})
	case "/key":
		if arg == "" {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: msgKeyMissingArg})
			return
		}
		sess.SetCredential(arg)
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: msgKeySet})
	case "/history":
		items := historyItems(sess.History())
		if len(items) == 0 {
			h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: msgHistoryEmpty})
			return
		}
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyHistory, History: items})
	case "/reset":
		sess.Reset()
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyInfo, Text: msgResetDone})
	default:
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: msgUnknownCmd})
	}
}

// runTurn executes one reasoning turn. Turns of the same session run one at
// a time so the stored history keeps user/assistant order.
func (h *ChatHandler) runTurn(ctx context.Context, sc api.SessionContext, sess *session.Session, text string) {
	credential := sess.Credential()
	if h.opts.RequireCredential && credential == "" {
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: apperr.MsgNoAPIKey})
		return
	}

	lock := h.turnLock(sc.Key())
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	h.signal(ctx, sc, api.SignalThinking)
	defer h.signal(ctx, sc, api.SignalDone)

	sess.Append(session.Entry{Role: session.RoleUser, Content: text})

	res, err := h.runner.Run(ctx, agent.Request{
		Credential: credential,
		ModeID:     sess.Mode(),
		PersonaID:  sess.Persona(),
		UserText:   text,
		OnStep: func(s agent.Step) {
			h.mirror(monitor.TypeStep, sc, fmt.Sprintf("%s(%s) -> %s", s.Action.Tool, s.Action.Input, s.Observation))
		},
	})
	if err != nil {
		userText := apperr.UserMessage(err)
		slog.ErrorContext(ctx, "Turn failed", "session", sc.Key(), "kind", apperr.KindOf(apperr.Classify(err)), "error", err)
		h.mirror(monitor.TypeError, sc, err.Error())
		sess.Append(session.Entry{Role: session.RoleAssistant, Content: userText})
		h.reply(ctx, sc, api.Reply{Kind: api.ReplyError, Text: userText})
		return
	}

	slog.InfoContext(ctx, "Turn finished",
		"session", sc.Key(), "stop", res.StopReason, "iterations", res.Iterations,
		"steps", len(res.Steps), "duration", time.Since(start).String())

	stored := make([]session.Step, len(res.Steps))
	trace := make([]api.TraceStep, len(res.Steps))
	for i, s := range res.Steps {
		stored[i] = session.Step{Tool: s.Action.Tool, Input: s.Action.Input, Observation: s.Observation}
		trace[i] = api.TraceStep{Tool: s.Action.Tool, Input: s.Action.Input, Observation: s.Observation}
	}
	sess.Append(session.Entry{Role: session.RoleAssistant, Content: res.Output, Steps: stored})

	h.reply(ctx, sc, api.Reply{Kind: api.ReplyAnswer, Text: res.Output, Steps: trace})
}

func (h *ChatHandler) turnLock(key string) *sync.Mutex {
	l, _ := h.turnLocks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (h *ChatHandler) catalog(sess *session.Session, modes, personas bool) *api.Catalog {
	c := &api.Catalog{CurrentMode: sess.Mode(), CurrentPersona: sess.Persona()}
	if modes {
		for _, m := range h.registry.Modes() {
			c.Modes = append(c.Modes, api.CatalogItem{ID: m.ID, Label: m.Label, Description: m.Description, Icon: m.Icon})
		}
	}
	if personas {
		for _, p := range h.registry.Personas() {
			c.Personas = append(c.Personas, api.CatalogItem{ID: p.ID, Label: p.Label, Description: p.Description, Icon: p.Icon})
		}
	}
	return c
}

func historyItems(entries []session.Entry) []api.HistoryItem {
	items := make([]api.HistoryItem, 0, len(entries))
	for _, e := range entries {
		item := api.HistoryItem{Role: e.Role, Content: e.Content}
		for _, s := range e.Steps {
			item.Steps = append(item.Steps, api.TraceStep{Tool: s.Tool, Input: s.Input, Observation: s.Observation})
		}
		items = append(items, item)
	}
	return items
}

func (h *ChatHandler) reply(ctx context.Context, sc api.SessionContext, r api.Reply) {
	if h.responder == nil {
		slog.WarnContext(ctx, "No responder set, dropping reply", "session", sc.Key())
		return
	}
	if err := h.responder.SendReply(sc, r); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "session", sc.Key(), "error", err)
	}
}

func (h *ChatHandler) signal(ctx context.Context, sc api.SessionContext, signal string) {
	if h.responder == nil {
		return
	}
	if err := h.responder.SendSignal(sc, signal); err != nil {
		slog.DebugContext(ctx, "Failed to send signal", "signal", signal, "error", err)
	}
}

func (h *ChatHandler) mirror(kind string, sc api.SessionContext, content string) {
	if m, ok := h.responder.(mirrorer); ok {
		m.Mirror(kind, sc, content)
	}
}
