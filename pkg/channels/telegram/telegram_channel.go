package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ohtakaisei/ronpaou/pkg/api"
	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

// ChannelID is the id of the Telegram front-end.
const ChannelID = "telegram"

const defaultMessageLimit = 4000

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token string `json:"token"` // BOT API token from @BotFather
	// APIEndpoint overrides tgbotapi.APIEndpoint, a format with token and method slots.
	APIEndpoint string `json:"api_endpoint,omitempty"`
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int `json:"poll_timeout,omitempty"`
}

// TelegramChannel receives messages by long polling and replies with plain
// text split at the platform message limit.
type TelegramChannel struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int
	showSteps    bool
	stopCtx      context.Context    // Aborts the long-polling HTTP request
	stopCancel   context.CancelFunc // Triggers the abort
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int, showSteps bool) (*TelegramChannel, error) {
	if msgLimit <= 0 {
		msgLimit = defaultMessageLimit
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Dials are tied to stopCtx so an active long poll is dropped on Stop,
	// which avoids the 409 Conflict when a reload starts a new poller.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHTTPClient := &http.Client{
		Timeout: time.Duration(cfg.PollTimeout+10) * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, botHTTPClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		showSteps:    showSteps,
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

func (t *TelegramChannel) ID() string {
	return ChannelID
}

// Start runs the long-polling loop in the background.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go func() {
		offset := 0
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = t.config.PollTimeout

			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				case <-time.After(3 * time.Second):
					slog.Debug("Failed to get telegram updates", "error", err)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID < offset {
					continue
				}
				offset = update.UpdateID + 1
				if msg := toUnified(update); msg != nil {
					ctx.OnMessage(t.ID(), msg)
				}
			}
		}
	}()
	return nil
}

// toUnified maps a Telegram update to a UnifiedMessage, or nil if the update
// carries no text.
func toUnified(update tgbotapi.Update) *api.UnifiedMessage {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil
	}

	content := m.Text
	if m.IsCommand() {
		// Drop the @botname suffix used in group chats.
		content = "/" + m.Command()
		if args := m.CommandArguments(); args != "" {
			content += " " + args
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	return &api.UnifiedMessage{
		Session: api.SessionContext{
			ChannelID: ChannelID,
			UserID:    strconv.FormatInt(m.From.ID, 10),
			ChatID:    strconv.FormatInt(m.Chat.ID, 10),
			Username:  m.From.UserName,
		},
		Content: content,
		Raw:     update,
	}
}

// SendSignal implements the gateway.SignalingChannel interface
func (t *TelegramChannel) SendSignal(session api.SessionContext, signal string) error {
	if signal != api.SignalThinking {
		return nil
	}
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = t.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

// Send renders the reply as text and sends it in chunks of messageLimit runes.
func (t *TelegramChannel) Send(session api.SessionContext, reply api.Reply) error {
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", session.ChatID)
	}

	text := api.RenderText(reply, t.showSteps)
	if text == "" {
		return nil
	}

	for i, chunk := range utils.SplitRunes(text, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d failed: %w", i, err)
		}
	}
	return nil
}
