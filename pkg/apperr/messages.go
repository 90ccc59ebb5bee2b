package apperr

import (
	"errors"
	"strings"
)

// User-facing texts.
const (
	MsgInvalidAPIKey   = "❌ APIキーが無効です。Google AI Studioで正しいキーを確認してください。"
	MsgRateLimit       = "⏳ APIのレート制限に達しました。しばらく待ってから再試行してください。"
	MsgTimeout         = "⏰ 処理がタイムアウトしました。入力を短くするか、再試行してください。"
	MsgSearchFailed    = "🔍 Web検索中にエラーが発生しました。検索なしで回答を生成します。"
	MsgNoAPIKey        = "⚠️ APIキーを入力してください。(/key <APIキー>)"
	MsgGenericTemplate = "❌ エラーが発生しました: {error}"
	MsgConfigTemplate  = "⚙️ 設定エラー: {error}"
)

// UserMessage renders err as the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingCredential) {
		return MsgNoAPIKey
	}
	switch KindOf(Classify(err)) {
	case KindAuthentication:
		return MsgInvalidAPIKey
	case KindRateLimit:
		return MsgRateLimit
	case KindTimeout:
		return MsgTimeout
	case KindTool:
		return MsgSearchFailed
	case KindConfiguration:
		return strings.Replace(MsgConfigTemplate, "{error}", err.Error(), 1)
	default:
		return strings.Replace(MsgGenericTemplate, "{error}", err.Error(), 1)
	}
}
