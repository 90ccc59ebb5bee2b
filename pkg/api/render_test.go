package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTextAnswerWithSteps(t *testing.T) {
	r := Reply{
		Kind:  ReplyAnswer,
		Text:  "反論です",
		Steps: []TraceStep{{Tool: "web_search", Input: "q", Observation: "o"}},
	}
	assert.Equal(t, "🔍 思考プロセス\n1. web_search: q\n\n反論です", RenderText(r, true))
	assert.Equal(t, "反論です", RenderText(r, false))
}

func TestRenderTextCatalog(t *testing.T) {
	r := Reply{Kind: ReplyCatalog, Catalog: &Catalog{
		Modes:       []CatalogItem{{ID: "a", Label: "A", Icon: "🅰", Description: "first"}, {ID: "b", Label: "B", Icon: "🅱", Description: "second"}},
		CurrentMode: "b",
	}}
	assert.Equal(t, "モード\n  🅰 A (a): first\n▶ 🅱 B (b): second", RenderText(r, true))
}

func TestRenderTextHistory(t *testing.T) {
	r := Reply{Kind: ReplyHistory, History: []HistoryItem{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "no"}}}
	assert.Equal(t, "[user] hi\n[assistant] no", RenderText(r, false))
}
