package agent

import (
	"strings"

	"github.com/ohtakaisei/ronpaou/pkg/tools"
)

const fence = "```"

// reactTemplate is the ReAct prompt with five named slots.
const reactTemplate = `{system_prompt}

あなたは以下のツールを使用できます:

{tools}

ツールを使用するには、以下のフォーマットに**正確に**従ってください。
「Action:」の直後にはツール名のみを書いてください（余計な言葉を入れないこと）。

使用可能なツール名: {tool_names}

` + fence + `
Thought: （思考内容）
Action: web_search
Action Input: （検索クエリ）
` + fence + `

Observationにツールの結果が返されます。これを繰り返せます。

最終回答の準備ができたら:

` + fence + `
Thought: （まとめ）
Final Answer: （ユーザーへの最終回答）
` + fence + `

さあ、始めましょう。

ユーザーの入力: {input}

{agent_scratchpad}`

// PromptData fills the template slots.
type PromptData struct {
	SystemPrompt string
	Tools        []tools.Tool
	Input        string
	Steps        []Step
}

// RenderPrompt substitutes every slot in one pass, so slot-like text inside
// user input or observations is never expanded.
func RenderPrompt(d PromptData) string {
	r := strings.NewReplacer(
		"{system_prompt}", d.SystemPrompt,
		"{tools}", ToolCatalogue(d.Tools),
		"{tool_names}", ToolNames(d.Tools),
		"{input}", d.Input,
		"{agent_scratchpad}", Scratchpad(d.Steps),
	)
	return r.Replace(reactTemplate)
}

// ToolCatalogue renders one "name: description" line per tool.
func ToolCatalogue(ts []tools.Tool) string {
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = t.Name() + ": " + t.Description()
	}
	return strings.Join(lines, "\n")
}

// ToolNames joins the tool names with ", ".
func ToolNames(ts []tools.Tool) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

// Scratchpad replays prior steps as the model wrote them, each followed by
// its observation and a fresh "Thought: " cue.
func Scratchpad(steps []Step) string {
	var sb strings.Builder
	for _, s := range steps {
		sb.WriteString(s.Action.Log)
		sb.WriteString("\nObservation: ")
		sb.WriteString(s.Observation)
		sb.WriteString("\nThought: ")
	}
	return sb.String()
}
