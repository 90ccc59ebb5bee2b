package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
	"github.com/ohtakaisei/ronpaou/pkg/persona"
	"github.com/ohtakaisei/ronpaou/pkg/tools"
)

func newTestRunner(c *scriptedClient, gotCredential *string) *Runner {
	clients := func(credential string) (llm.Client, error) {
		if gotCredential != nil {
			*gotCredential = credential
		}
		return c, nil
	}
	return NewRunner(persona.NewComposer(persona.Default()), clients,
		func() []tools.Tool { return []tools.Tool{searchTool("結果")} }, DefaultLimits)
}

func TestRunnerRejectsEmptyInput(t *testing.T) {
	c := &scriptedClient{outputs: []string{"Final Answer: x"}}
	r := newTestRunner(c, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := r.Run(context.Background(), Request{
			ModeID: persona.ModeFreeDebate, PersonaID: persona.PersonaCritic, UserText: text,
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	}
	assert.Equal(t, 0, c.calls())
}

func TestRunnerRejectsUnknownSelection(t *testing.T) {
	c := &scriptedClient{outputs: []string{"Final Answer: x"}}
	r := newTestRunner(c, nil)

	_, err := r.Run(context.Background(), Request{ModeID: "nope", PersonaID: persona.PersonaCritic, UserText: "hi"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	_, err = r.Run(context.Background(), Request{ModeID: persona.ModeFreeDebate, PersonaID: "nope", UserText: "hi"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	assert.Equal(t, 0, c.calls())
}

func TestRunnerPassesClientErrors(t *testing.T) {
	r := NewRunner(persona.NewComposer(persona.Default()), func(string) (llm.Client, error) {
		return nil, apperr.ErrMissingCredential
	}, nil, DefaultLimits)

	_, err := r.Run(context.Background(), Request{
		ModeID: persona.ModeFilterBubble, PersonaID: persona.PersonaCritic, UserText: "意見",
	})
	assert.True(t, errors.Is(err, apperr.ErrMissingCredential))
}

func TestRunnerComposesInstructionAndRuns(t *testing.T) {
	c := &scriptedClient{outputs: []string{
		"Action: web_search\nAction Input: 反対意見",
		"Final Answer: 反論",
	}}
	var credential string
	r := newTestRunner(c, &credential)

	var steps int
	res, err := r.Run(context.Background(), Request{
		Credential: "key-123",
		ModeID:     persona.ModeFilterBubble,
		PersonaID:  persona.PersonaInvestor,
		UserText:   "  リモートワークは最高だ  ",
		OnStep:     func(Step) { steps++ },
	})
	require.NoError(t, err)
	assert.Equal(t, "反論", res.Output)
	assert.Equal(t, 1, steps)
	assert.Equal(t, "key-123", credential)

	prompt := c.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, "あなたは「悪魔の代弁者"))
	assert.Contains(t, prompt, "【ペルソナ: 慎重派投資家】")
	assert.Contains(t, prompt, "【モード: フィルターバブル破壊】")
	assert.Contains(t, prompt, "ユーザーの入力: リモートワークは最高だ\n")
	assert.Contains(t, prompt, "Observation: 結果\nThought: ")
}
