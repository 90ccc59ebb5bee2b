package agent

import (
	"context"
	"strings"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
	"github.com/ohtakaisei/ronpaou/pkg/persona"
	"github.com/ohtakaisei/ronpaou/pkg/tools"
)

// ClientFactory returns a backend client authenticated with credential.
type ClientFactory func(credential string) (llm.Client, error)

// ToolFactory returns the tools available to one invocation.
type ToolFactory func() []tools.Tool

// Request is the input of one turn.
type Request struct {
	Credential string
	ModeID     string
	PersonaID  string
	UserText   string
	// OnStep, if set, is called after every recorded step.
	OnStep StepObserver
}

// Runner is the entry point used by front-ends: it composes the system
// instruction, obtains a backend and runs a fresh Loop. It never reads
// conversation history, so each turn is independent.
type Runner struct {
	composer *persona.Composer
	clients  ClientFactory
	tools    ToolFactory
	limits   Limits
}

func NewRunner(composer *persona.Composer, clients ClientFactory, toolFactory ToolFactory, limits Limits) *Runner {
	if toolFactory == nil {
		toolFactory = func() []tools.Tool { return nil }
	}
	return &Runner{
		composer: composer,
		clients:  clients,
		tools:    toolFactory,
		limits:   limits,
	}
}

// Run executes one turn.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.UserText)
	if text == "" {
		return nil, apperr.New(apperr.KindConfiguration, "agent.Run", "empty user input")
	}

	instruction, err := r.composer.Compose(req.PersonaID, req.ModeID)
	if err != nil {
		return nil, err
	}

	client, err := r.clients(req.Credential)
	if err != nil {
		return nil, err
	}

	loop := NewLoop(client, tools.NewToolRegistry(r.tools()...), r.limits)
	return loop.Run(ctx, instruction, text, req.OnStep)
}
