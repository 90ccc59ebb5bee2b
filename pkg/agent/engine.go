package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
	"github.com/ohtakaisei/ronpaou/pkg/tools"
)

// ExceptionTool is the pseudo tool name recorded for unparseable turns.
const ExceptionTool = "_Exception"

// Stop reasons reported in Result.StopReason.
const (
	StopFinalAnswer    = "final_answer"
	StopIterationLimit = "iteration_limit"
	StopTimeLimit      = "time_limit"
)

// Fallback outputs when the loop ends without a final answer.
const (
	FallbackIterationLimit = "⚠️ 思考の反復回数が上限に達したため、推論を打ち切りました。入力を具体的にして再試行してください。"
	FallbackTimeLimit      = "⏰ 思考の制限時間に達したため、推論を打ち切りました。入力を短くして再試行してください。"
)

// State is a phase of the reasoning loop.
type State int

const (
	StateThinking State = iota
	StateActing
	StateRecovering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "THINKING"
	case StateActing:
		return "ACTING"
	case StateRecovering:
		return "RECOVERING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action is what the model asked for in one step.
type Action struct {
	Tool  string
	Input string
	// Log is the raw model text, replayed verbatim in the scratchpad.
	Log string
}

// Step pairs an action with the observation it produced.
type Step struct {
	Action      Action
	Observation string
}

// Result is the outcome of one loop invocation.
type Result struct {
	Output     string
	Steps      []Step
	Iterations int
	Elapsed    time.Duration
	StopReason string
}

// Limits bound one invocation.
type Limits struct {
	MaxIterations    int
	MaxExecutionTime time.Duration
}

// DefaultLimits are 8 backend calls and 120 seconds.
var DefaultLimits = Limits{MaxIterations: 8, MaxExecutionTime: 120 * time.Second}

// StepObserver is notified after every recorded step.
type StepObserver func(Step)

// Loop runs the THINKING / ACTING / RECOVERING state machine for one request.
// A Loop holds no per-request state and may be reused.
type Loop struct {
	client llm.Client
	tools  *tools.ToolRegistry
	limits Limits
	now    func() time.Time
}

// NewLoop creates a loop. Non-positive limits fall back to DefaultLimits.
func NewLoop(client llm.Client, registry *tools.ToolRegistry, limits Limits) *Loop {
	if limits.MaxIterations <= 0 {
		limits.MaxIterations = DefaultLimits.MaxIterations
	}
	if limits.MaxExecutionTime <= 0 {
		limits.MaxExecutionTime = DefaultLimits.MaxExecutionTime
	}
	if registry == nil {
		registry = tools.NewToolRegistry()
	}
	return &Loop{
		client: client,
		tools:  registry,
		limits: limits,
		now:    time.Now,
	}
}

// Run drives the loop until a final answer or a limit. Backend failures are
// classified and returned; tool and parse failures are recorded as steps and
// the loop continues.
func (l *Loop) Run(ctx context.Context, systemPrompt, input string, observe StepObserver) (*Result, error) {
	start := l.now()
	available := l.tools.GetAll()

	var (
		steps      []Step
		iterations int
		state      = StateThinking
		pending    Decision
	)

	finish := func(output, reason string) *Result {
		res := &Result{
			Output:     output,
			Steps:      steps,
			Iterations: iterations,
			Elapsed:    l.now().Sub(start),
			StopReason: reason,
		}
		slog.DebugContext(ctx, "Reasoning loop finished",
			"reason", reason, "iterations", iterations, "steps", len(steps), "elapsed", res.Elapsed)
		return res
	}

	record := func(s Step) {
		steps = append(steps, s)
		if observe != nil {
			observe(s)
		}
	}

	transition := func(to State) {
		slog.DebugContext(ctx, "Loop transition", "from", state, "to", to, "iteration", iterations)
		state = to
	}

	for {
		switch state {
		case StateThinking:
			if iterations >= l.limits.MaxIterations {
				return finish(FallbackIterationLimit, StopIterationLimit), nil
			}
			remaining := l.limits.MaxExecutionTime - l.now().Sub(start)
			if remaining <= 0 {
				return finish(FallbackTimeLimit, StopTimeLimit), nil
			}

			prompt := RenderPrompt(PromptData{
				SystemPrompt: systemPrompt,
				Tools:        available,
				Input:        input,
				Steps:        steps,
			})

			callCtx, cancel := context.WithTimeout(ctx, remaining)
			text, err := l.client.Generate(callCtx, prompt)
			cancel()
			iterations++

			if err != nil {
				// The turn budget ran out while the call was in flight. A backend
				// that times out on its own is still reported as an error below.
				if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
					slog.WarnContext(ctx, "Time limit reached during backend call", "iteration", iterations, "error", err)
					return finish(FallbackTimeLimit, StopTimeLimit), nil
				}
				slog.ErrorContext(ctx, "Backend call failed", "iteration", iterations, "error", err)
				return nil, apperr.Classify(err)
			}

			pending = Parse(text)
			switch pending.(type) {
			case FinalAnswer:
				transition(StateDone)
			case ToolCall:
				transition(StateActing)
			default:
				transition(StateRecovering)
			}

		case StateActing:
			call := pending.(ToolCall)
			obs := l.invoke(ctx, start, call)
			record(Step{
				Action:      Action{Tool: call.Tool, Input: call.Input, Log: call.Log},
				Observation: obs,
			})
			transition(StateThinking)

		case StateRecovering:
			bad := pending.(Unparseable)
			slog.WarnContext(ctx, "Unparseable model output", "reason", bad.Reason, "iteration", iterations)
			record(Step{
				Action:      Action{Tool: ExceptionTool, Input: bad.Log, Log: bad.Log},
				Observation: bad.Observation,
			})
			transition(StateThinking)

		case StateDone:
			return finish(pending.(FinalAnswer).Text, StopFinalAnswer), nil
		}
	}
}

// invoke runs one tool call and always yields an observation. Unknown tools,
// tool errors and panics become observations the model can react to.
func (l *Loop) invoke(ctx context.Context, start time.Time, call ToolCall) (obs string) {
	tool, ok := l.tools.Get(call.Tool)
	if !ok {
		slog.WarnContext(ctx, "Unknown tool requested", "tool", call.Tool)
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", call.Tool, strings.Join(l.tools.Names(), ", "))
	}

	remaining := l.limits.MaxExecutionTime - l.now().Sub(start)
	if remaining <= 0 {
		slog.WarnContext(ctx, "Skipping tool, time limit reached", "tool", call.Tool)
		return toolFailure(call.Tool, errTimeBudget)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Tool execution panicked", "tool", call.Tool, "error", r)
			obs = toolFailure(call.Tool, fmt.Errorf("panic: %v", r))
		}
	}()

	toolCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	slog.InfoContext(ctx, "Executing tool", "tool", call.Tool, "input", call.Input)
	out, err := tool.Invoke(toolCtx, call.Input)
	if err != nil {
		slog.ErrorContext(ctx, "Tool execution error", "tool", call.Tool, "error", apperr.Wrap(apperr.KindTool, call.Tool, err))
		return toolFailure(call.Tool, err)
	}
	return out
}

var errTimeBudget = errors.New("time limit reached before the tool could run")

func toolFailure(name string, err error) string {
	return fmt.Sprintf("Error: %s failed (%v). Continue without this result if necessary.", name, err)
}
