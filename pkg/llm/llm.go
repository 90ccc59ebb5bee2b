package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
)

// json is the package-wide JSON codec.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Usage is the provider-neutral token accounting of one generation.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ThoughtsTokens   int    `json:"thoughts_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage writes one debug line with the token counts.
func LogUsage(ctx context.Context, provider, model string, usage *Usage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "LLM usage",
		"provider", provider,
		"model", model,
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
		"thoughts", usage.ThoughtsTokens,
		"stop_reason", usage.StopReason,
	)
}

// Client generates a completion for one text prompt. Implementations collect
// streamed output and return the whole text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
	// IsTransientError reports whether retrying the same request may succeed
	// (server overload, 5xx). Authentication and quota errors are never transient.
	IsTransientError(err error) bool
}

// GenerationOptions are the sampling settings shared by all providers.
type GenerationOptions struct {
	Temperature float64
	Stop        []string
}

// DefaultStop cuts generation before the model invents a tool observation.
var DefaultStop = []string{"\nObservation"}

// CutAtStop truncates text at the first stop sequence. Providers whose API has
// no stop parameter apply it after collecting the stream.
func CutAtStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}

// FallbackClient tries each client in order, retrying transient failures of
// one client with exponential backoff before moving to the next.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration

	// AttemptTimeout bounds one call to one client. Zero means no bound
	// beyond ctx.
	AttemptTimeout time.Duration
}

func (f *FallbackClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback",
				"index", i+1, "provider", client.Provider(), "model", client.Model())
		}

		var out string
		attempt := 0
		op := func() error {
			attempt++
			callCtx, cancel := ctx, context.CancelFunc(func() {})
			if f.AttemptTimeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, f.AttemptTimeout)
			}
			text, err := client.Generate(callCtx, prompt)
			cancel()
			if err == nil {
				out = text
				return nil
			}
			if ctx.Err() != nil || !f.shouldRetry(client, err) {
				return backoff.Permanent(err)
			}
			slog.WarnContext(ctx, "Transient provider error, retrying",
				"provider", client.Provider(), "attempt", attempt, "error", err)
			return err
		}

		err := backoff.Retry(op, backoff.WithContext(f.policy(), ctx))
		if err == nil {
			return out, nil
		}
		lastErr = err

		// Bad credentials and exhausted quota fail the same way on every model
		// behind the same key, and a cancelled turn must not fan out further.
		if ctx.Err() != nil {
			return "", lastErr
		}
		switch apperr.KindOf(apperr.Classify(err)) {
		case apperr.KindAuthentication, apperr.KindRateLimit:
			return "", lastErr
		}
		slog.ErrorContext(ctx, "Provider failed", "index", i+1, "provider", client.Provider(), "error", err)
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return "", fmt.Errorf("all fallback providers failed: %w", lastErr)
}

func (f *FallbackClient) shouldRetry(c Client, err error) bool {
	switch apperr.KindOf(apperr.Classify(err)) {
	case apperr.KindAuthentication, apperr.KindRateLimit:
		return false
	}
	return c.IsTransientError(err)
}

func (f *FallbackClient) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if f.RetryDelay > 0 {
		b.InitialInterval = f.RetryDelay
	}
	retries := f.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

func (f *FallbackClient) Provider() string {
	if len(f.Clients) == 1 {
		return f.Clients[0].Provider()
	}
	return "fallback"
}

func (f *FallbackClient) Model() string {
	if len(f.Clients) == 0 {
		return ""
	}
	return f.Clients[0].Model()
}

// IsTransientError is false because every child has already been retried.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
