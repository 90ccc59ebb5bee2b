package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// OllamaClient generates text with a local or remote Ollama server.
type OllamaClient struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewOllamaClient creates an Ollama client. An empty baseURL falls back to
// OLLAMA_HOST from the environment.
func NewOllamaClient(model string, baseURL string, opts llm.GenerationOptions, options map[string]any) (*OllamaClient, error) {
	// No client-side timeout; the turn context bounds each request.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{
		Transport: &JSONFixingRoundTripper{Proxied: transport},
	}

	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, httpClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}

	merged := map[string]any{
		"temperature": opts.Temperature,
	}
	if len(opts.Stop) > 0 {
		merged["stop"] = opts.Stop
	}
	for k, v := range options {
		merged[k] = v
	}

	slog.Debug("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:  client,
		model:   model,
		options: merged,
	}, nil
}

func (o *OllamaClient) Provider() string { return llm.ProviderOllama }
func (o *OllamaClient) Model() string    { return o.model }

// Generate sends the prompt as a single user message and collects the stream.
func (o *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	streamVal := true
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: o.options,
		Stream:  &streamVal,
	}

	var (
		sb       strings.Builder
		thinking strings.Builder
		usage    *llm.Usage
	)
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Thinking != "" {
			thinking.WriteString(resp.Message.Thinking)
		}
		if resp.Message.Content != "" {
			sb.WriteString(resp.Message.Content)
		}
		if resp.Done {
			usage = &llm.Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
				StopReason:       resp.DoneReason,
			}
			if resp.DoneReason == llm.StopReasonLength {
				slog.WarnContext(ctx, "Response truncated due to length", "provider", "ollama")
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Stream error", "provider", "ollama", "model", o.model, "error", err)
		return "", err
	}

	if thinking.Len() > 0 {
		slog.DebugContext(ctx, "Ollama thinking", "content", thinking.String())
	}
	llm.LogUsage(ctx, o.Provider(), o.model, usage)
	return sb.String(), nil
}

// IsTransientError reports connection failures and overload.
func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "overloaded")
}
