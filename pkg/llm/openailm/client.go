package openailm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// Client is a wrapper around the official OpenAI Go SDK using the Responses API.
// It also serves OpenAI-compatible endpoints through base_url.
type Client struct {
	client   *openai.Client
	provider string
	model    string
	opts     llm.GenerationOptions
	options  map[string]any
}

// NewClient creates a new OpenAI client
func NewClient(provider string, apiKey string, model string, baseURL string, opts llm.GenerationOptions, options map[string]any) (*Client, error) {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(reqOpts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		opts:     opts,
		options:  options,
	}, nil
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return true
	}
	if strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded") {
		return true
	}
	return false
}

// Generate streams a response and returns the collected text deltas. The
// Responses API has no stop parameter, so stop sequences are applied locally.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}

	var reqOpts []option.RequestOption
	temperature := c.opts.Temperature
	if t, ok := c.options["temperature"].(float64); ok {
		temperature = t
	}
	reqOpts = append(reqOpts, option.WithJSONSet("temperature", temperature))
	if maxTok, ok := c.options["max_tokens"].(float64); ok {
		reqOpts = append(reqOpts, option.WithJSONSet("max_output_tokens", int(maxTok)))
	}

	stream := c.client.Responses.NewStreaming(ctx, params, reqOpts...)
	defer stream.Close()

	var (
		sb     strings.Builder
		usage  *llm.Usage
		apiErr error
	)
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case responses.ResponseTextDeltaEvent:
			sb.WriteString(variant.Delta)
		case responses.ResponseCompletedEvent:
			usage = &llm.Usage{
				PromptTokens:     int(variant.Response.Usage.InputTokens),
				CompletionTokens: int(variant.Response.Usage.OutputTokens),
				TotalTokens:      int(variant.Response.Usage.TotalTokens),
				StopReason:       llm.StopReasonStop,
			}
		case responses.ResponseIncompleteEvent:
			slog.WarnContext(ctx, "Response incomplete", "provider", c.provider, "model", c.model)
		case responses.ResponseFailedEvent:
			apiErr = errors.New("openai response failed")
		case responses.ResponseErrorEvent:
			apiErr = errors.New("openai api error: " + variant.Message)
		}
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	if apiErr != nil {
		return "", apiErr
	}

	llm.LogUsage(ctx, c.provider, c.model, usage)
	return llm.CutAtStop(sb.String(), c.opts.Stop), nil
}
