package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// GeminiClient generates text with the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	opts   llm.GenerationOptions
}

// NewGeminiClient creates a Gemini client with a single model and API key.
func NewGeminiClient(apiKey string, model string, opts llm.GenerationOptions) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		opts:   opts,
	}, nil
}

func (g *GeminiClient) Provider() string { return llm.ProviderGemini }
func (g *GeminiClient) Model() string    { return g.model }

// Generate streams one completion and returns the concatenated text parts.
// Thought parts are logged at debug level and left out of the result.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	genCfg := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(float32(g.opts.Temperature)),
		StopSequences: g.opts.Stop,
	}

	slog.DebugContext(ctx, "Gemini request", "model", g.model, "prompt_len", len(prompt))

	var (
		sb       strings.Builder
		thoughts strings.Builder
		usage    *llm.Usage
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, genCfg) {
		if err != nil {
			// The SDK may hand back a partial response alongside the error.
			if resp == nil {
				return "", err
			}
			slog.WarnContext(ctx, "Gemini stream error with data", "error", err)
		}

		if resp.UsageMetadata != nil {
			u := resp.UsageMetadata
			usage = &llm.Usage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
				ThoughtsTokens:   int(u.ThoughtsTokenCount),
			}
		}

		for _, candidate := range resp.Candidates {
			if candidate.FinishReason != "" && usage != nil {
				usage.StopReason = string(candidate.FinishReason)
			}
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				if part.Thought {
					thoughts.WriteString(part.Text)
					continue
				}
				sb.WriteString(part.Text)
			}
		}

		if err != nil {
			return "", err
		}
	}

	if thoughts.Len() > 0 {
		slog.DebugContext(ctx, "Gemini thoughts", "content", thoughts.String())
	}
	llm.LogUsage(ctx, g.Provider(), g.model, usage)

	if sb.Len() == 0 && usage != nil && usage.StopReason != "" && usage.StopReason != string(genai.FinishReasonStop) {
		return "", errors.New("gemini returned no text (finish reason " + usage.StopReason + ")")
	}
	return sb.String(), nil
}

// IsTransientError reports server-side overload and 5xx failures.
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "503") || strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "500") || strings.Contains(msg, "internal error") {
		return true
	}
	return false
}
