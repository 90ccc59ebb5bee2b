package gemini

import (
	"fmt"

	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// GeminiFactory handles creation of Gemini clients.
type GeminiFactory struct{}

// AcceptsCredential marks Gemini as key-based.
func (f *GeminiFactory) AcceptsCredential() bool { return true }

// Create builds one client per model x key, models first.
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, opts llm.GenerationOptions, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	if t, ok := cfg.Options["temperature"].(float64); ok {
		opts.Temperature = t
	}

	for _, model := range cfg.Models {
		for _, key := range cfg.APIKeys {
			client, err := NewGeminiClient(key, model, opts)
			if err != nil {
				return nil, fmt.Errorf("gemini %s: %w", model, err)
			}
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider(llm.ProviderGemini, &GeminiFactory{})
}
