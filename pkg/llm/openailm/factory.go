package openailm

import (
	"log/slog"

	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI clients.
type OpenAIFactory struct{}

// AcceptsCredential marks OpenAI as key-based.
func (f *OpenAIFactory) AcceptsCredential() bool { return true }

// Create builds one client per model using the first configured key.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, opts llm.GenerationOptions, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	apiKey := ""
	if len(cfg.APIKeys) > 0 {
		apiKey = cfg.APIKeys[0]
	}

	for _, model := range cfg.Models {
		client, err := NewClient(llm.ProviderOpenAI, apiKey, model, cfg.BaseURL, opts, cfg.Options)
		if err != nil {
			slog.Error("Failed to create OpenAI client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider(llm.ProviderOpenAI, &OpenAIFactory{})
}
