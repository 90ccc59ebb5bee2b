package ollama

import (
	"log/slog"

	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
)

// OllamaFactory handles creation of Ollama clients. Ollama needs no API key.
type OllamaFactory struct{}

// Create builds one client per model.
func (f *OllamaFactory) Create(cfg llm.ProviderGroupConfig, opts llm.GenerationOptions, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	baseURL := cfg.BaseURL
	if baseURL == "" && sys != nil {
		baseURL = sys.OllamaDefaultURL
	}

	for _, model := range cfg.Models {
		client, err := NewOllamaClient(model, baseURL, opts, cfg.Options)
		if err != nil {
			slog.Error("Failed to create Ollama client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider(llm.ProviderOllama, &OllamaFactory{})
}
