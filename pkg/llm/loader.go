package llm

import (
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/config"
)

// ParseGroups decodes the "llm" section of config.json.
func ParseGroups(rawLLM jsoniter.RawMessage) ([]ProviderGroupConfig, error) {
	if len(rawLLM) == 0 {
		return nil, apperr.New(apperr.KindConfiguration, "llm.ParseGroups", "missing 'llm' config")
	}
	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "llm.ParseGroups", fmt.Errorf("failed to parse 'llm' config: %w", err))
	}
	return groups, nil
}

// NewFromConfig builds the backend client for one turn. A non-empty credential
// replaces the configured API keys of every key-based group. The clients are
// wrapped in a FallbackClient. When only key-based groups exist and none
// has a key, apperr.ErrMissingCredential is returned.
func NewFromConfig(rawLLM jsoniter.RawMessage, sys *config.SystemConfig, credential string) (Client, error) {
	groups, err := ParseGroups(rawLLM)
	if err != nil {
		return nil, err
	}
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}

	opts := GenerationOptions{
		Temperature: sys.Temperature,
		Stop:        DefaultStop,
	}

	var all []Client
	missingKey := false
	for _, group := range groups {
		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type)
			continue
		}

		if ca, ok := factory.(CredentialAware); ok && ca.AcceptsCredential() {
			if credential != "" {
				group.APIKeys = []string{credential}
			}
			if len(group.APIKeys) == 0 {
				missingKey = true
				continue
			}
		}
		if len(group.Models) == 0 {
			group.Models = []string{sys.DefaultModel}
		}

		clients, err := factory.Create(group, opts, sys)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}
		slog.Debug("Loaded LLM group", "type", group.Type, "clients", len(clients))
		all = append(all, clients...)
	}

	if len(all) == 0 {
		if missingKey {
			return nil, apperr.ErrMissingCredential
		}
		return nil, apperr.New(apperr.KindConfiguration, "llm.NewFromConfig", "no LLM clients could be initialized")
	}

	// A single client is wrapped too so retries and the per-attempt timeout
	// always apply.
	var client Client = &FallbackClient{
		Clients:        all,
		MaxRetries:     sys.MaxRetries,
		RetryDelay:     time.Duration(sys.RetryDelayMs) * time.Millisecond,
		AttemptTimeout: time.Duration(sys.LLMTimeoutMs) * time.Millisecond,
	}
	if sys.DebugPrompts {
		client = NewPromptDebugger(client, DefaultDebugDir)
	}
	return client, nil
}

// NeedsCredential reports whether every usable group requires an API key and
// none is configured, i.e. a user-supplied key is mandatory.
func NeedsCredential(rawLLM jsoniter.RawMessage) bool {
	groups, err := ParseGroups(rawLLM)
	if err != nil {
		return false
	}
	for _, g := range groups {
		factory, ok := GetProviderFactory(g.Type)
		if !ok {
			continue
		}
		ca, keyed := factory.(CredentialAware)
		if !keyed || !ca.AcceptsCredential() || len(g.APIKeys) > 0 {
			return false
		}
	}
	return true
}
