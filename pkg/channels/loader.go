package channels

import (
	"log/slog"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/gateway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// enabledProbe reads the common "enabled" switch of a channel block.
type enabledProbe struct {
	Enabled *bool `json:"enabled"`
}

// LoadFromConfig resolves a factory for every configured channel and returns
// the channels it could build. Unknown names, disabled blocks and factory
// errors are logged and skipped.
func LoadFromConfig(configs map[string]jsoniter.RawMessage, system *config.SystemConfig) []gateway.Channel {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []gateway.Channel
	for _, name := range names {
		rawConfig := configs[name]

		var probe enabledProbe
		if err := json.Unmarshal(rawConfig, &probe); err == nil && probe.Enabled != nil && !*probe.Enabled {
			slog.Info("Channel disabled", "name", name)
			continue
		}

		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name, "known", RegisteredChannels())
			continue
		}

		channel, err := factory.Create(rawConfig, system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			continue
		}

		out = append(out, channel)
		slog.Info("Channel loaded", "name", name)
	}
	return out
}
