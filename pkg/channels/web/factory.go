package web

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/channels"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/gateway"
)

type WebFactory struct{}

func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (gateway.Channel, error) {
	cfg := WebConfig{Port: 8080}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}
	return NewWebChannel(cfg), nil
}

func init() {
	channels.RegisterChannel(ChannelID, &WebFactory{})
}
