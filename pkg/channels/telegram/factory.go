package telegram

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/ohtakaisei/ronpaou/pkg/channels"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/gateway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type TelegramFactory struct{}

func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, system *config.SystemConfig) (gateway.Channel, error) {
	var tgCfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	if tgCfg.Token == "" {
		return nil, errors.New("missing telegram token")
	}
	if system == nil {
		system = config.DefaultSystemConfig()
	}
	return NewTelegramChannel(tgCfg, system.TelegramMessageLimit, system.ShowSteps)
}

func init() {
	channels.RegisterChannel(ChannelID, &TelegramFactory{})
}
