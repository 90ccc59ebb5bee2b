package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ohtakaisei/ronpaou/pkg/channels"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/gateway"
	"github.com/ohtakaisei/ronpaou/pkg/handler"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
	"github.com/ohtakaisei/ronpaou/pkg/monitor"
	"github.com/ohtakaisei/ronpaou/pkg/session"
)

const (
	debugRetention     = 7 * 24 * time.Hour
	debugPruneInterval = time.Hour
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the configured channels and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the gateway and rebuilds it whenever a config file changes.
// Sessions live in one store so history survives a rebuild.
func (a *app) serve(ctx context.Context) error {
	cfg, sys, err := a.loadConfig()
	if err != nil {
		return err
	}
	monitor.PrintBanner(os.Stdout)

	store := session.NewStore(sys.HistoryObservationLimit)
	pruneDumps := sys.DebugPrompts
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gw, err := buildGateway(ctx, cfg, sys, store)
		if err != nil {
			return err
		}
		reload := config.WatchConfig(ctx, a.configPath, a.systemPath)

		for {
			select {
			case <-ctx.Done():
				slog.Info("Shutdown signal received, stopping services")
				gw.StopAll()
				return nil

			case _, ok := <-reload:
				if !ok {
					reload = nil
					continue
				}
				nextCfg, nextSys, err := a.loadConfig()
				if err != nil {
					slog.Error("Config reload failed, keeping current gateway", "error", err)
					continue
				}
				slog.Info("Config changed, rebuilding gateway")
				gw.StopAll()
				next, err := buildGateway(ctx, nextCfg, nextSys, store)
				if err != nil {
					slog.Error("Rebuild failed, restoring previous config", "error", err)
					if next, err = buildGateway(ctx, cfg, sys, store); err != nil {
						return err
					}
				} else {
					cfg, sys = nextCfg, nextSys
				}
				gw = next
			}
		}
	})

	if pruneDumps {
		g.Go(func() error {
			ticker := time.NewTicker(debugPruneInterval)
			defer ticker.Stop()
			for {
				if n := llm.PruneDebugDumps(llm.DefaultDebugDir, debugRetention); n > 0 {
					slog.Info("Pruned prompt dumps", "count", n)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}

	return g.Wait()
}

func buildGateway(ctx context.Context, cfg *config.Config, sys *config.SystemConfig, store *session.Store) (*gateway.GatewayManager, error) {
	runner, registry, err := newRunner(cfg, sys)
	if err != nil {
		return nil, err
	}

	chs := channels.LoadFromConfig(cfg.Channels, sys)
	if len(chs) == 0 {
		return nil, errors.New("no channels could be started; check the 'channels' section of config.json")
	}

	h := handler.NewChatHandler(runner, registry, store, handler.Options{
		DefaultMode:       cfg.DefaultMode,
		DefaultPersona:    cfg.DefaultPersona,
		RequireCredential: llm.NeedsCredential(cfg.LLM),
		BaseContext:       ctx,
	})

	return gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithChannel(chs...).
		WithHandler(h).
		Build()
}
