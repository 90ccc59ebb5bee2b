// Package cmd holds the command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ohtakaisei/ronpaou/pkg/agent"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/llm"
	"github.com/ohtakaisei/ronpaou/pkg/monitor"
	"github.com/ohtakaisei/ronpaou/pkg/persona"
	"github.com/ohtakaisei/ronpaou/pkg/tools"
	"github.com/ohtakaisei/ronpaou/pkg/tools/search"

	_ "github.com/ohtakaisei/ronpaou/pkg/channels/autoload" // registers channels
	_ "github.com/ohtakaisei/ronpaou/pkg/llm/autoload"      // registers LLM providers
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	systemPath string
	logLevel   string

	sys       *config.SystemConfig
	logCloser io.Closer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ronpaou",
		Short:         "Devil's advocate assistant that argues against your opinion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setup()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.json", "application config file")
	root.PersistentFlags().StringVar(&a.systemPath, "system", "system.json", "system config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override system.log_level")

	root.AddCommand(newServeCommand(a), newAskCommand(a), newCatalogCommand(a))
	return root
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// setup loads system.json and configures logging.
func (a *app) setup() {
	a.sys = config.LoadSystemConfig(a.systemPath)
	level := a.sys.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logCloser = monitor.SetupSlog(level, monitor.FileSink{
		Path:       a.sys.LogFile,
		MaxSizeMB:  a.sys.LogMaxSizeMB,
		MaxBackups: a.sys.LogMaxBackups,
		MaxAgeDays: a.sys.LogMaxAgeDays,
	})
}

// loadConfig reads both config files. system.json is re-read so a reload
// picks up engine changes as well.
func (a *app) loadConfig() (*config.Config, *config.SystemConfig, error) {
	cfg, sys, err := config.LoadFrom(a.configPath, a.systemPath)
	if err != nil {
		return nil, nil, err
	}
	a.sys = sys
	return cfg, sys, nil
}

// registryFor returns the catalogue of cfg, or the built-in one.
func registryFor(cfg *config.Config) (*persona.Registry, error) {
	if cfg == nil || cfg.Catalog == nil {
		return persona.Default(), nil
	}
	return persona.FromConfig(cfg.Catalog)
}

// newRunner wires the catalogue, backend factory and search tool into a Runner.
func newRunner(cfg *config.Config, sys *config.SystemConfig) (*agent.Runner, *persona.Registry, error) {
	registry, err := registryFor(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DefaultMode != "" {
		if _, ok := registry.Mode(cfg.DefaultMode); !ok {
			return nil, nil, fmt.Errorf("default_mode %q is not in the catalogue", cfg.DefaultMode)
		}
	}
	if cfg.DefaultPersona != "" {
		if _, ok := registry.Persona(cfg.DefaultPersona); !ok {
			return nil, nil, fmt.Errorf("default_persona %q is not in the catalogue", cfg.DefaultPersona)
		}
	}

	clients := func(credential string) (llm.Client, error) {
		return llm.NewFromConfig(cfg.LLM, sys, credential)
	}

	var toolFactory agent.ToolFactory
	if sys.EnableTools {
		// One adapter for all turns so the rate limiter is shared.
		web := search.New(cfg.Search, time.Duration(sys.SearchTimeoutMs)*time.Millisecond)
		toolFactory = func() []tools.Tool { return []tools.Tool{web} }
	}

	limits := agent.Limits{
		MaxIterations:    sys.MaxIterations,
		MaxExecutionTime: sys.MaxExecutionTime(),
	}
	return agent.NewRunner(persona.NewComposer(registry), clients, toolFactory, limits), registry, nil
}
