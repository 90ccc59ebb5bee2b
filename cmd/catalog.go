package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohtakaisei/ronpaou/pkg/api"
	"github.com/ohtakaisei/ronpaou/pkg/config"
	"github.com/ohtakaisei/ronpaou/pkg/persona"
)

func newCatalogCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the available modes and personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			if _, err := os.Stat(a.configPath); err == nil {
				if cfg, _, err = a.loadConfig(); err != nil {
					return err
				}
			}
			registry, err := registryFor(cfg)
			if err != nil {
				return err
			}

			c := catalogOf(registry)
			if cfg != nil {
				c.CurrentMode = firstNonEmpty(cfg.DefaultMode, c.CurrentMode)
				c.CurrentPersona = firstNonEmpty(cfg.DefaultPersona, c.CurrentPersona)
			}
			fmt.Fprintln(cmd.OutOrStdout(), api.RenderText(api.Reply{Kind: api.ReplyCatalog, Catalog: c}, false))
			return nil
		},
	}
}

func catalogOf(r *persona.Registry) *api.Catalog {
	c := &api.Catalog{CurrentMode: r.DefaultModeID(), CurrentPersona: r.DefaultPersonaID()}
	for _, m := range r.Modes() {
		c.Modes = append(c.Modes, api.CatalogItem{ID: m.ID, Label: m.Label, Description: m.Description, Icon: m.Icon})
	}
	for _, p := range r.Personas() {
		c.Personas = append(c.Personas, api.CatalogItem{ID: p.ID, Label: p.Label, Description: p.Description, Icon: p.Icon})
	}
	return c
}
