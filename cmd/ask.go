package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ohtakaisei/ronpaou/pkg/agent"
	"github.com/ohtakaisei/ronpaou/pkg/api"
	"github.com/ohtakaisei/ronpaou/pkg/apperr"
	"github.com/ohtakaisei/ronpaou/pkg/utils"
)

// credentialEnv supplies the API key when --key is not given.
const credentialEnv = "RONPAOU_API_KEY"

type askOptions struct {
	mode      string
	persona   string
	key       string
	showSteps bool
}

func newAskCommand(a *app) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [opinion...]",
		Short: "Run one turn from the terminal; reads stdin when no argument is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ask(cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "mode id (default: config default_mode)")
	cmd.Flags().StringVarP(&opts.persona, "persona", "p", "", "persona id (default: config default_persona)")
	cmd.Flags().StringVarP(&opts.key, "key", "k", "", "API key (default: $"+credentialEnv+")")
	cmd.Flags().BoolVar(&opts.showSteps, "steps", true, "print reasoning steps to stderr")
	return cmd
}

func (a *app) ask(cmd *cobra.Command, opts *askOptions, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, sys, err := a.loadConfig()
	if err != nil {
		return err
	}
	runner, registry, err := newRunner(cfg, sys)
	if err != nil {
		return err
	}

	mode := firstNonEmpty(opts.mode, cfg.DefaultMode, registry.DefaultModeID())
	personaID := firstNonEmpty(opts.persona, cfg.DefaultPersona, registry.DefaultPersonaID())
	key := firstNonEmpty(opts.key, os.Getenv(credentialEnv))

	stderr := cmd.ErrOrStderr()
	req := agent.Request{
		Credential: key,
		ModeID:     mode,
		PersonaID:  personaID,
		UserText:   text,
	}
	if opts.showSteps {
		req.OnStep = func(s agent.Step) {
			fmt.Fprintf(stderr, "🔍 %s: %s\n", s.Action.Tool, utils.Truncate(s.Observation, 200))
		}
	}

	res, err := runner.Run(cmd.Context(), req)
	if err != nil {
		slog.Error("Turn failed", "kind", apperr.KindOf(apperr.Classify(err)), "error", err)
		return errors.New(apperr.UserMessage(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), api.RenderText(api.Reply{Kind: api.ReplyAnswer, Text: res.Output}, false))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
