package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
)

func newLaunchCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "launch <model-id> [--miner-id-index N] [--port N] [--gpu-ids IDS]",
		Short: "Resolve, check, plan and run the inference worker",
		Long: `Resolve the model in the catalog, verify it fits in the free memory of the
first GPU in --gpu-ids, compute the memory utilization ratio and run the worker
in the foreground. Flags are read in order; parsing stops at the first
unrecognized token and everything after it is ignored.

Settings come from the config file and MODELRUN_* variables
(MODELRUN_CONFIG, MODELRUN_CATALOG_URL, MODELRUN_WORKER, MODELRUN_DRY_RUN, ...).`,
		Example:            "  modelrun launch yi-34b-gptq --miner-id-index 1 --port 9000 --gpu-ids 0,1",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, tokens []string) error {
			return st.launch(cmd, tokens)
		},
	}
}

// launch runs the pipeline for "<model-id> [flags]" and blocks on the worker.
// It backs both the root command and the launch subcommand.
func (st *state) launch(cmd *cobra.Command, tokens []string) error {
	tokens = st.takeGlobalFlags(tokens)
	if len(tokens) > 0 && (tokens[0] == "-h" || tokens[0] == "--help") {
		return cmd.Help()
	}
	if len(tokens) == 0 || strings.HasPrefix(tokens[0], "-") {
		return launcher.ErrUsage("launch requires a model id as its first argument")
	}
	modelID := tokens[0]
	args, err := launcher.ParseArgs(tokens[1:])
	if err != nil {
		return err
	}

	a, err := st.setup(true, metrics.New(false))
	if err != nil {
		return err
	}
	defer a.writeTextfile()
	if len(args.Rest) > 0 {
		a.log.Warn().Strs("ignored", args.Rest).Msg("unrecognized launch arguments")
	}

	if a.cfg.Worker.DryRun {
		res, err := a.runner(nil).Plan(st.ctx, modelID, args)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	}

	worker, err := launcher.ResolveWorker(a.cfg.Worker.Path, a.cfg.Worker.Dir, a.cfg.Worker.Pattern)
	if err != nil {
		return err
	}
	return a.runner(a.launcher(worker, st.streams)).Run(st.ctx, modelID, args)
}

// takeGlobalFlags consumes leading --config/--log-level flags, which cobra
// leaves in place when flag parsing is disabled.
func (st *state) takeGlobalFlags(tokens []string) []string {
	for len(tokens) > 0 {
		name, val, hasVal := strings.Cut(tokens[0], "=")
		var dst *string
		switch name {
		case "--config":
			dst = &st.configPath
		case "--log-level":
			dst = &st.logLevel
		default:
			return tokens
		}
		if hasVal {
			*dst = val
			tokens = tokens[1:]
			continue
		}
		if len(tokens) < 2 {
			return tokens[1:]
		}
		*dst = tokens[1]
		tokens = tokens[2:]
	}
	return tokens
}
