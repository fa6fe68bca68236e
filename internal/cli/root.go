// Package cli implements the modelrun command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelrun/internal/config"
	"modelrun/internal/launcher"
	"modelrun/internal/metrics"
	"modelrun/pkg/types"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// state carries what the commands share: global flags, environment and the
// logger used at the CLI boundary.
type state struct {
	ctx        context.Context
	getenv     func(string) string
	streams    streams
	configPath string
	logLevel   string
	log        zerolog.Logger
}

// setup loads the configuration, applies env and flag overrides, and builds the app.
func (st *state) setup(needCatalog bool, rec *metrics.Recorder) (*app, error) {
	cfg, err := config.LoadOptional(st.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(st.getenv); err != nil {
		return nil, err
	}
	if st.logLevel != "" {
		cfg.LogLevel = st.logLevel
	}
	lvl, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	st.log = newLogger(st.streams.err, lvl)
	validate := cfg.ValidateLocal
	if needCatalog {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newApp(cfg, st.log, rec), nil
}

func envStr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:   "modelrun <model-id> [--miner-id-index N] [--port N] [--gpu-ids IDS]",
		Short: "Resolve a model, size its GPU memory share and launch the inference worker",
		Long: `With a model id as the first argument modelrun behaves like "modelrun launch":
it resolves the model, checks GPU memory, computes the utilization ratio and runs
the worker. The subcommands below inspect or serve the same pipeline.`,
		// the model id is not a subcommand, and launch flags are parsed by launcher.ParseArgs
		Example:            "  modelrun yi-34b-gptq --miner-id-index 1 --port 9000 --gpu-ids 0,1\n  modelrun plan yi-34b-gptq",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, tokens []string) error {
			if len(tokens) == 0 {
				return cmd.Help()
			}
			return st.launch(cmd, tokens)
		},
	}
	root.SetIn(st.streams.in)
	root.SetOut(st.streams.out)
	root.SetErr(st.streams.err)

	// Persistent flags -> state
	root.PersistentFlags().StringVar(&st.configPath, "config", envStr(st.getenv, "MODELRUN_CONFIG", ""), "Config file (.yaml|.yml|.json|.toml; defaults MODELRUN_CONFIG)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults MODELRUN_LOG_LEVEL or config)")

	root.AddCommand(newLaunchCmd(st), newPlanCmd(st), newModelsCmd(st), newGPUsCmd(st), newRatioCmd(st), newServeCmd(st), newCompletionCmd(root, st))
	return root
}

func newPlanCmd(st *state) *cobra.Command {
	var args types.LaunchArgs
	cmd := &cobra.Command{
		Use:     "plan <model-id>",
		Short:   "Resolve and size a model without launching the worker",
		Example: "  modelrun plan yi-34b-gptq --gpu-ids 1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			if args.MinerIndex < 0 {
				return launcher.ErrUsage("--miner-id-index must be >= 0, got %d", args.MinerIndex)
			}
			a, err := st.setup(true, metrics.New(false))
			if err != nil {
				return err
			}
			defer a.writeTextfile()
			res, err := a.runner(nil).Plan(st.ctx, pos[0], args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&args.MinerIndex, "miner-id-index", launcher.DefaultMinerIndex, "Miner index passed to the worker")
	cmd.Flags().IntVar(&args.Port, "port", launcher.DefaultPort, "Port passed to the worker")
	cmd.Flags().StringVar(&args.GPUIDs, "gpu-ids", launcher.DefaultGPUIDs, "Comma separated GPU ids; the first one is checked")
	return cmd
}

func newModelsCmd(st *state) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.setup(true, nil)
			if err != nil {
				return err
			}
			recs, err := a.Models(st.ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), types.ModelsResponse{Models: recs})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE_GB\tTYPE\tSOURCE\tREVISION")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, floatOrDash(r.SizeGB), strOrDash(r.Type), strOrDash(r.HFID), strOrDash(r.HFBranch))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newGPUsCmd(st *state) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "gpus",
		Short: "Show free memory per GPU",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.setup(false, nil)
			if err != nil {
				return err
			}
			gpus, err := a.GPUs(st.ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), types.GPUsResponse{GPUs: gpus})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tNAME\tFREE")
			for _, g := range gpus {
				name := g.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", g.Index, name, humanize.IBytes(uint64(g.FreeMB)*1024*1024))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newRatioCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "ratio <model-id> <available-mb>",
		Short:   "Compute the memory utilization ratio for a model",
		Example: "  modelrun ratio yi-34b-gptq 45000",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			avail, err := strconv.Atoi(pos[1])
			if err != nil || avail < 0 {
				return launcher.ErrUsage("available-mb must be a non-negative integer, got %q", pos[1])
			}
			a, err := st.setup(false, nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), types.RatioResponse{Model: pos[0], AvailableMB: avail, UtilizationPlan: a.Ratio(pos[0], avail)})
		},
	}
}

func newCompletionCmd(root *cobra.Command, st *state) *cobra.Command {
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(st.streams.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(st.streams.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(st.streams.out, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(st.streams.out) }})
	return completionCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func floatOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// ExitCode maps an error to the process exit status: 0 on success, the
// worker's own code when it failed after launch, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code := launcher.WorkerExitCode(err); code > 0 {
		return code
	}
	return 1
}

// run executes one command line and returns the exit status.
func run(ctx context.Context, args []string, s streams, getenv func(string) string) int {
	lvl, _ := parseLogLevel(getenv("MODELRUN_LOG_LEVEL"))
	st := &state{ctx: ctx, getenv: getenv, streams: s, log: newLogger(s.err, lvl)}
	root := newRootCmd(st)
	if args == nil {
		// cobra reads os.Args when args is nil
		args = []string{}
	}
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	code := ExitCode(err)
	ev := st.log.Error().Err(err).Int("exit_code", code)
	if launcher.IsUsage(err) {
		ev = ev.Str("hint", "see modelrun --help")
	}
	ev.Msg("modelrun failed")
	return code
}

// MainWithArgs runs modelrun with explicit arguments and the process environment.
func MainWithArgs(args []string) int {
	ctx, stop := signalContext()
	defer stop()
	return run(ctx, args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}, os.Getenv)
}

// Main runs modelrun with os.Args.
func Main() int { return MainWithArgs(os.Args[1:]) }
