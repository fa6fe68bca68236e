package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"modelrun/internal/common/fsutil"
	"modelrun/internal/events"
	"modelrun/pkg/types"
)

// DefaultStopGrace is how long a cancelled worker gets between SIGTERM and SIGKILL.
const DefaultStopGrace = 10 * time.Second

// Options configure a Launcher.
type Options struct {
	// Worker is the path of the worker script or executable.
	Worker string
	// Interpreter runs Worker when set (e.g. python3); empty executes Worker directly.
	Interpreter string
	// Env entries are added on top of the current environment.
	Env map[string]string
	// EnvFile is an optional dotenv file loaded into the worker's environment.
	EnvFile   string
	StopGrace time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Publisher events.Publisher
	Logger    *zerolog.Logger
}

// Launcher starts the inference worker as a blocking child process.
type Launcher struct {
	opts Options
	pub  events.Publisher
	log  zerolog.Logger
}

// New returns a Launcher. Nil stdio fields inherit the parent's.
func New(opts Options) *Launcher {
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	l := &Launcher{opts: opts, pub: events.OrNoop(opts.Publisher), log: zerolog.Nop()}
	if opts.Logger != nil {
		l.log = opts.Logger.With().Str("component", "launcher").Logger()
	}
	return l
}

// Command returns the program and argv used to run the worker for cfg.
func (l *Launcher) Command(cfg types.LaunchConfig) (string, []string) {
	argv := Args(cfg)
	if l.opts.Interpreter == "" {
		return l.opts.Worker, argv
	}
	return l.opts.Interpreter, append([]string{l.opts.Worker}, argv...)
}

// Process is a started worker.
type Process struct {
	cmd   *exec.Cmd
	cfg   types.LaunchConfig
	runID string
	l     *Launcher
	start time.Time
}

// Pid returns the worker's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Start spawns the worker. Cancelling ctx sends SIGTERM, then SIGKILL after
// the stop grace period. Spawn events carry the run id found in ctx.
func (l *Launcher) Start(ctx context.Context, cfg types.LaunchConfig) (*Process, error) {
	if !fsutil.RegularFile(l.opts.Worker) {
		return nil, ErrMissingWorker(l.opts.Worker)
	}
	env, err := l.environ()
	if err != nil {
		return nil, err
	}
	name, argv := l.Command(cfg)
	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = l.opts.StopGrace
	cmd.Env = env
	cmd.Stdin = l.opts.Stdin
	cmd.Stdout = l.opts.Stdout
	cmd.Stderr = l.opts.Stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrMissingWorker(fmt.Sprintf("interpreter %q: %v", name, err))
		}
		return nil, fmt.Errorf("start worker: %w", err)
	}
	runID := events.RunIDFrom(ctx)
	l.log.Info().Int("pid", cmd.Process.Pid).Str("run_id", runID).Str("worker", l.opts.Worker).Strs("args", Args(cfg)).Msg("worker started")
	l.pub.Publish(events.Event{Name: events.SpawnStart, RunID: runID, ModelID: cfg.ModelID, Fields: map[string]any{"pid": cmd.Process.Pid}})
	return &Process{cmd: cmd, cfg: cfg, runID: runID, l: l, start: time.Now()}, nil
}

// Wait blocks until the worker exits. A non-zero exit becomes a WorkerExit error.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	code := 0
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	p.l.pub.Publish(events.Event{Name: events.SpawnExit, RunID: p.runID, ModelID: p.cfg.ModelID, Fields: map[string]any{"code": code}})
	ev := p.l.log.Info()
	if err != nil {
		ev = p.l.log.Warn().Err(err)
	}
	ev.Int("code", code).Dur("uptime", time.Since(p.start)).Msg("worker exited")
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code <= 0 {
			// killed by a signal
			code = 1
		}
		return ErrWorkerExit(code, err)
	}
	return fmt.Errorf("wait worker: %w", err)
}

// Run starts the worker and waits for it.
func (l *Launcher) Run(ctx context.Context, cfg types.LaunchConfig) error {
	return l.Launch(ctx, cfg, nil)
}

// Launch is Run with a hook called once the worker process exists.
func (l *Launcher) Launch(ctx context.Context, cfg types.LaunchConfig, started func(pid int)) error {
	p, err := l.Start(ctx, cfg)
	if err != nil {
		return err
	}
	if started != nil {
		started(p.Pid())
	}
	return p.Wait()
}

// environ merges the current environment, the dotenv file and the explicit
// map, later sources winning. The parent environment is not modified.
func (l *Launcher) environ() ([]string, error) {
	extra := map[string]string{}
	if l.opts.EnvFile != "" {
		p, err := fsutil.ExpandHome(l.opts.EnvFile)
		if err != nil {
			return nil, err
		}
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", p, err)
		}
		for k, v := range m {
			extra[k] = v
		}
	}
	for k, v := range l.opts.Env {
		extra[k] = v
	}
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env, nil
}
