package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amp-labs/usm/build"
	"github.com/amp-labs/usm/cli"
	"github.com/amp-labs/usm/logger"
	"github.com/amp-labs/usm/shutdown"
	"github.com/amp-labs/usm/stage"
	"github.com/amp-labs/usm/statemachine"
	"github.com/amp-labs/usm/statemachine/branching"
	"github.com/amp-labs/usm/statemachine/observe"
	smtesting "github.com/amp-labs/usm/statemachine/testing"
	"github.com/amp-labs/usm/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	exitOK       = 0
	exitMismatch = 1
	exitUsage    = 2
	exitFailure  = 3
)

const (
	actionStep        = "Step"
	actionTogglePathA = "Toggle path A"
	actionToggleError = "Toggle error"
	actionRoutes      = "Show routes"
	actionScript      = "Run script"
	actionReset       = "Reset"
	actionQuit        = "Quit"
)

var menu = []string{ //nolint:gochecknoglobals
	actionStep,
	actionTogglePathA,
	actionToggleError,
	actionRoutes,
	actionScript,
	actionReset,
	actionQuit,
}

var errUnexpectedArgs = errors.New("unexpected arguments")

type options struct {
	script  string
	name    string
	metrics bool
	version bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("usm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.script, "script", "", "run the YAML scenarios in `file` instead of prompting")
	fs.StringVar(&opts.name, "name", "branching", "machine name used in logs, spans and metrics")
	fs.BoolVar(&opts.metrics, "metrics", false, "print the machine's prometheus metrics on exit")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() > 0 {
		fs.Usage()

		return opts, fmt.Errorf("%w: %v", errUnexpectedArgs, fs.Args())
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, prompter cli.Prompter) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	if opts.version {
		_, _ = fmt.Fprintf(stdout, "usm %s\n", build.Read())

		return exitOK
	}

	logger.ConfigureLogging(ctx, "usm", logger.WithOutput(stderr))

	runningEnv := stage.FromEnv(ctx)
	ctx = logger.With(ctx, "stage", runningEnv.String())

	if err := setupTelemetry(ctx, runningEnv); err != nil {
		logger.Get(ctx).Error("Telemetry setup failed", "error", err)

		return exitFailure
	}

	defer shutdown.RunHooks(ctx)

	code := exitOK

	if opts.script != "" {
		if err := runScript(ctx, opts.script, opts.name, stdout); err != nil {
			logger.Get(ctx).Error("Script failed", "error", err, "script", opts.script)

			code = exitMismatch
			if !errors.Is(err, smtesting.ErrUnexpectedState) {
				code = exitFailure
			}
		}
	} else if err := interactive(ctx, opts.name, prompter, stdout); err != nil {
		logger.Get(ctx).Error("Interactive session failed", "error", err)

		code = exitFailure
	}

	if opts.metrics {
		if err := writeMetrics(stdout); err != nil {
			logger.Get(ctx).Error("Writing metrics failed", "error", err)
		}
	}

	return code
}

func setupTelemetry(ctx context.Context, runningEnv stage.Stage) error {
	cfg, err := telemetry.LoadConfigFromEnv(ctx, runningEnv.String())
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, cfg); err != nil {
		return err
	}

	shutdown.BeforeShutdown(func(ctx context.Context) {
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.Get(ctx).Error("Telemetry shutdown failed", "error", err)
		}
	})

	return nil
}

func newObserved(name string, machine *branching.Machine) *observe.Machine[branching.State] {
	return observe.Wrap(machine.Machine,
		observe.WithName[branching.State](name),
		observe.WithLogging[branching.State](),
		observe.WithMetrics[branching.State](),
	)
}

// scripted lets a scenario step the machine through its observer.
type scripted struct {
	*branching.Machine

	ctx      context.Context //nolint:containedctx
	observed *observe.Machine[branching.State]
}

func (s *scripted) Step() statemachine.Signal {
	return s.observed.Step(s.ctx)
}

func runScript(ctx context.Context, path, name string, out io.Writer) error {
	scenarios, err := smtesting.LoadScenarios(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return err
	}

	for _, sc := range scenarios {
		machine := branching.New()
		target := &scripted{
			Machine:  machine,
			ctx:      logger.With(ctx, "scenario", sc.Name),
			observed: newObserved(name, machine),
		}

		trace, err := smtesting.Play[branching.State](target, sc)
		if err != nil {
			_, _ = fmt.Fprintf(out, "FAIL %s: %s\n", sc.Name, strings.Join(trace, " "))

			return logger.AnnotateError(fmt.Errorf("scenario %q: %w", sc.Name, err), "scenario", sc.Name)
		}

		_, _ = fmt.Fprintf(out, "PASS %s: %s\n", sc.Name, strings.Join(trace, " "))
	}

	return nil
}

func interactive(ctx context.Context, name string, prompter cli.Prompter, out io.Writer) error {
	machine := branching.New()
	observed := newObserved(name, machine)

	for ctx.Err() == nil {
		label := fmt.Sprintf("%s [path_a=%t trigger_error=%t]", observed.State(), machine.PathA, machine.TriggerError)

		_, choice, err := prompter.Select(label, menu...)
		if err != nil {
			if errors.Is(err, cli.ErrQuit) {
				return nil
			}

			return err
		}

		switch choice {
		case actionStep:
			from := observed.State()
			signal := observed.Step(ctx)
			_, _ = fmt.Fprintf(out, "%s --%s--> %s\n", from, signal, observed.State())
		case actionTogglePathA:
			machine.PathA = !machine.PathA
			_, _ = fmt.Fprintf(out, "path_a=%t\n", machine.PathA)
		case actionToggleError:
			machine.TriggerError = !machine.TriggerError
			_, _ = fmt.Fprintf(out, "trigger_error=%t\n", machine.TriggerError)
		case actionRoutes:
			writeRoutes(out, machine.Transitions(), observed.State())
		case actionScript:
			if err := promptScript(ctx, name, prompter, out); err != nil {
				_, _ = fmt.Fprintf(out, "%v\n", err)
			}
		case actionReset:
			ok, err := prompter.Confirm("Reset to " + branching.Start.String())
			if err != nil {
				return err
			}

			if ok {
				machine.Reset()
				_, _ = fmt.Fprintf(out, "%s\n", observed.State())
			}
		case actionQuit:
			return nil
		}
	}

	return nil
}

func promptScript(ctx context.Context, name string, prompter cli.Prompter, out io.Writer) error {
	path, err := prompter.String("Scenario file")
	if err != nil {
		return err
	}

	return runScript(ctx, path, name, out)
}

func writeRoutes(out io.Writer, table *statemachine.Table[branching.State], state branching.State) {
	routes := table.Routes(state)

	for _, signal := range statemachine.Signals {
		next, ok := routes[signal]
		if !ok {
			continue
		}

		_, _ = fmt.Fprintf(out, "  %-6s -> %s\n", signal, next)
	}
}

func writeMetrics(out io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "usm_") {
			continue
		}

		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}

	return nil
}
