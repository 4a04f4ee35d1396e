package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/config"
	"github.com/banshee-data/lasrun/internal/db"
	"github.com/banshee-data/lasrun/internal/fsutil"
	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/monitoring"
	"github.com/banshee-data/lasrun/internal/provider"
)

// remoteFromSettings is the value of a bare --remote.
const remoteFromSettings = "settings"

// app holds the state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	dryRun      bool
	remote      string
	debug       bool
	quiet       bool
	haltOnError bool

	settings config.Settings
	registry *provider.Registry

	// builder replaces the process builder; tests use a mock.
	builder lastools.CommandBuilder
	store   *db.DB
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		registry: provider.Default(),
	}
}

// execute runs the command line args and releases what the run opened.
func (a *app) execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			monitoring.Logf("failed to close history database: %v", err)
		}
		a.store = nil
	}
}

var toolGroups = []*cobra.Group{
	{ID: "tools", Title: "LAStools:"},
	{ID: "production", Title: "LAStools Production (folders of files):"},
	{ID: "pipelines", Title: "LAStools Pipelines:"},
}

func groupID(group string) string {
	switch group {
	case lastools.GroupTools:
		return "tools"
	case lastools.GroupProduction:
		return "production"
	case lastools.GroupPipelines:
		return "pipelines"
	}
	return ""
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lasrun",
		Short:         "Assemble and run LAStools command lines and pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			monitoring.SetLogger(log.New(a.stderr, "", log.LstdFlags).Printf)
			monitoring.SetDebug(a.debug)
			s, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.settings = s
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "settings file (default "+config.DefaultPath()+")")
	pf.BoolVar(&a.dryRun, "dry-run", false, "print command lines without running them")
	pf.StringVar(&a.remote, "remote", "", "run on the runner service at this address (bare --remote uses remote.address)")
	pf.Lookup("remote").NoOptDefVal = remoteFromSettings
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "hide LAStools console output, keep warnings and errors")
	pf.BoolVar(&a.haltOnError, "halt-on-error", false, "stop a pipeline at the first failed stage")

	root.AddGroup(toolGroups...)
	for _, t := range a.registry.List() {
		root.AddCommand(a.toolCmd(t))
	}
	root.AddCommand(
		a.listCmd(),
		a.pipelineCmd(),
		a.historyCmd(),
		a.reportCmd(),
		a.serveCmd(),
		a.migrateCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// remoteAddr resolves --remote. Empty means run locally.
func (a *app) remoteAddr() (string, error) {
	switch a.remote {
	case "":
		return "", nil
	case remoteFromSettings:
		if a.settings.Remote.Address == "" {
			return "", fmt.Errorf("--remote given without an address and remote.address is not set")
		}
		return a.settings.Remote.Address, nil
	}
	return a.remote, nil
}

func (a *app) defaults() lastools.Defaults {
	return lastools.Defaults{
		CPU64:              a.settings.Use64(),
		Cores:              a.settings.Cores,
		TemporaryDirectory: a.settings.TempDirectory,
	}
}

func (a *app) feedback() lastools.Feedback {
	return lastools.LogFeedback{Quiet: a.quiet}
}

// history opens the run history. When it is not configured the result is
// nil, or an error if required is set.
func (a *app) history(required bool) (*db.DB, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.settings.HistoryDB == "" {
		if required {
			return nil, fmt.Errorf("history_db is not set in the settings file")
		}
		return nil, nil
	}
	store, err := db.NewDB(a.settings.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	a.store = store
	return store, nil
}

// env builds the local execution environment.
func (a *app) env() (*lastools.Env, error) {
	loc := lastools.NewLocator(a.settings.LastoolsFolder, a.settings.WineFolder)
	runner := lastools.NewRunner(loc.ExitCodeReliable())
	runner.DryRun = a.dryRun
	switch {
	case a.builder != nil:
		runner.Builder = a.builder
	case !a.dryRun:
		if err := loc.Check(); err != nil {
			return nil, err
		}
	}

	store, err := a.history(false)
	if err != nil {
		return nil, err
	}
	if store != nil {
		runner.Recorder = store
	}
	return &lastools.Env{
		Locator:     loc,
		Runner:      runner,
		FS:          fsutil.OSFileSystem{},
		HaltOnError: a.haltOnError || a.settings.HaltOnError,
	}, nil
}
