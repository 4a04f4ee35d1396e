package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/remote"
)

// toolCmd exposes one tool as a subcommand whose flags are its parameters.
func (a *app) toolCmd(t *lastools.Tool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     t.Name + " [flags]",
		Short:   t.Summary,
		GroupID: groupID(t.Group),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTool(cmd.Context(), t, cmd.Flags())
		},
	}
	t.Define(cmd.Flags())
	cmd.Flags().SortFlags = false
	return cmd
}

func (a *app) runTool(ctx context.Context, t *lastools.Tool, fs *pflag.FlagSet) error {
	addr, err := a.remoteAddr()
	if err != nil {
		return err
	}
	if addr != "" {
		return a.runRemote(ctx, addr, t, fs)
	}

	env, err := a.env()
	if err != nil {
		return err
	}
	if err := lastools.ApplyDefaults(fs, a.defaults()); err != nil {
		return err
	}
	results, runErr := t.Run(ctx, env, fs, a.feedback())
	a.printResults(results)
	if runErr != nil {
		return runErr
	}
	return failure(results)
}

func (a *app) runRemote(ctx context.Context, addr string, t *lastools.Tool, fs *pflag.FlagSet) error {
	client, conn, err := remote.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := client.Run(ctx, &remote.RunRequest{
		Tool:        t.Name,
		Params:      toolParams(t, fs),
		DryRun:      a.dryRun,
		HaltOnError: a.haltOnError || a.settings.HaltOnError,
	})
	if err != nil {
		return fmt.Errorf("remote run on %s: %w", addr, err)
	}
	resp.Replay(a.feedback())
	a.printResults(resp.Results)
	return failure(resp.Results)
}

// toolParams returns the tool flags set on the command line. Settings
// defaults are left to the server.
func toolParams(t *lastools.Tool, fs *pflag.FlagSet) map[string]string {
	own := pflag.NewFlagSet(t.Name, pflag.ContinueOnError)
	t.Define(own)
	params := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		if own.Lookup(f.Name) != nil {
			params[f.Name] = f.Value.String()
		}
	})
	return params
}

func (a *app) printResults(results []*lastools.Result) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for _, r := range results {
		name := r.Tool
		if r.Stage != "" {
			name = r.Stage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Status, name, r.Duration.Round(time.Millisecond), r.CommandLine)
	}
	w.Flush()
}

// failure turns a failed run into exit code 1.
func failure(results []*lastools.Result) error {
	if err := lastools.FirstFailure(results); err != nil {
		return &exitError{Code: 1, Message: err.Error()}
	}
	return nil
}
