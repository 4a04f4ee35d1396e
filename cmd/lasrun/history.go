package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/db"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run history",
	}
	cmd.AddCommand(
		a.historyListCmd(),
		a.historyShowCmd(),
		a.historyPipelinesCmd(),
		a.historyStatsCmd(),
		a.historyPruneCmd(),
	)
	return cmd
}

func (a *app) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sinceTime turns a look-back window into a start time; zero keeps all.
func sinceTime(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-window)
}

func (a *app) historyListCmd() *cobra.Command {
	var (
		f      db.RunFilter
		window time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.history(true)
			if err != nil {
				return err
			}
			f.Since = sinceTime(window)
			runs, err := store.ListRuns(cmd.Context(), f)
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(runs)
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tTOOL\tSTAGE\tSTATUS\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Tool, r.Stage, r.Status, r.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&f.Tool, "tool", "", "only runs of this tool")
	cmd.Flags().StringVar(&f.Status, "status", "", "only runs with this status (ok, warning, error, dry_run)")
	cmd.Flags().StringVar(&f.PipelineRunID, "pipeline", "", "only stages of this pipeline run")
	cmd.Flags().DurationVar(&window, "since", 0, "only runs started within this window (e.g. 24h)")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) historyShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its console output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.history(true)
			if err != nil {
				return err
			}
			r, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(r)
			}
			fmt.Fprintf(a.stdout, "run:      %s\n", r.RunID)
			if r.PipelineRunID != "" {
				fmt.Fprintf(a.stdout, "pipeline: %s (stage %s)\n", r.PipelineRunID, r.Stage)
			}
			fmt.Fprintf(a.stdout, "tool:     %s\n", r.Tool)
			fmt.Fprintf(a.stdout, "host:     %s\n", r.Host)
			fmt.Fprintf(a.stdout, "started:  %s\n", r.StartedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(a.stdout, "duration: %s\n", r.Duration)
			fmt.Fprintf(a.stdout, "status:   %s (exit %d, %d errors, %d warnings)\n", r.Status, r.ExitCode, r.Errors, r.Warnings)
			fmt.Fprintf(a.stdout, "command:  %s\n", r.CommandLine)
			if len(r.OutputTail) > 0 {
				fmt.Fprintf(a.stdout, "output:\n  %s\n", strings.Join(r.OutputTail, "\n  "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) historyPipelinesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "List recorded pipeline runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.history(true)
			if err != nil {
				return err
			}
			runs, err := store.ListPipelineRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PIPELINE RUN\tSTARTED\tNAME\tSTATUS\tSTAGES\tFAILED\tDURATION")
			for _, p := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					p.PipelineRunID, p.StartedAt.Local().Format(time.DateTime), p.Name, p.Status, p.Stages, p.Failed, p.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of pipeline runs (0 for all)")
	return cmd
}

func (a *app) historyStatsCmd() *cobra.Command {
	var (
		window time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Per-tool run counts and duration statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.history(true)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context(), sinceTime(window))
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(stats)
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "TOOL\tRUNS\tOK\tWARN\tERR\tMEAN s\tSTDDEV s\tMEDIAN s\tP95 s\tMAX s\t")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
					s.Tool, s.Count, s.OK, s.Warning, s.Error, s.Mean, s.StdDev, s.Median, s.P95, s.Longest)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&window, "since", 0, "only runs started within this window (e.g. 720h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) historyPruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := a.history(true)
			if err != nil {
				return err
			}
			n, err := store.DeleteBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "deleted %d run(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "delete runs started before this age")
	return cmd
}
