package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/db"
	"github.com/banshee-data/lasrun/internal/report"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		htmlPath string
		pngPath  string
		window   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write charts of the run history (HTML and/or PNG)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if htmlPath == "" && pngPath == "" {
				return fmt.Errorf("nothing to write: give --html and/or --png")
			}
			store, err := a.history(true)
			if err != nil {
				return err
			}
			since := time.Now().Add(-window)

			if htmlPath != "" {
				stats, err := store.Stats(cmd.Context(), since)
				if err != nil {
					return err
				}
				if err := writeFile(htmlPath, func(f *os.File) error {
					return report.WriteHTML(f, stats, "since "+since.Format(time.RFC3339))
				}); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "wrote %s\n", htmlPath)
			}
			if pngPath != "" {
				runs, err := store.ListRuns(cmd.Context(), db.RunFilter{Since: since})
				if err != nil {
					return err
				}
				if err := writeFile(pngPath, func(f *os.File) error {
					return report.WritePNG(f, runs)
				}); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "wrote %s\n", pngPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "write the HTML report to this file")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the duration chart to this PNG file")
	cmd.Flags().DurationVar(&window, "window", report.DefaultWindow, "how far back the report looks")
	return cmd
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
