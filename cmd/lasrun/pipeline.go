package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/pipeline"
)

func (a *app) pipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run declarative pipelines from HCL files",
	}
	cmd.AddCommand(a.pipelineRunCmd(), a.pipelinePlanCmd())
	return cmd
}

func (a *app) loadPipeline(path string, rawVars []string) (*pipeline.File, error) {
	vars, err := pipeline.ParseVars(rawVars)
	if err != nil {
		return nil, err
	}
	return pipeline.LoadFile(path, vars)
}

func (a *app) pipelineRunCmd() *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:   "run <file.hcl>",
		Short: "Run every stage of a pipeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote != "" {
				return fmt.Errorf("pipeline files run locally; --remote is not supported here")
			}
			f, err := a.loadPipeline(args[0], vars)
			if err != nil {
				return err
			}
			env, err := a.env()
			if err != nil {
				return err
			}
			results, runErr := f.Run(cmd.Context(), env, a.registry.Lookup, a.defaults(), a.feedback())
			a.printResults(results)
			if runErr != nil {
				return runErr
			}
			return failure(results)
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "pipeline variable as name=value (repeatable)")
	return cmd
}

func (a *app) pipelinePlanCmd() *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:   "plan <file.hcl>",
		Short: "Print the command lines of a pipeline file without running them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.loadPipeline(args[0], vars)
			if err != nil {
				return err
			}
			loc := lastools.NewLocator(a.settings.LastoolsFolder, a.settings.WineFolder)
			p, err := f.Plan(a.registry.Lookup, loc, a.defaults())
			if err != nil {
				return err
			}
			for i, st := range p.Stages {
				fmt.Fprintf(a.stdout, "%d/%d %s (%s)\n    %s\n", i+1, len(p.Stages), st.Name, st.Tool, lastools.JoinCommandLine(st.Argv))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "pipeline variable as name=value (repeatable)")
	return cmd
}
