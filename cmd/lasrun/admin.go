package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lasrun/internal/config"
	"github.com/banshee-data/lasrun/internal/db"
	"github.com/banshee-data/lasrun/internal/version"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run history schema",
	}
	// open without migrating so the version can be inspected and forced
	open := func() (*db.DB, error) {
		if a.settings.HistoryDB == "" {
			return nil, fmt.Errorf("history_db is not set in the settings file")
		}
		return db.OpenDB(a.settings.HistoryDB)
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.MigrateUp(); err != nil {
					return err
				}
				return a.printVersion(store)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.MigrateDown(); err != nil {
					return err
				}
				return a.printVersion(store)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				return a.printVersion(store)
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without migrating (recovers a dirty state)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				store, err := open()
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.MigrateForce(v); err != nil {
					return err
				}
				return a.printVersion(store)
			},
		},
	)
	return cmd
}

func (a *app) printVersion(store *db.DB) error {
	v, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(a.stdout, "schema version %d (%s)\n", v, state)
	return nil
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := a.settings.Marshal()
				if err != nil {
					return err
				}
				_, err = a.stdout.Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the default settings file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(a.stdout, config.DefaultPath())
				return nil
			},
		},
	)
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lasrun version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.stdout, "lasrun %s\n", version.String())
			return nil
		},
	}
}
