package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfoltran/dbsync/internal/dbconn"
	"github.com/jfoltran/dbsync/internal/migrate"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migration files to the target database",
	Long: `Migrate applies every unapplied ".sql" file in --dir to the target
database, in lexical filename order, tracking applied versions in a
schema_migrations table. This is a standalone operation, run separately
from a sync pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateDir == "" {
			return fmt.Errorf("--dir is required")
		}

		params, err := cfg.TargetConnectionParams()
		if err != nil {
			return fmt.Errorf("target url: %w", err)
		}

		pool, err := dbconn.OpenPool(cmd.Context(), params)
		if err != nil {
			return fmt.Errorf("connect to target: %w", err)
		}
		defer pool.Close()

		applier := migrate.New(pool, logger.Zerolog())
		result, err := applier.Apply(cmd.Context(), migrateDir)
		if err != nil {
			return err
		}

		fmt.Printf("applied %d migration(s), skipped %d already-applied\n", len(result.Applied), len(result.Skipped))
		for _, v := range result.Applied {
			fmt.Printf("  + %s\n", v)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "Directory of .sql migration files to apply")
	rootCmd.AddCommand(migrateCmd)
}
