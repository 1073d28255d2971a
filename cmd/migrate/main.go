package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	sourcePath string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema used by the postgres store driver",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if it exists
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Migrating database at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)
		return postgres.RunMigrations(cfg.Database.DSN(), sourceURL())
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid steps %q", args[0])
			}
			steps = n
		}
		if err := postgres.RollbackMigrations(cfg.Database.DSN(), sourceURL(), steps); err != nil {
			return err
		}
		fmt.Printf("Rolled back %d migration(s)\n", steps)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := postgres.MigrationVersion(cfg.Database.DSN(), sourceURL())
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	},
}

func sourceURL() string {
	return "file://" + sourcePath
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourcePath, "path", "p", "migrations", "directory holding the migration files")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
