// Command migrate applies and inspects the goose migrations of the civic database.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrationsDir string
	useDir        bool
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the civic database schema",
	Long: `migrate runs the goose migrations against the database configured
through config.json, .env or DATABASE_* environment variables.

Migrations are embedded in the binary. Pass --dir with --from-dir to run
the SQL files on disk instead.

Examples:
  migrate up
  migrate down
  migrate status
  migrate create add_issue_tags`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, dir string) error {
			if err := goose.Up(db, dir); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, dir string) error {
			if err := goose.Down(db, dir); err != nil {
				return fmt.Errorf("failed to run down migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations have been applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, dir string) error {
			if err := goose.Status(db, dir); err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, dir string) error {
			if err := goose.Version(db, dir); err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new SQL migration file in --dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goose.SetBaseFS(nil)
		if err := goose.Create(nil, migrationsDir, args[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "./migrations", "Migrations directory on disk")
	rootCmd.PersistentFlags().BoolVar(&useDir, "from-dir", false, "Read migrations from --dir instead of the embedded set")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

// withDB opens the configured database, selects the migration source and
// hands both to fn.
func withDB(fn func(db *sql.DB, dir string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	dir := "."
	if useDir {
		goose.SetBaseFS(nil)
		dir = migrationsDir
	} else {
		goose.SetBaseFS(migrations.FS)
	}
	return fn(db, dir)
}
