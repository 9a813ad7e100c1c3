package cmd

import (
	"fmt"
	"strings"

	"github.com/matlukowski/readTube-sub000/internal/database"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd(state *runtimeState) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Create or update every table the service owns: video references, cached
transcripts, the usage ledger and the job queue.

Migrations are additive and safe to run against a live database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(state.cfg, state.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables in %s\n", len(models.All()), state.cfg.Database.Path)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Initialize(state.cfg.Database.Path, state.cfg.Database.Verbose)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", state.cfg.Database.Path)
			fmt.Fprintln(out, strings.Repeat("-", 40))
			for _, m := range models.All() {
				name, err := tableName(db.DB, m)
				if err != nil {
					return err
				}
				status := "missing"
				if db.Migrator().HasTable(m) {
					status = "ok"
				}
				fmt.Fprintf(out, "%-24s %s\n", name, status)
			}
			return nil
		},
	}

	migrateCmd.AddCommand(statusCmd)
	return migrateCmd
}

func tableName(db *gorm.DB, model any) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", fmt.Errorf("failed to parse model: %w", err)
	}
	return stmt.Schema.Table, nil
}
