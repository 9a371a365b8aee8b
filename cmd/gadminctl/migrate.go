package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/migrations"
)

func newMigrateCmd() *cobra.Command {
	var dsn, driver, prefix string
	var down bool
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the admin tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("--db is required")
			}
			db, err := sql.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			m := migrations.New(driver, prefix)
			ctx := context.Background()
			if down {
				err = m.Down(ctx, db, target)
			} else {
				err = m.Up(ctx, db, target)
			}
			if err != nil {
				return err
			}
			cur, err := m.Current(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", cur)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "database DSN")
	cmd.Flags().StringVar(&driver, "driver", "mysql", "database driver")
	cmd.Flags().StringVar(&prefix, "table-prefix", "gadmin_", "admin table prefix")
	cmd.Flags().BoolVar(&down, "down", false, "migrate down instead of up")
	cmd.Flags().IntVar(&target, "target", 0, "target version (0 = latest for up)")
	return cmd
}
