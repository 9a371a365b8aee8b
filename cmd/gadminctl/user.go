package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/gadmin/internal/storage"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage admin users"}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var dsn, driver, prefix, username, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" || username == "" || password == "" {
				return fmt.Errorf("--db, --username and --password are required")
			}
			db, err := sql.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
			if err != nil {
				return err
			}
			ctx := context.Background()
			dialect := storage.DialectFor(driver)
			id, err := query.New(db, prefix+"users", dialect).WithContext(ctx).InsertGetId(map[string]any{
				"username":      username,
				"password_hash": string(hash),
			})
			if err != nil {
				return err
			}
			if role != "" {
				var r struct {
					ID int64 `db:"id"`
				}
				err = query.New(db, prefix+"roles", dialect).WithContext(ctx).
					Select("id").Where("name", role).First(&r)
				switch {
				case err == sql.ErrNoRows:
					r.ID, err = query.New(db, prefix+"roles", dialect).WithContext(ctx).
						InsertGetId(map[string]any{"name": role})
					if err != nil {
						return err
					}
				case err != nil:
					return err
				}
				if _, err := query.New(db, prefix+"user_roles", dialect).WithContext(ctx).InsertGetId(map[string]any{
					"user_id": id,
					"role_id": r.ID,
				}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "", "database DSN")
	cmd.Flags().StringVar(&driver, "driver", "mysql", "database driver")
	cmd.Flags().StringVar(&prefix, "table-prefix", "gadmin_", "admin table prefix")
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "", "role to grant")
	return cmd
}
