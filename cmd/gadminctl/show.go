package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/schema"
)

func newShowCmd() *cobra.Command {
	var file, contexts string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a schema document filtered to one or more contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(filepath.Clean(file)) // #nosec G304 -- file path cleaned
			if err != nil {
				return err
			}
			s, err := schema.Decode(data)
			if err != nil {
				return err
			}
			if err := schema.Validate(s); err != nil {
				return err
			}
			ctxs, err := schema.ParseContexts(contexts)
			if err != nil {
				return err
			}
			f, err := schema.Filter(s, ctxs)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(f.Schema, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "schema JSON document")
	cmd.Flags().StringVar(&contexts, "contexts", "", "comma-separated contexts (list,form,detail,meta); empty shows the full schema")
	return cmd
}
