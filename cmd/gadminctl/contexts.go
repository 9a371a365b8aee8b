package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/schema"
)

func newContextsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "List rendering contexts; with --file, the fields each context exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if file == "" {
				for _, c := range schema.AllContexts {
					fmt.Fprintln(out, c)
				}
				return nil
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
			for _, c := range schema.AllContexts {
				f, err := schema.Filter(s, []schema.Context{c})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", c, strings.Join(f.Schema.Fields.Names(), ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "schema JSON document")
	return cmd
}
