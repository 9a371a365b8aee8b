package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faciam-dev/gadmin/internal/schema"
)

func newValidateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate schema JSON documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if dir != "" {
				entries, err := os.ReadDir(dir)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
						files = append(files, filepath.Join(dir, e.Name()))
					}
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no schema files given; pass files or --dir")
			}
			var bad int
			for _, f := range files {
				if err := validateFile(f); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f, err)
					bad++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", f)
			}
			if bad > 0 {
				return fmt.Errorf("%d invalid schema document(s)", bad)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "validate every *.json document in a directory")
	return cmd
}

func validateFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- file path cleaned
	if err != nil {
		return err
	}
	s, err := schema.Decode(data)
	if err != nil {
		return err
	}
	return schema.Validate(s)
}
